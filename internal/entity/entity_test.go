package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pa-autofill/constants"
)

func TestNewFormField(t *testing.T) {
	src := "DOB: 01/02/1980"
	tests := []struct {
		name       string
		value      string
		confidence float64
		want       constants.FieldStatus
		wantValue  bool
	}{
		{"high confidence", "John Smith", 0.95, constants.FieldFilled, true},
		{"at threshold", "John Smith", constants.FilledConfidence, constants.FieldFilled, true},
		{"below threshold", "John Smith", 0.69, constants.FieldUncertain, true},
		{"sentinel", "NOT_FOUND", 0.9, constants.FieldNotFound, false},
		{"sentinel lowercase", " not_found ", 0.9, constants.FieldNotFound, false},
		{"blank", "   ", 0.9, constants.FieldNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFormField("patient_dob", tt.value, tt.confidence, &src)
			assert.Equal(t, tt.want, f.Status)
			assert.Equal(t, tt.wantValue, f.Value != nil)
			assert.Equal(t, tt.confidence, f.Confidence)
			require.NotNil(t, f.SourceText)
			if f.Status == constants.FieldNotFound {
				assert.Equal(t, "-", f.ValueOr("-"))
			} else {
				assert.Equal(t, tt.value, f.ValueOr("-"))
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	f := NotFound("member_id")
	assert.Equal(t, "member_id", f.Name)
	assert.Equal(t, constants.FieldNotFound, f.Status)
	assert.Nil(t, f.Value)
	assert.Zero(t, f.Confidence)
	assert.Equal(t, "0%", f.ConfidencePercent())
}

func TestProcessingResultCategorize(t *testing.T) {
	var r ProcessingResult
	r.Categorize([]FormField{
		NewFormField("patient_name", "Adbulla", 0.95, nil),
		NewFormField("patient_dob", "1990-01-01", 0.5, nil),
		NotFound("member_id"),
		{Name: "group_number", Status: constants.FieldSkipped},
	})

	assert.Len(t, r.FilledFields, 1)
	assert.Len(t, r.UncertainFields, 1)
	assert.Equal(t, []string{"member_id", "group_number"}, r.UnfilledFieldNames())
	assert.Equal(t, 4, r.TotalFields())
	assert.InDelta(t, 0.25, r.CompletionRate(), 1e-9)
}

func TestProcessingResultSummary(t *testing.T) {
	assert.Zero(t, ProcessingResult{}.CompletionRate())

	r := ProcessingResult{
		PatientFolder:  "Adbulla",
		Success:        true,
		OutputPath:     "Output/Adbulla/filled_PA_Adbulla.pdf",
		ProcessingTime: 1500 * time.Millisecond,
		FilledFields:   []FormField{NewFormField("patient_name", "Adbulla", 0.9, nil)},
	}
	s := r.Summary()
	assert.Equal(t, 1, s.TotalFields)
	assert.Equal(t, 1.0, s.CompletionRate)
	assert.Equal(t, 1.5, s.ProcessingTime)
	require.NotNil(t, s.OutputPath)
	assert.Equal(t, r.OutputPath, *s.OutputPath)
	assert.Nil(t, s.ErrorMessage)

	failed := ProcessingResult{PatientFolder: "X", ErrorMessage: "Missing files: PA form=false, Referral=true"}.Summary()
	assert.Nil(t, failed.OutputPath)
	require.NotNil(t, failed.ErrorMessage)
}

func TestBatchSummary(t *testing.T) {
	b := BatchProcessingResult{
		Results: []ProcessingResult{
			{PatientFolder: "B", Success: true},
			{PatientFolder: "A", ErrorMessage: "boom"},
		},
		TotalTime: 2 * time.Second,
	}
	assert.True(t, b.AnyFailed())

	s := b.Summary()
	assert.Equal(t, 2, s.TotalProcessed)
	assert.Equal(t, 1, s.Successful)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2.0, s.TotalTime)
	require.Len(t, s.IndividualResults, 2)
	assert.Equal(t, "B", s.IndividualResults[0].PatientFolder)

	assert.False(t, BatchProcessingResult{}.AnyFailed())
}

func TestStandardTemplate(t *testing.T) {
	tpl := StandardTemplate()
	assert.Len(t, tpl.Fields, 40)
	for _, name := range []string{"patient_name", "patient_dob", "member_id", "provider_npi", "diagnosis_code", "cpt_codes", "medical_necessity", "previous_treatments"} {
		assert.Contains(t, tpl.Fields, name)
	}

	seen := map[string]bool{}
	for _, f := range tpl.Fields {
		assert.False(t, seen[f], "duplicate field %s", f)
		seen[f] = true
	}
	for name := range tpl.Descriptions {
		assert.True(t, seen[name], "description for unknown field %s", name)
	}

	tpl.Fields[0] = "changed"
	tpl.Descriptions["patient_name"] = "changed"
	fresh := StandardTemplate()
	assert.Equal(t, "patient_name", fresh.Fields[0])
	assert.Equal(t, "Full name of the patient", fresh.Descriptions["patient_name"])
}

func TestChunkPageNumber(t *testing.T) {
	assert.Equal(t, 3, Chunk{Metadata: map[string]any{"page_number": 3}}.PageNumber())
	assert.Zero(t, Chunk{}.PageNumber())
	assert.Equal(t, "95%", FormatPercent(0.954))
}
