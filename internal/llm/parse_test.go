package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

func byName(fields []entity.FormField) map[string]entity.FormField {
	out := make(map[string]entity.FormField, len(fields))
	for _, f := range fields {
		out[f.Name] = f
	}
	return out
}

func TestParseExtraction_Classifies(t *testing.T) {
	reply := "```json\n" + `{
		"extracted_fields": [
			{"name": "patient_name", "value": "Adbulla Khan", "confidence": 0.95, "source_text": "Patient: Adbulla Khan"},
			{"name": "patient_dob", "value": "03/04/1961", "confidence": 0.6},
			{"name": "member_id", "value": "not_found", "confidence": 0.9},
			{"name": "diagnosis", "value": "Crohn's disease"},
			{"name": "extra_field", "value": "ignored", "confidence": 1}
		]
	}` + "\n```"
	fields := []string{"patient_name", "patient_dob", "member_id", "diagnosis", "provider_npi"}

	out, err := ParseExtraction(reply, fields, nil)
	require.NoError(t, err)
	require.Len(t, out, len(fields))
	for i, f := range out {
		assert.Equal(t, fields[i], f.Name)
	}

	got := byName(out)
	assert.Equal(t, constants.FieldFilled, got["patient_name"].Status)
	assert.Equal(t, "Adbulla Khan", got["patient_name"].ValueOr(""))
	require.NotNil(t, got["patient_name"].SourceText)
	assert.Equal(t, "Patient: Adbulla Khan", *got["patient_name"].SourceText)

	assert.Equal(t, constants.FieldUncertain, got["patient_dob"].Status)
	assert.Equal(t, constants.FieldNotFound, got["member_id"].Status)
	assert.Nil(t, got["member_id"].Value)

	assert.Equal(t, constants.FieldUncertain, got["diagnosis"].Status)
	assert.InDelta(t, constants.DefaultConfidence, got["diagnosis"].Confidence, 1e-9)

	assert.Equal(t, constants.FieldNotFound, got["provider_npi"].Status)
}

func TestParseExtraction_ConfidenceBoundary(t *testing.T) {
	out, err := ParseExtraction(`{"extracted_fields":[{"name":"npi","value":"1234567890","confidence":0.7}]}`, []string{"npi"}, nil)
	require.NoError(t, err)
	assert.Equal(t, constants.FieldFilled, out[0].Status)
}

func TestParseExtraction_MalformedIsAllNotFound(t *testing.T) {
	fields := []string{"patient_name", "member_id"}
	cases := map[string]string{
		"not json":         "I could not find anything useful.",
		"truncated":        `{"extracted_fields": [{"name": "patient_name", "value": "Jo`,
		"wrong shape":      `{"fields": []}`,
		"fields not array": `{"extracted_fields": "none"}`,
		"empty":            "",
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := ParseExtraction(reply, fields, nil)
			assert.Error(t, err)
			require.Len(t, out, 2)
			for _, f := range out {
				assert.Equal(t, constants.FieldNotFound, f.Status)
				assert.Nil(t, f.Value)
			}
		})
	}
}

func TestParseExtraction_AllNotFoundReply(t *testing.T) {
	reply := `{"extracted_fields":[{"name":"a","value":"NOT_FOUND","confidence":0},{"name":"b","value":null,"confidence":0}]}`
	out, err := ParseExtraction(reply, []string{"a", "b"}, nil)
	require.NoError(t, err)
	for _, f := range out {
		assert.Equal(t, constants.FieldNotFound, f.Status)
	}
}

func TestParseExtraction_LenientCoercion(t *testing.T) {
	reply := `{"extracted_fields":[
		{"name":"member_id","value":123456789,"confidence":"0.9"},
		{"name":"units_requested","value":"4","confidence":"80%"},
		{"name":"urgency_level","value":"urgent","confidence":null},
		{"value":"no name"}
	]}`
	out, err := ParseExtraction(reply, []string{"member_id", "units_requested", "urgency_level"}, nil)
	require.NoError(t, err)

	got := byName(out)
	assert.Equal(t, "123456789", got["member_id"].ValueOr(""))
	assert.Equal(t, constants.FieldFilled, got["member_id"].Status)
	assert.InDelta(t, 0.8, got["units_requested"].Confidence, 1e-9)
	assert.InDelta(t, constants.DefaultConfidence, got["urgency_level"].Confidence, 1e-9)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("  {\"a\":1}  "))
}

func TestBuildExtractionPrompt(t *testing.T) {
	p := BuildExtractionPrompt("Patient: Jane", []string{"patient_name", "cpt_codes"}, map[string]string{"patient_name": "Full name of the patient"})

	assert.Contains(t, p, "DOCUMENT CONTENT:\nPatient: Jane\n")
	assert.Contains(t, p, "FIELDS TO EXTRACT:\n- patient_name: Full name of the patient\n- cpt_codes\n")
	assert.Contains(t, p, `mark it as "NOT_FOUND"`)
	assert.Contains(t, p, `"extracted_fields"`)
	assert.Contains(t, p, "Return ONLY the JSON object, no additional text.")
}
