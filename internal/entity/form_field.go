package entity

import (
	"strings"

	"github.com/joseph-ayodele/pa-autofill/constants"
)

// FormField is the extraction outcome for one template field.
// Build it with NewFormField or NotFound so the status invariants hold.
type FormField struct {
	Name       string                `json:"name"`
	Value      *string               `json:"value"`
	Status     constants.FieldStatus `json:"status"`
	Confidence float64               `json:"confidence"`
	SourceText *string               `json:"source_text,omitempty"`
	PageNumber *int                  `json:"page_number,omitempty"`
}

// NewFormField classifies a model answer: a usable value is FILLED at or above
// constants.FilledConfidence and UNCERTAIN below it; a blank value or the
// NOT_FOUND sentinel yields a NOT_FOUND field with no value.
func NewFormField(name, value string, confidence float64, sourceText *string) FormField {
	v := strings.TrimSpace(value)
	if v == "" || strings.EqualFold(v, constants.NotFoundSentinel) {
		f := NotFound(name)
		f.Confidence = confidence
		f.SourceText = sourceText
		return f
	}
	status := constants.FieldUncertain
	if confidence >= constants.FilledConfidence {
		status = constants.FieldFilled
	}
	return FormField{
		Name:       name,
		Value:      &value,
		Status:     status,
		Confidence: confidence,
		SourceText: sourceText,
	}
}

// NotFound returns an empty NOT_FOUND field.
func NotFound(name string) FormField {
	return FormField{Name: name, Status: constants.FieldNotFound}
}

// ValueOr returns the value or def when the field has none.
func (f FormField) ValueOr(def string) string {
	if f.Value == nil {
		return def
	}
	return *f.Value
}

// ConfidencePercent renders the confidence the way reports show it ("95%").
func (f FormField) ConfidencePercent() string {
	return FormatPercent(f.Confidence)
}
