package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

// ParseExtraction turns a model reply into one FormField per requested field,
// in the requested order. Replies that are not valid JSON or do not match the
// schema yield all NOT_FOUND; the error return is only informational.
func ParseExtraction(reply string, fields []string, logger *slog.Logger) ([]entity.FormField, error) {
	if logger == nil {
		logger = slog.Default()
	}
	body := []byte(StripCodeFence(reply))

	schema := BuildExtractionJSONSchema()
	if err := ValidateJSONAgainstSchema(schema, body); err != nil {
		cleaned, changed, sErr := SanitizeExtraction(body)
		if sErr != nil {
			return allNotFound(fields), fmt.Errorf("parse extraction: %w", err)
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return allNotFound(fields), fmt.Errorf("parse extraction: %w", vErr)
		}
		logger.Warn("llm.extract.lenient_sanitize_applied", "changed", changed)
		body = cleaned
	}

	var resp ExtractionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return allNotFound(fields), fmt.Errorf("decode extraction: %w", err)
	}

	lookup := make(map[string]ExtractedField, len(resp.ExtractedFields))
	for _, f := range resp.ExtractedFields {
		lookup[f.Name] = f
	}

	out := make([]entity.FormField, 0, len(fields))
	for _, name := range fields {
		got, ok := lookup[name]
		if !ok {
			out = append(out, entity.NotFound(name))
			continue
		}
		conf := constants.DefaultConfidence
		if got.Confidence != nil {
			conf = *got.Confidence
		}
		value := ""
		if got.Value != nil {
			value = *got.Value
		}
		out = append(out, entity.NewFormField(name, value, conf, got.SourceText))
	}
	return out, nil
}

func allNotFound(fields []string) []entity.FormField {
	out := make([]entity.FormField, 0, len(fields))
	for _, f := range fields {
		out = append(out, entity.NotFound(f))
	}
	return out
}
