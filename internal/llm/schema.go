package llm

// BuildExtractionJSONSchema describes the reply we accept from the model.
// Unknown properties are tolerated; the listed ones must have the right types.
func BuildExtractionJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":        map[string]any{"type": "string"},
			"value":       map[string]any{"type": []any{"string", "null"}},
			"confidence":  map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"source_text": map[string]any{"type": []any{"string", "null"}},
		},
		"required": []any{"name"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"extracted_fields": map[string]any{
				"type":  "array",
				"items": item,
			},
		},
		"required": []any{"extracted_fields"},
	}
}
