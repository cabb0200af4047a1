package llm

import "context"

// TextRequest is a single-turn text completion.
type TextRequest struct {
	System string
	Prompt string
}

// ImageRequest is a single-turn completion over base64 PNG page images.
type ImageRequest struct {
	System string
	Prompt string
	Images []string // base64, no data: prefix
	Detail string
}

// Provider is a hosted model the extraction client can talk to.
// Implementations return the assistant's raw text content.
type Provider interface {
	Name() string
	Model() string
	CompleteText(ctx context.Context, req TextRequest) (string, error)
	CompleteImages(ctx context.Context, req ImageRequest) (string, error)
}

// ExtractedField is one item of the model's "extracted_fields" array.
type ExtractedField struct {
	Name       string   `json:"name"`
	Value      *string  `json:"value"`
	Confidence *float64 `json:"confidence"`
	SourceText *string  `json:"source_text"`
}

// ExtractionResponse is the JSON object the model is asked to return.
type ExtractionResponse struct {
	ExtractedFields []ExtractedField `json:"extracted_fields"`
}
