package entity

// Page is one page of an extracted PDF.
type Page struct {
	PageNumber int          `json:"page_number"`
	Text       string       `json:"text"`
	Width      float64      `json:"width"`
	Height     float64      `json:"height"`
	Tables     [][][]string `json:"tables"`
}

// Chunk is a retrieval unit cut from page text.
type Chunk struct {
	ChunkID   int            `json:"chunk_id"`
	Text      string         `json:"text"`
	StartChar int            `json:"start_char"`
	EndChar   int            `json:"end_char"`
	Metadata  map[string]any `json:"metadata"`
}

// PageNumber returns the page recorded in the chunk metadata, or 0.
func (c Chunk) PageNumber() int {
	if n, ok := c.Metadata["page_number"].(int); ok {
		return n
	}
	return 0
}

// FormWidget is a fillable field found in a PDF.
type FormWidget struct {
	Name  string     `json:"field_name"`
	Type  string     `json:"field_type"`
	Value string     `json:"field_value"`
	Page  int        `json:"page,omitempty"`
	Rect  [4]float64 `json:"rect"`
}

// ExtractedDocument bundles everything the extractor produced for one file.
type ExtractedDocument struct {
	FilePath string         `json:"file_path"`
	RawText  string         `json:"raw_text"`
	Pages    []Page         `json:"pages"`
	Chunks   []Chunk        `json:"chunks"`
	Widgets  []FormWidget   `json:"widgets,omitempty"`
	Metadata map[string]any `json:"metadata"`
}
