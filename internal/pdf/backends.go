package pdf

import (
	"context"
	"image"

	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

// Span is a run of text on a line with its horizontal extent in points.
type Span struct {
	X    float64
	W    float64
	Text string
}

// Line is the spans sharing one baseline, in reading order.
type Line []Span

// TextReader reads embedded page text.
type TextReader interface {
	PageTexts(path string) ([]string, error)
	PageLines(path string) ([][]Line, error)
}

// PageSize is a page's media box in points.
type PageSize struct {
	Width  float64
	Height float64
}

// Renderer rasterizes pages and offers a second text engine.
type Renderer interface {
	PageTexts(path string) ([]string, error)
	PageSizes(path string) ([]PageSize, error)
	RenderPages(ctx context.Context, path string, dpi int) ([]image.Image, error)
}

// FormReader lists the interactive form fields of a PDF.
type FormReader interface {
	Widgets(path string) ([]entity.FormWidget, error)
}
