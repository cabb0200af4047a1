package pdf

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

const (
	DefaultDPI               = 200
	DefaultMaxImageDimension = 2400

	TextMethodPrimary  = "pdf-text"
	TextMethodFallback = "mupdf-text"
	TextMethodNone     = "none"
)

// Extractor pulls text, page geometry, tables, images and form widgets out of PDFs.
// Read failures are logged and degrade to empty results.
type Extractor struct {
	text   TextReader
	render Renderer
	forms  FormReader

	dpi    int
	maxDim int
	log    *slog.Logger
}

type Option func(*Extractor)

func WithDPI(dpi int) Option {
	return func(e *Extractor) {
		if dpi > 0 {
			e.dpi = dpi
		}
	}
}

func WithMaxImageDimension(px int) Option {
	return func(e *Extractor) { e.maxDim = px }
}

// NewExtractor requires all three backends.
func NewExtractor(text TextReader, render Renderer, forms FormReader, logger *slog.Logger, opts ...Option) (*Extractor, error) {
	switch {
	case text == nil:
		return nil, common.CapabilityError("pdf extractor", "text reader")
	case render == nil:
		return nil, common.CapabilityError("pdf extractor", "page renderer")
	case forms == nil:
		return nil, common.CapabilityError("pdf extractor", "form reader")
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Extractor{
		text:   text,
		render: render,
		forms:  forms,
		dpi:    DefaultDPI,
		maxDim: DefaultMaxImageDimension,
		log:    logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// NewDefaultExtractor wires ledongthuc/pdf, go-fitz and pdfcpu.
func NewDefaultExtractor(logger *slog.Logger, opts ...Option) (*Extractor, error) {
	return NewExtractor(PlainTextReader{}, MuPDFRenderer{}, AcroFormReader{}, logger, opts...)
}

// ExtractText returns the document text, pages joined by a blank line.
func (e *Extractor) ExtractText(ctx context.Context, path string) string {
	text, _ := e.extractText(ctx, path)
	return text
}

func (e *Extractor) extractText(_ context.Context, path string) (string, string) {
	if err := ValidatePDFPath(path); err != nil {
		e.log.Error("pdf.text.invalid_path", "path", path, "error", err)
		return "", TextMethodNone
	}
	start := time.Now()

	pages, err := e.text.PageTexts(path)
	if err != nil {
		e.log.Warn("pdf.text.primary_failed", "path", path, "error", err)
	}
	if text := joinPages(pages); strings.TrimSpace(text) != "" {
		e.log.Info("pdf.text.ok", "path", path, "method", TextMethodPrimary, "chars", len(text), "elapsed_ms", time.Since(start).Milliseconds())
		return text, TextMethodPrimary
	}

	pages, err = e.render.PageTexts(path)
	if err != nil {
		e.log.Warn("pdf.text.fallback_failed", "path", path, "error", err)
		return "", TextMethodNone
	}
	text := joinPages(pages)
	if strings.TrimSpace(text) == "" {
		e.log.Info("pdf.text.empty", "path", path, "elapsed_ms", time.Since(start).Milliseconds())
		return "", TextMethodNone
	}
	e.log.Info("pdf.text.ok", "path", path, "method", TextMethodFallback, "chars", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, TextMethodFallback
}

// ExtractPages returns per-page text, size and detected tables.
func (e *Extractor) ExtractPages(_ context.Context, path string) []entity.Page {
	if err := ValidatePDFPath(path); err != nil {
		e.log.Error("pdf.pages.invalid_path", "path", path, "error", err)
		return nil
	}

	texts, err := e.text.PageTexts(path)
	if err != nil {
		e.log.Warn("pdf.pages.text_failed", "path", path, "error", err)
		texts = nil
	}
	sizes, err := e.render.PageSizes(path)
	if err != nil {
		e.log.Warn("pdf.pages.size_failed", "path", path, "error", err)
	}
	lines, err := e.text.PageLines(path)
	if err != nil {
		e.log.Warn("pdf.pages.rows_failed", "path", path, "error", err)
	}

	n := max(len(texts), len(sizes))
	pages := make([]entity.Page, 0, n)
	for i := 0; i < n; i++ {
		p := entity.Page{PageNumber: i + 1, Tables: [][][]string{}}
		if i < len(texts) {
			p.Text = texts[i]
		}
		if i < len(sizes) {
			p.Width, p.Height = sizes[i].Width, sizes[i].Height
		}
		if i < len(lines) {
			if t := DetectTables(lines[i]); len(t) > 0 {
				p.Tables = t
			}
		}
		pages = append(pages, p)
	}
	return pages
}

// PageImages renders every page as base64 PNG.
func (e *Extractor) PageImages(ctx context.Context, path string) []string {
	if err := ValidatePDFPath(path); err != nil {
		e.log.Error("pdf.images.invalid_path", "path", path, "error", err)
		return nil
	}
	start := time.Now()

	imgs, err := e.render.RenderPages(ctx, path, e.dpi)
	if err != nil {
		e.log.Error("pdf.images.render_failed", "path", path, "dpi", e.dpi, "error", err)
		return nil
	}
	out := make([]string, 0, len(imgs))
	for i, img := range imgs {
		s, err := EncodePNGBase64(img, e.maxDim)
		if err != nil {
			e.log.Error("pdf.images.encode_failed", "path", path, "page", i+1, "error", err)
			return nil
		}
		out = append(out, s)
	}
	e.log.Info("pdf.images.ok", "path", path, "pages", len(out), "dpi", e.dpi, "elapsed_ms", time.Since(start).Milliseconds())
	return out
}

// FormWidgets lists the fillable fields of a PDF form.
func (e *Extractor) FormWidgets(_ context.Context, path string) []entity.FormWidget {
	if err := ValidatePDFPath(path); err != nil {
		e.log.Error("pdf.widgets.invalid_path", "path", path, "error", err)
		return nil
	}
	w, err := e.forms.Widgets(path)
	if err != nil {
		e.log.Warn("pdf.widgets.failed", "path", path, "error", err)
		return nil
	}
	return w
}

// Extract bundles text, pages and widgets. Chunks are left to the caller.
func (e *Extractor) Extract(ctx context.Context, path string) entity.ExtractedDocument {
	text, method := e.extractText(ctx, path)
	pages := e.ExtractPages(ctx, path)
	return entity.ExtractedDocument{
		FilePath: path,
		RawText:  text,
		Pages:    pages,
		Widgets:  e.FormWidgets(ctx, path),
		Metadata: map[string]any{
			"page_count":  len(pages),
			"text_method": method,
		},
	}
}

func joinPages(pages []string) string {
	return strings.Join(pages, "\n\n")
}
