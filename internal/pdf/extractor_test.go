package pdf

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

type fakeText struct {
	pages []string
	lines [][]Line
	err   error
}

func (f fakeText) PageTexts(string) ([]string, error) { return f.pages, f.err }
func (f fakeText) PageLines(string) ([][]Line, error) { return f.lines, f.err }

type fakeRender struct {
	pages  []string
	sizes  []PageSize
	images []image.Image
	err    error
}

func (f fakeRender) PageTexts(string) ([]string, error)   { return f.pages, f.err }
func (f fakeRender) PageSizes(string) ([]PageSize, error) { return f.sizes, f.err }
func (f fakeRender) RenderPages(context.Context, string, int) ([]image.Image, error) {
	return f.images, f.err
}

type fakeForms struct {
	widgets []entity.FormWidget
	err     error
}

func (f fakeForms) Widgets(string) ([]entity.FormWidget, error) { return f.widgets, f.err }

func tempPDF(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(p, []byte("%PDF-1.4\n"), 0o600))
	return p
}

func TestNewExtractor_RequiresBackends(t *testing.T) {
	_, err := NewExtractor(nil, fakeRender{}, fakeForms{}, nil)
	assert.ErrorIs(t, err, common.ErrCapabilityUnavailable)
	_, err = NewExtractor(fakeText{}, nil, fakeForms{}, nil)
	assert.ErrorIs(t, err, common.ErrCapabilityUnavailable)
	_, err = NewExtractor(fakeText{}, fakeRender{}, nil, nil)
	assert.ErrorIs(t, err, common.ErrCapabilityUnavailable)

	e, err := NewDefaultExtractor(nil, WithDPI(150))
	require.NoError(t, err)
	assert.Equal(t, 150, e.dpi)
}

func TestExtractText(t *testing.T) {
	path := tempPDF(t)
	cases := []struct {
		name   string
		text   fakeText
		render fakeRender
		want   string
		method string
	}{
		{"primary", fakeText{pages: []string{"page one", "page two"}}, fakeRender{pages: []string{"ignored"}}, "page one\n\npage two", TextMethodPrimary},
		{"fallback on blank", fakeText{pages: []string{"  ", ""}}, fakeRender{pages: []string{"scan", "text"}}, "scan\n\ntext", TextMethodFallback},
		{"fallback on error", fakeText{err: errors.New("bad xref")}, fakeRender{pages: []string{"ok"}}, "ok", TextMethodFallback},
		{"both fail", fakeText{err: errors.New("x")}, fakeRender{err: errors.New("y")}, "", TextMethodNone},
		{"both blank", fakeText{pages: []string{""}}, fakeRender{pages: []string{" "}}, "", TextMethodNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewExtractor(tc.text, tc.render, fakeForms{}, nil)
			require.NoError(t, err)
			text, method := e.extractText(context.Background(), path)
			assert.Equal(t, tc.want, text)
			assert.Equal(t, tc.method, method)
		})
	}
}

func TestExtractText_InvalidPath(t *testing.T) {
	e, err := NewExtractor(fakeText{pages: []string{"x"}}, fakeRender{}, fakeForms{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", e.ExtractText(context.Background(), "missing.pdf"))
	assert.Equal(t, "", e.ExtractText(context.Background(), ""))
	assert.Nil(t, e.ExtractPages(context.Background(), "missing.pdf"))
	assert.Nil(t, e.PageImages(context.Background(), "missing.pdf"))
	assert.Nil(t, e.FormWidgets(context.Background(), "missing.pdf"))
}

func TestExtractPages(t *testing.T) {
	table := []Line{
		{{X: 0, W: 20, Text: "A"}, {X: 100, W: 20, Text: "B"}},
		{{X: 0, W: 20, Text: "1"}, {X: 100, W: 20, Text: "2"}},
	}
	e, err := NewExtractor(
		fakeText{pages: []string{"first", "second"}, lines: [][]Line{table, nil}},
		fakeRender{sizes: []PageSize{{612, 792}, {595, 842}}},
		fakeForms{}, nil,
	)
	require.NoError(t, err)

	pages := e.ExtractPages(context.Background(), tempPDF(t))
	require.Len(t, pages, 2)
	assert.Equal(t, entity.Page{PageNumber: 1, Text: "first", Width: 612, Height: 792, Tables: [][][]string{{{"A", "B"}, {"1", "2"}}}}, pages[0])
	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Equal(t, 842.0, pages[1].Height)
	assert.Empty(t, pages[1].Tables)
}

func TestPageImages(t *testing.T) {
	e, err := NewExtractor(fakeText{}, fakeRender{images: []image.Image{solid(10, 10), solid(20, 10)}}, fakeForms{}, nil)
	require.NoError(t, err)
	imgs := e.PageImages(context.Background(), tempPDF(t))
	assert.Len(t, imgs, 2)

	e, err = NewExtractor(fakeText{}, fakeRender{err: errors.New("no mupdf")}, fakeForms{}, nil)
	require.NoError(t, err)
	assert.Empty(t, e.PageImages(context.Background(), tempPDF(t)))
}

func TestExtract_Bundle(t *testing.T) {
	w := []entity.FormWidget{{Name: "patient_name", Type: "Tx"}}
	e, err := NewExtractor(fakeText{pages: []string{"hello"}}, fakeRender{sizes: []PageSize{{612, 792}}}, fakeForms{widgets: w}, nil)
	require.NoError(t, err)

	doc := e.Extract(context.Background(), tempPDF(t))
	assert.Equal(t, "hello", doc.RawText)
	assert.Len(t, doc.Pages, 1)
	assert.Equal(t, w, doc.Widgets)
	assert.Equal(t, 1, doc.Metadata["page_count"])
	assert.Equal(t, TextMethodPrimary, doc.Metadata["text_method"])
}

func TestValidatePDFPath(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.pdf"), 0o755))

	assert.ErrorIs(t, ValidatePDFPath(""), common.ErrInvalidInput)
	assert.ErrorIs(t, ValidatePDFPath(txt), common.ErrInvalidInput)
	assert.ErrorIs(t, ValidatePDFPath(filepath.Join(dir, "gone.pdf")), common.ErrNotFound)
	assert.ErrorIs(t, ValidatePDFPath(filepath.Join(dir, "folder.pdf")), common.ErrInvalidInput)
	assert.NoError(t, ValidatePDFPath(tempPDF(t)))
}

func TestAcroFormReader_NoForm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.pdf")
	doc := fpdf.New("P", "pt", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Text(72, 72, "Referral package")
	require.NoError(t, doc.OutputFileAndClose(path))

	widgets, err := AcroFormReader{}.Widgets(path)
	require.NoError(t, err)
	assert.Empty(t, widgets)
}
