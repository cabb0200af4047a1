package fill

import (
	"fmt"

	"github.com/go-pdf/fpdf"
)

const fontFamily = "Helvetica"

func newDocument() *fpdf.Fpdf {
	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	return doc
}

// textMeasure measures text with the report font. The returned func is not
// safe for concurrent use.
func textMeasure() measureFunc {
	doc := newDocument()
	tr := doc.UnicodeTranslatorFromDescriptor("")
	return func(s string, size float64) float64 {
		doc.SetFont(fontFamily, "", size)
		return doc.GetStringWidth(tr(s))
	}
}

// renderPages draws precomputed report pages.
func renderPages(pages []layoutPage, output string) error {
	doc := newDocument()
	doc.SetAutoPageBreak(false, 0)
	tr := doc.UnicodeTranslatorFromDescriptor("")

	w, _ := doc.GetPageSize()
	for _, page := range pages {
		doc.AddPage()
		for _, ln := range page {
			if ln.Rule {
				doc.SetLineWidth(0.5)
				doc.Line(margin, ln.Y, w-margin, ln.Y)
				continue
			}
			doc.SetFont(fontFamily, "", ln.Size)
			doc.Text(margin, ln.Y, tr(ln.Text))
		}
	}
	if err := doc.OutputFileAndClose(output); err != nil {
		return fmt.Errorf("write report pdf: %w", err)
	}
	return nil
}

// renderOverlay writes lines as wrapped 10pt text, breaking pages as needed.
func renderOverlay(lines []string, output string) error {
	doc := newDocument()
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()
	doc.SetFont(fontFamily, "", 10)
	for _, ln := range lines {
		doc.MultiCell(0, 12, tr(ln), "", "L", false)
	}
	if err := doc.OutputFileAndClose(output); err != nil {
		return fmt.Errorf("write overlay pdf: %w", err)
	}
	return nil
}
