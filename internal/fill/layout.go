package fill

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

// A4 in points.
const (
	pageWidth  = 595.28
	pageHeight = 841.89
	margin     = 50.0

	timestampLayout = "2006-01-02 15:04:05"

	entrySize    = 10.0
	entryAdvance = 15.0
	wrapIndent   = "    "
)

// measureFunc returns the rendered width in points of text at a font size.
type measureFunc func(text string, size float64) float64

// textLine is one positioned item on a report page. Rule draws a divider at Y.
type textLine struct {
	Y    float64
	Text string
	Size float64
	Rule bool
}

type layoutPage []textLine

// pager accumulates positioned lines and starts a new page once the cursor
// passes the bottom margin.
type pager struct {
	pages   []layoutPage
	y       float64
	height  float64
	measure measureFunc
}

func newPager(height float64, measure measureFunc) *pager {
	return &pager{pages: []layoutPage{{}}, y: margin, height: height, measure: measure}
}

func (p *pager) newPage() {
	p.pages = append(p.pages, layoutPage{})
	p.y = margin
}

func (p *pager) add(text string, size, advance float64) {
	p.pages[len(p.pages)-1] = append(p.pages[len(p.pages)-1], textLine{Y: p.y, Text: text, Size: size})
	p.y += advance
}

// entry adds a field line wrapped to the content width, breaking the page
// whenever the cursor is past the bottom margin.
func (p *pager) entry(text string) {
	var measure func(string) float64
	if p.measure != nil {
		measure = func(s string) float64 { return p.measure(s, entrySize) }
	}
	for _, ln := range wrapText(text, pageWidth-2*margin, measure) {
		if p.y > p.height-margin {
			p.newPage()
		}
		p.add(ln, entrySize, entryAdvance)
	}
}

// wrapText breaks text at spaces so every line measures at most width.
// Continuation lines keep the leading spaces of text plus wrapIndent; a word
// wider than a line is cut between runes.
func wrapText(text string, width float64, measure func(string) float64) []string {
	if measure == nil || measure(text) <= width {
		return []string{text}
	}
	lead := text[:len(text)-len(strings.TrimLeft(text, " "))]
	var lines []string
	prefix, line := lead, ""
	flush := func() {
		lines = append(lines, prefix+line)
		prefix, line = lead+wrapIndent, ""
	}
	for _, w := range strings.Fields(text) {
		next := w
		if line != "" {
			next = line + " " + w
		}
		if measure(prefix+next) <= width {
			line = next
			continue
		}
		if line != "" {
			flush()
		}
		for w != "" && measure(prefix+w) > width {
			cut := fitRunes(prefix, w, width, measure)
			line = w[:cut]
			flush()
			w = w[cut:]
		}
		line = w
	}
	if line != "" {
		flush()
	}
	return lines
}

// fitRunes returns the byte length of the longest rune prefix of w that fits
// after prefix, and at least one rune.
func fitRunes(prefix, w string, width float64, measure func(string) float64) int {
	cut := 0
	for i, r := range w {
		end := i + utf8.RuneLen(r)
		if measure(prefix+w[:end]) > width {
			break
		}
		cut = end
	}
	if cut == 0 {
		_, cut = utf8.DecodeRuneInString(w)
	}
	return cut
}

func (p *pager) rule(advance float64) {
	p.pages[len(p.pages)-1] = append(p.pages[len(p.pages)-1], textLine{Y: p.y, Rule: true})
	p.y += advance
}

func confidenceSuffix(f entity.FormField, format string) string {
	if f.Confidence >= 1.0 {
		return ""
	}
	return fmt.Sprintf(format, entity.FormatPercent(f.Confidence))
}

// reportLayout positions the extraction report: filled values first, then a
// review section for uncertain and missing fields when there are any.
// Entries are wrapped using measure; a nil measure leaves them unwrapped.
func reportLayout(fields []entity.FormField, folder string, now time.Time, height float64, measure measureFunc) []layoutPage {
	var filled, uncertain, missing []entity.FormField
	for _, f := range fields {
		switch f.Status {
		case constants.FieldFilled:
			filled = append(filled, f)
		case constants.FieldUncertain:
			uncertain = append(uncertain, f)
		case constants.FieldNotFound:
			missing = append(missing, f)
		}
	}

	p := newPager(height, measure)
	p.add("Prior Authorization - Extracted Information", 16, 30)
	p.add("Generated: "+now.Format(timestampLayout), 10, 20)
	if folder != "" {
		p.add("Patient Folder: "+folder, 10, 30)
	}
	p.rule(20)
	for _, f := range filled {
		p.entry(fmt.Sprintf("%s: %s%s", f.Name, f.ValueOr(""), confidenceSuffix(f, " [%s]")))
	}

	if len(uncertain) == 0 && len(missing) == 0 {
		return p.pages
	}

	p.newPage()
	p.add("Fields Requiring Review", 16, 40)
	if len(uncertain) > 0 {
		p.add("UNCERTAIN VALUES (Low Confidence):", 12, 20)
		for _, f := range uncertain {
			p.entry(fmt.Sprintf("  • %s: %s [%s]", f.Name, f.ValueOr(""), entity.FormatPercent(f.Confidence)))
		}
		p.y += 20
	}
	if len(missing) > 0 {
		if p.y > height-margin {
			p.newPage()
		}
		p.add("FIELDS NOT FOUND IN REFERRAL PACKAGE:", 12, 20)
		for _, f := range missing {
			p.entry("  • " + f.Name)
		}
	}
	return p.pages
}

// overlayLines is the text of the page appended to forms without fillable
// fields. It is empty when no field has a value worth listing.
func overlayLines(fields []entity.FormField, now time.Time) []string {
	var entries []string
	for _, f := range fields {
		if f.Value == nil || *f.Value == "" {
			continue
		}
		if f.Status != constants.FieldFilled && f.Status != constants.FieldUncertain {
			continue
		}
		entries = append(entries, fmt.Sprintf("%s: %s%s", f.Name, *f.Value, confidenceSuffix(f, " (confidence: %s)")))
	}
	if len(entries) == 0 {
		return nil
	}
	rule := strings.Repeat("=", 60)
	lines := []string{
		rule,
		"EXTRACTED INFORMATION FROM REFERRAL PACKAGE",
		"Generated: " + now.Format(timestampLayout),
		rule,
		"",
	}
	return append(lines, entries...)
}
