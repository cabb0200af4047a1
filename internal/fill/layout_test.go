package fill

import (
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

var fixedNow = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func texts(p layoutPage) []string {
	var out []string
	for _, l := range p {
		if !l.Rule {
			out = append(out, l.Text)
		}
	}
	return out
}

func TestReportLayout(t *testing.T) {
	fields := []entity.FormField{
		entity.NewFormField("patient_name", "Adbulla Khan", 0.95, nil),
		entity.NewFormField("member_id", "M-1", 1.0, nil),
		entity.NewFormField("patient_dob", "1961-03-04", 0.55, nil),
		entity.NotFound("provider_npi"),
	}

	pages := reportLayout(fields, "Adbulla", fixedNow, pageHeight, textMeasure())
	require.Len(t, pages, 2)

	assert.Equal(t, []string{
		"Prior Authorization - Extracted Information",
		"Generated: 2024-03-09 14:05:07",
		"Patient Folder: Adbulla",
		"patient_name: Adbulla Khan [95%]",
		"member_id: M-1",
	}, texts(pages[0]))
	assert.Equal(t, 16.0, pages[0][0].Size)
	assert.Equal(t, 50.0, pages[0][0].Y)
	assert.True(t, pages[0][3].Rule)
	assert.Equal(t, 130.0, pages[0][3].Y)

	assert.Equal(t, []string{
		"Fields Requiring Review",
		"UNCERTAIN VALUES (Low Confidence):",
		"  • patient_dob: 1961-03-04 [55%]",
		"FIELDS NOT FOUND IN REFERRAL PACKAGE:",
		"  • provider_npi",
	}, texts(pages[1]))
}

func TestReportLayout_OnlyFilledHasOnePage(t *testing.T) {
	pages := reportLayout([]entity.FormField{entity.NewFormField("a", "x", 0.9, nil)}, "", fixedNow, pageHeight, nil)
	require.Len(t, pages, 1)
	assert.NotContains(t, texts(pages[0]), "Patient Folder: ")
}

func TestReportLayout_Paginates(t *testing.T) {
	var fields []entity.FormField
	for i := 0; i < 50; i++ {
		fields = append(fields, entity.NewFormField(fmt.Sprintf("f%02d", i), "v", 0.9, nil))
	}
	pages := reportLayout(fields, "X", fixedNow, pageHeight, textMeasure())
	require.Len(t, pages, 2)
	assert.Len(t, pages[0], 4+43)
	assert.Len(t, pages[1], 7)
	assert.Equal(t, 50.0, pages[1][0].Y)

	for _, p := range pages {
		for _, l := range p {
			assert.LessOrEqual(t, l.Y, pageHeight-margin)
		}
	}
}

// runeWidth treats every rune as half the font size wide.
func runeWidth(s string, size float64) float64 {
	return float64(utf8.RuneCountInString(s)) * size / 2
}

func TestReportLayout_WrapsLongValues(t *testing.T) {
	words := strings.Fields(strings.Repeat("Patient failed conservative therapy including physical therapy and NSAIDs. ", 12))
	long := strings.Join(words, " ")
	fields := []entity.FormField{
		entity.NewFormField("medical_necessity", long, 0.95, nil),
		entity.NewFormField("clinical_rationale", "Short • note", 0.5, nil),
	}

	pages := reportLayout(fields, "Adbulla", fixedNow, pageHeight, runeWidth)
	require.Len(t, pages, 2)

	var body []string
	for _, l := range texts(pages[0])[3:] {
		assert.LessOrEqual(t, runeWidth(l, 10), pageWidth-2*margin, l)
		body = append(body, l)
	}
	require.Greater(t, len(body), 1)
	assert.True(t, strings.HasPrefix(body[0], "medical_necessity: Patient failed"))
	for _, l := range body[1:] {
		assert.True(t, strings.HasPrefix(l, "    "), l)
	}

	joined := strings.Fields(strings.Join(body, " "))
	assert.Equal(t, append([]string{"medical_necessity:"}, words...), joined[:len(words)+1])
	assert.Equal(t, "[95%]", joined[len(joined)-1])

	for i := 1; i < len(pages[0]); i++ {
		assert.Greater(t, pages[0][i].Y, pages[0][i-1].Y)
	}
}

func TestReportLayout_WrapsWithReportFont(t *testing.T) {
	measure := textMeasure()
	fields := []entity.FormField{
		entity.NewFormField("previous_treatments", strings.Repeat("• ibuprofen 600 mg TID ", 40), 0.6, nil),
	}
	pages := reportLayout(fields, "", fixedNow, pageHeight, measure)
	require.Len(t, pages, 2)

	lines := texts(pages[1])[2:]
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[0], "  • previous_treatments: "))
	for _, l := range lines {
		assert.LessOrEqual(t, measure(l, 10), pageWidth-2*margin, l)
	}
	for _, l := range lines[1:] {
		assert.True(t, strings.HasPrefix(l, "      "), l)
	}
}

func TestWrapText_CutsLongWords(t *testing.T) {
	measure := func(s string) float64 { return float64(utf8.RuneCountInString(s)) }
	assert.Equal(t, []string{"short"}, wrapText("short", 10, measure))
	assert.Equal(t, []string{"no measure at all"}, wrapText("no measure at all", 1, nil))

	got := wrapText("ab ééééééééééééé cd", 10, measure)
	assert.Equal(t, []string{"ab", "    éééééé", "    éééééé", "    é cd"}, got)
	for _, l := range got {
		assert.True(t, utf8.ValidString(l))
		assert.LessOrEqual(t, measure(l), 10.0)
	}
}

func TestOverlayLines(t *testing.T) {
	fields := []entity.FormField{
		entity.NewFormField("patient_name", "Jane", 1.0, nil),
		entity.NewFormField("patient_dob", "01/02/1990", 0.5, nil),
		entity.NotFound("member_id"),
	}
	lines := overlayLines(fields, fixedNow)
	require.Len(t, lines, 7)
	assert.Equal(t, strings.Repeat("=", 60), lines[0])
	assert.Equal(t, "EXTRACTED INFORMATION FROM REFERRAL PACKAGE", lines[1])
	assert.Equal(t, "Generated: 2024-03-09 14:05:07", lines[2])
	assert.Equal(t, "", lines[4])
	assert.Equal(t, "patient_name: Jane", lines[5])
	assert.Equal(t, "patient_dob: 01/02/1990 (confidence: 50%)", lines[6])

	assert.Nil(t, overlayLines([]entity.FormField{entity.NotFound("x")}, fixedNow))
}
