package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(spans ...Span) Line { return Line(spans) }

func TestCells(t *testing.T) {
	line := words(
		Span{X: 10, W: 30, Text: "Member"},
		Span{X: 42, W: 10, Text: " ID"},
		Span{X: 120, W: 40, Text: "12345"},
	)
	assert.Equal(t, []string{"Member ID", "12345"}, Cells(line))
	assert.Empty(t, Cells(nil))
	assert.Equal(t, []string{"one"}, Cells(words(Span{X: 0, W: 10, Text: " one "})))
}

func TestDetectTables(t *testing.T) {
	row := func(a, b string) Line {
		return words(Span{X: 0, W: 40, Text: a}, Span{X: 100, W: 40, Text: b})
	}
	para := words(Span{X: 0, W: 300, Text: "Clinical notes follow."})

	lines := []Line{
		para,
		row("Code", "Description"),
		row("M54.5", "Low back pain"),
		row("99213", "Office visit"),
		para,
		row("lonely", "row"),
		para,
		row("CPT", "Units"),
		row("97110", "4"),
	}

	got := DetectTables(lines)
	assert.Equal(t, [][][]string{
		{{"Code", "Description"}, {"M54.5", "Low back pain"}, {"99213", "Office visit"}},
		{{"CPT", "Units"}, {"97110", "4"}},
	}, got)
}

func TestFieldTypeLabel(t *testing.T) {
	assert.Equal(t, "text", FieldTypeLabel("Tx"))
	assert.Equal(t, "button", FieldTypeLabel("/Btn"))
	assert.Equal(t, "choice", FieldTypeLabel("Ch"))
	assert.Equal(t, "signature", FieldTypeLabel("Sig"))
	assert.Equal(t, "unknown", FieldTypeLabel(""))
}
