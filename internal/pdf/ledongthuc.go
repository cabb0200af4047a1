package pdf

import (
	"fmt"
	"sort"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// PlainTextReader reads page text with github.com/ledongthuc/pdf.
type PlainTextReader struct{}

func (PlainTextReader) PageTexts(path string) (texts []string, err error) {
	defer recoverInto(&err, "read text")

	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	texts = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		texts = append(texts, s)
	}
	return texts, nil
}

func (PlainTextReader) PageLines(path string) (pages [][]Line, err error) {
	defer recoverInto(&err, "read rows")

	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages = make([][]Line, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, nil)
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		lines := make([]Line, 0, len(rows))
		for _, row := range rows {
			line := make(Line, 0, len(row.Content))
			for _, t := range row.Content {
				if strings.TrimSpace(t.S) == "" && t.W == 0 {
					continue
				}
				line = append(line, Span{X: t.X, W: t.W, Text: t.S})
			}
			sort.SliceStable(line, func(a, b int) bool { return line[a].X < line[b].X })
			lines = append(lines, line)
		}
		pages = append(pages, lines)
	}
	return pages, nil
}

// recoverInto turns a panic from a PDF parser into an error.
func recoverInto(err *error, op string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: pdf parser panic: %v", op, r)
	}
}
