package pdf

import "strings"

const (
	// cellGap is the horizontal whitespace, in points, that separates two cells.
	cellGap = 12.0

	minTableRows = 2
	minTableCols = 2
)

// Cells groups a line's spans into cells split at wide horizontal gaps.
func Cells(line Line) []string {
	var cells []string
	var cur strings.Builder
	end := 0.0
	for i, s := range line {
		if i > 0 && s.X-end > cellGap {
			if c := strings.TrimSpace(cur.String()); c != "" {
				cells = append(cells, c)
			}
			cur.Reset()
		}
		cur.WriteString(s.Text)
		if e := s.X + s.W; e > end || i == 0 {
			end = e
		}
	}
	if c := strings.TrimSpace(cur.String()); c != "" {
		cells = append(cells, c)
	}
	return cells
}

// DetectTables finds runs of consecutive multi-cell lines. Each run of at
// least two lines becomes one table of rows of cells.
func DetectTables(lines []Line) [][][]string {
	var tables [][][]string
	var run [][]string
	flush := func() {
		if len(run) >= minTableRows {
			tables = append(tables, run)
		}
		run = nil
	}
	for _, ln := range lines {
		cells := Cells(ln)
		if len(cells) >= minTableCols {
			run = append(run, cells)
			continue
		}
		flush()
	}
	flush()
	return tables
}
