package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

const (
	SummarySheet = "Summary"
	FieldsSheet  = "Fields"

	maxCellText = 500
)

// Service renders batch results as XLSX workbooks.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// BatchWorkbook returns an XLSX workbook (as bytes) with one Summary row per
// folder and one Fields row per extracted field, in result order.
func (s *Service) BatchWorkbook(batch entity.BatchProcessingResult) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return nil, fmt.Errorf("xlsx summary sheet: %w", err)
	}
	if _, err := f.NewSheet(FieldsSheet); err != nil {
		return nil, fmt.Errorf("xlsx fields sheet: %w", err)
	}
	idx, _ := f.GetSheetIndex(SummarySheet)
	f.SetActiveSheet(idx)

	writeRow(f, SummarySheet, 1, []any{
		"Folder", "Success", "Filled", "Uncertain", "Unfilled",
		"Completion Rate", "Seconds", "Output Path", "Error",
	})
	writeRow(f, FieldsSheet, 1, []any{"Folder", "Field", "Status", "Value", "Confidence"})

	fieldRow := 2
	for i, r := range batch.Results {
		writeRow(f, SummarySheet, i+2, []any{
			r.PatientFolder,
			yesNo(r.Success),
			len(r.FilledFields),
			len(r.UncertainFields),
			len(r.UnfilledFields),
			r.CompletionRate(),
			r.ProcessingTime.Seconds(),
			r.OutputPath,
			truncate(r.ErrorMessage, maxCellText),
		})

		for _, group := range [][]entity.FormField{r.FilledFields, r.UncertainFields, r.UnfilledFields} {
			for _, fld := range group {
				writeRow(f, FieldsSheet, fieldRow, []any{
					r.PatientFolder,
					fld.Name,
					string(fld.Status),
					truncate(fld.ValueOr(""), maxCellText),
					fld.Confidence,
				})
				fieldRow++
			}
		}
	}

	pct, err := f.NewStyle(&excelize.Style{NumFmt: 9})
	if err == nil && len(batch.Results) > 0 {
		_ = f.SetCellStyle(SummarySheet, "F2", fmt.Sprintf("F%d", len(batch.Results)+1), pct)
	}

	_ = f.SetColWidth(SummarySheet, "A", "A", 24) // folder
	_ = f.SetColWidth(SummarySheet, "B", "G", 12)
	_ = f.SetColWidth(SummarySheet, "H", "H", 60) // output
	_ = f.SetColWidth(SummarySheet, "I", "I", 48) // error
	_ = f.SetColWidth(FieldsSheet, "A", "A", 24)
	_ = f.SetColWidth(FieldsSheet, "B", "B", 26)
	_ = f.SetColWidth(FieldsSheet, "C", "C", 12)
	_ = f.SetColWidth(FieldsSheet, "D", "D", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"folders", len(batch.Results),
		"field_rows", fieldRow-2,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteBatchWorkbook writes the workbook to path, creating parent directories.
func (s *Service) WriteBatchWorkbook(path string, batch entity.BatchProcessingResult) error {
	data, err := s.BatchWorkbook(batch)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	s.logger.Info("export.xlsx.written", "path", path, "bytes", len(data))
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
