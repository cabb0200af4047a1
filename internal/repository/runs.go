package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RunRecord is one stored folder run.
type RunRecord struct {
	ID             string        `json:"id"`
	Folder         string        `json:"folder"`
	Success        bool          `json:"success"`
	TotalFields    int           `json:"total_fields"`
	FilledCount    int           `json:"filled_count"`
	UncertainCount int           `json:"uncertain_count"`
	UnfilledCount  int           `json:"unfilled_count"`
	CompletionRate float64       `json:"completion_rate"`
	ProcessingMS   int64         `json:"processing_ms"`
	OutputPath     string        `json:"output_path,omitempty"`
	ReportPath     string        `json:"report_path,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	Fields         []FieldRecord `json:"fields,omitempty"`
}

// FieldRecord is one field outcome of a stored run.
type FieldRecord struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
}

type RunRepository interface {
	Save(ctx context.Context, result entity.ProcessingResult) error
	ListByFolder(ctx context.Context, folder string, limit int) ([]RunRecord, error)
	Fields(ctx context.Context, runID string) ([]FieldRecord, error)
}

type runRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRunRepository(db *DB, log *slog.Logger) RunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &runRepo{db: db, log: log}
}

func (r *runRepo) Save(ctx context.Context, res entity.ProcessingResult) error {
	id := res.RunID
	if id == "" {
		id = uuid.NewString()
	}
	created := res.Timestamp
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := r.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("STORE_ERROR", "begin run insert", fmt.Errorf("%w: %v", common.ErrStore, err))
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, r.db.Rebind(`INSERT INTO processing_runs
		(id, folder, success, total_fields, filled_count, uncertain_count, unfilled_count,
		 completion_rate, processing_ms, output_path, report_path, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, res.PatientFolder, boolInt(res.Success), res.TotalFields(),
		len(res.FilledFields), len(res.UncertainFields), len(res.UnfilledFields),
		res.CompletionRate(), res.ProcessingTime.Milliseconds(),
		res.OutputPath, res.ReportPath, res.ErrorMessage,
		created.UTC().Format(timeLayout),
	)
	if err != nil {
		r.log.Error("store.run.save_failed", "folder", res.PatientFolder, "error", err)
		return common.NewAppError("STORE_ERROR", "insert run", fmt.Errorf("%w: %v", common.ErrStore, err))
	}

	pos := 0
	for _, group := range [][]entity.FormField{res.FilledFields, res.UncertainFields, res.UnfilledFields} {
		for _, f := range group {
			_, err := tx.ExecContext(ctx, r.db.Rebind(`INSERT INTO processing_run_fields
				(run_id, position, name, status, value, confidence) VALUES (?, ?, ?, ?, ?, ?)`),
				id, pos, f.Name, string(f.Status), nullString(f.Value), f.Confidence,
			)
			if err != nil {
				r.log.Error("store.run.save_field_failed", "folder", res.PatientFolder, "field", f.Name, "error", err)
				return common.NewAppError("STORE_ERROR", "insert run field", fmt.Errorf("%w: %v", common.ErrStore, err))
			}
			pos++
		}
	}

	if err := tx.Commit(); err != nil {
		return common.NewAppError("STORE_ERROR", "commit run", fmt.Errorf("%w: %v", common.ErrStore, err))
	}
	r.log.Info("store.run.saved", "run_id", id, "folder", res.PatientFolder, "success", res.Success, "fields", pos)
	return nil
}

// ListByFolder returns the newest runs first. limit <= 0 means 20.
func (r *runRepo) ListByFolder(ctx context.Context, folder string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(`SELECT id, folder, success, total_fields, filled_count,
		uncertain_count, unfilled_count, completion_rate, processing_ms, output_path, report_path,
		error_message, created_at
		FROM processing_runs WHERE folder = ? ORDER BY created_at DESC, id DESC LIMIT ?`), folder, limit)
	if err != nil {
		return nil, common.NewAppError("STORE_ERROR", "list runs", fmt.Errorf("%w: %v", common.ErrStore, err))
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var success int
		var created string
		if err := rows.Scan(&rec.ID, &rec.Folder, &success, &rec.TotalFields, &rec.FilledCount,
			&rec.UncertainCount, &rec.UnfilledCount, &rec.CompletionRate, &rec.ProcessingMS,
			&rec.OutputPath, &rec.ReportPath, &rec.ErrorMessage, &created); err != nil {
			return nil, common.NewAppError("STORE_ERROR", "scan run", fmt.Errorf("%w: %v", common.ErrStore, err))
		}
		rec.Success = success != 0
		if t, err := time.Parse(timeLayout, created); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewAppError("STORE_ERROR", "iterate runs", fmt.Errorf("%w: %v", common.ErrStore, err))
	}
	return out, nil
}

func (r *runRepo) Fields(ctx context.Context, runID string) ([]FieldRecord, error) {
	rows, err := r.db.SQL.QueryContext(ctx, r.db.Rebind(`SELECT name, status, value, confidence
		FROM processing_run_fields WHERE run_id = ? ORDER BY position`), runID)
	if err != nil {
		return nil, common.NewAppError("STORE_ERROR", "list run fields", fmt.Errorf("%w: %v", common.ErrStore, err))
	}
	defer rows.Close()

	var out []FieldRecord
	for rows.Next() {
		var f FieldRecord
		var v sql.NullString
		if err := rows.Scan(&f.Name, &f.Status, &v, &f.Confidence); err != nil {
			return nil, common.NewAppError("STORE_ERROR", "scan run field", fmt.Errorf("%w: %v", common.ErrStore, err))
		}
		if v.Valid {
			s := v.String
			f.Value = &s
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
