package fill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
)

// FillMode says how the output form was produced.
type FillMode string

const (
	FillModeFormFields FillMode = "form_fields"
	FillModeOverlay    FillMode = "overlay"
	FillModeCopy       FillMode = "copy"
)

type FillOutcome struct {
	Mode           FillMode `json:"mode"`
	FilledWidgets  int      `json:"filled_widgets"`
	OverlayEntries int      `json:"overlay_entries"`
}

// Filler writes extracted values into PDF forms and renders extraction reports.
type Filler struct {
	backend FormBackend
	aliases []Alias
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*Filler)

func WithAliases(a []Alias) Option {
	return func(f *Filler) { f.aliases = a }
}

// WithClock fixes the timestamp printed on generated pages.
func WithClock(now func() time.Time) Option {
	return func(f *Filler) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFiller fails with common.ErrCapabilityUnavailable when backend is nil.
func NewFiller(backend FormBackend, logger *slog.Logger, opts ...Option) (*Filler, error) {
	if backend == nil {
		return nil, common.CapabilityError("form filler", "pdf form backend")
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &Filler{backend: backend, aliases: DefaultAliases, now: time.Now, log: logger}
	for _, o := range opts {
		o(f)
	}
	return f, nil
}

// NewDefaultFiller uses the pdfcpu backend.
func NewDefaultFiller(logger *slog.Logger, opts ...Option) (*Filler, error) {
	return NewFiller(NewPDFCPUBackend(), logger, opts...)
}

// FillForm writes template to output with FILLED values placed into matching
// form fields. Widgets are matched by exact name, then mapping, then MatchField.
// When no widget can be filled, a page listing the extracted values is
// appended instead; with nothing to list the template is copied unchanged.
func (f *Filler) FillForm(ctx context.Context, template, output string, fields []entity.FormField, mapping map[string]string) (FillOutcome, error) {
	if err := ctx.Err(); err != nil {
		return FillOutcome{}, err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return FillOutcome{}, fmt.Errorf("create output dir: %w", err)
	}
	start := time.Now()

	values := map[string]string{}
	var known []string
	for _, fld := range fields {
		if fld.Status == constants.FieldFilled && fld.Value != nil && *fld.Value != "" {
			if _, dup := values[fld.Name]; !dup {
				known = append(known, fld.Name)
			}
			values[fld.Name] = *fld.Value
		}
	}

	widgets, err := f.backend.Widgets(template)
	if err != nil {
		f.log.Warn("fill.widgets_failed", "template", template, "error", err)
	}
	assign := f.assign(widgets, values, known, mapping)

	if len(assign) > 0 {
		n, err := f.backend.FillWidgets(template, output, assign)
		if err != nil {
			f.log.Error("fill.form_failed", "template", template, "output", output, "error", err)
			return FillOutcome{}, fmt.Errorf("fill form fields: %w", err)
		}
		if n > 0 {
			f.log.Info("fill.form.ok",
				"output", output,
				"widgets", len(widgets),
				"filled", n,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return FillOutcome{Mode: FillModeFormFields, FilledWidgets: n}, nil
		}
	}

	lines := overlayLines(fields, f.now())
	if len(lines) == 0 {
		if err := copyFile(template, output); err != nil {
			return FillOutcome{}, err
		}
		f.log.Info("fill.copy.ok", "output", output, "reason", "no values to write")
		return FillOutcome{Mode: FillModeCopy}, nil
	}

	f.log.Info("fill.overlay.start", "template", template, "widgets", len(widgets))
	tmp, err := os.MkdirTemp("", "pa-overlay-*")
	if err != nil {
		return FillOutcome{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	overlay := filepath.Join(tmp, "overlay.pdf")
	if err := renderOverlay(lines, overlay); err != nil {
		return FillOutcome{}, err
	}
	if err := f.backend.Merge(output, template, overlay); err != nil {
		f.log.Error("fill.overlay_failed", "output", output, "error", err)
		return FillOutcome{}, err
	}
	entries := len(lines) - 5
	f.log.Info("fill.overlay.ok", "output", output, "entries", entries, "elapsed_ms", time.Since(start).Milliseconds())
	return FillOutcome{Mode: FillModeOverlay, OverlayEntries: entries}, nil
}

func (f *Filler) assign(widgets []entity.FormWidget, values map[string]string, known []string, mapping map[string]string) map[string]string {
	assign := map[string]string{}
	for _, w := range widgets {
		if w.Type == "Btn" || w.Type == "Sig" {
			continue
		}
		var v string
		if direct, ok := values[w.Name]; ok {
			v = direct
		} else if target, ok := mapping[w.Name]; ok {
			v = values[target]
		} else if name, ok := MatchField(w.Name, known, f.aliases); ok {
			v = values[name]
		}
		if v == "" {
			continue
		}
		assign[w.Name] = v
		f.log.Debug("fill.widget.matched", "widget", w.Name, "value_len", len(v))
	}
	return assign
}

// CreateReport renders the extraction report for a folder.
func (f *Filler) CreateReport(ctx context.Context, output string, fields []entity.FormField, folder string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	pages := reportLayout(fields, folder, f.now(), pageHeight, textMeasure())
	if err := renderPages(pages, output); err != nil {
		f.log.Error("fill.report_failed", "output", output, "error", err)
		return err
	}
	f.log.Info("fill.report.ok", "output", output, "pages", len(pages))
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open template: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy template: %w", err)
	}
	return out.Close()
}
