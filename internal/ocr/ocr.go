package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Tesseract     string // binary name or absolute path; default "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string

	PSM int // page segmentation mode, 0 = tesseract default
	OEM int // engine mode, 0 = tesseract default

	EnableTSVConfidence bool
}

// PageText is the OCR output for one page image.
type PageText struct {
	PageNumber int
	Text       string
	Confidence float32 // mean word confidence 0..1, 0 when not measured
}

// Engine runs tesseract over rendered page images.
type Engine struct {
	cfg    Config
	runner Runner
	log    *slog.Logger
}

type Option func(*Engine)

// WithRunner replaces the os/exec runner.
func WithRunner(r Runner) Option {
	return func(e *Engine) {
		if r != nil {
			e.runner = r
		}
	}
}

func NewEngine(cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	e := &Engine{cfg: cfg, runner: execRunner{log: logger}, log: logger}
	for _, o := range opts {
		o(e)
	}
	return e
}

// RecognizeBase64Pages decodes base64 PNG pages and OCRs them in order.
// Pages that fail are skipped and reported in the returned warnings.
func (e *Engine) RecognizeBase64Pages(ctx context.Context, pages []string) ([]PageText, []string, error) {
	tmpDir, err := os.MkdirTemp("", "pa-ocr-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.log.Warn("ocr.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	start := time.Now()
	var out []PageText
	var warns []string
	for i, b64 := range pages {
		if err := ctx.Err(); err != nil {
			return out, warns, err
		}
		pageNo := i + 1
		png, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			warns = append(warns, fmt.Sprintf("page %d: decode image: %v", pageNo, err))
			continue
		}
		path := filepath.Join(tmpDir, fmt.Sprintf("page-%03d.png", pageNo))
		if err := os.WriteFile(path, png, 0o600); err != nil {
			warns = append(warns, fmt.Sprintf("page %d: write image: %v", pageNo, err))
			continue
		}

		pt, err := e.RecognizeFile(ctx, path)
		if err != nil {
			warns = append(warns, fmt.Sprintf("page %d: %v", pageNo, err))
			continue
		}
		pt.PageNumber = pageNo
		out = append(out, pt)
	}

	e.log.Info("ocr.pages.done",
		"pages", len(pages),
		"recognized", len(out),
		"warnings", len(warns),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, warns, nil
}

// RecognizeFile OCRs one image file.
func (e *Engine) RecognizeFile(ctx context.Context, path string) (PageText, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.args(path)...)
	if err != nil {
		return PageText{}, fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	pt := PageText{Text: Normalize(string(out))}

	if e.cfg.EnableTSVConfidence {
		conf, err := e.tsvConfidence(ctx, path)
		if err != nil {
			e.log.Warn("ocr.tsv_confidence_failed", "path", path, "error", err)
		} else {
			pt.Confidence = conf
		}
	}
	return pt, nil
}

func (e *Engine) args(path string, extra ...string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return append(args, extra...)
}

// tsvConfidence runs tesseract in TSV mode and returns the mean word confidence in 0..1.
func (e *Engine) tsvConfidence(ctx context.Context, path string) (float32, error) {
	out, _, err := e.runner.Run(ctx, e.cfg.Tesseract, e.args(path, "tsv")...)
	if err != nil {
		return 0, fmt.Errorf("tesseract tsv: %w", err)
	}
	return MeanTSVConfidence(string(out)), nil
}

// MeanTSVConfidence averages the conf column of tesseract TSV output, skipping
// the header and non-word rows (conf -1).
func MeanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		c := cols[10]
		if c == "" || c == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(c, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}

// JoinPages joins OCR page texts the same way extracted PDF text is joined.
func JoinPages(pages []PageText) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.Text) != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
