package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/async"
	"github.com/joseph-ayodele/pa-autofill/internal/chunk"
	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
	"github.com/joseph-ayodele/pa-autofill/internal/fill"
	"github.com/joseph-ayodele/pa-autofill/internal/llm"
	"github.com/joseph-ayodele/pa-autofill/internal/llm/providers"
	"github.com/joseph-ayodele/pa-autofill/internal/ocr"
	"github.com/joseph-ayodele/pa-autofill/internal/pdf"
	"github.com/joseph-ayodele/pa-autofill/internal/retrieval"
)

// DocumentExtractor reads the referral package.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, path string) string
	ExtractPages(ctx context.Context, path string) []entity.Page
	PageImages(ctx context.Context, path string) []string
}

// FieldExtractor asks a model for template field values.
type FieldExtractor interface {
	ExtractFromText(ctx context.Context, docContext string, fields []string, descriptions map[string]string) ([]entity.FormField, error)
	ExtractFromImages(ctx context.Context, images []string, fields []string, descriptions map[string]string, extraContext string) ([]entity.FormField, error)
}

// FormFiller writes the filled PA form and the extraction report.
type FormFiller interface {
	FillForm(ctx context.Context, template, output string, fields []entity.FormField, mapping map[string]string) (fill.FillOutcome, error)
	CreateReport(ctx context.Context, output string, fields []entity.FormField, folder string) error
}

// PageRecognizer OCRs base64 PNG page images.
type PageRecognizer interface {
	RecognizeBase64Pages(ctx context.Context, pages []string) ([]ocr.PageText, []string, error)
}

// RunRecorder persists finished folder results.
type RunRecorder interface {
	Save(ctx context.Context, result entity.ProcessingResult) error
}

// Deps are the collaborators of a Processor. OCR and Recorder are optional.
type Deps struct {
	Extractor DocumentExtractor
	Fields    FieldExtractor
	Filler    FormFiller
	OCR       PageRecognizer
	Recorder  RunRecorder
}

// Processor runs the referral-to-PA-form pipeline for patient folders.
type Processor struct {
	cfg  common.Config
	deps Deps

	chunker     chunk.Chunker
	template    entity.PAFormTemplate
	batchVision bool
	now         func() time.Time
	log         *slog.Logger
}

type Option func(*Processor)

// WithBatchVision sets whether batch runs may fall back to page images. Default true.
func WithBatchVision(v bool) Option {
	return func(p *Processor) { p.batchVision = v }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// New validates deps; a missing required collaborator is a capability error.
func New(cfg *common.Config, deps Deps, logger *slog.Logger, opts ...Option) (*Processor, error) {
	if cfg == nil {
		return nil, common.NewAppError("CONFIG_ERROR", "processor config is nil", common.ErrInvalidInput)
	}
	switch {
	case deps.Extractor == nil:
		return nil, common.CapabilityError("processor", "document extractor")
	case deps.Fields == nil:
		return nil, common.CapabilityError("processor", "field extractor")
	case deps.Filler == nil:
		return nil, common.CapabilityError("processor", "form filler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		cfg:         *cfg.Clone(),
		deps:        deps,
		chunker:     chunk.New(cfg.Processing.ChunkSize, cfg.Processing.ChunkOverlap),
		template:    entity.StandardTemplate(),
		batchVision: true,
		now:         time.Now,
		log:         logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// NewFromConfig wires the default PDF, model, form and OCR backends.
// recorder may be nil.
func NewFromConfig(cfg *common.Config, logger *slog.Logger, recorder RunRecorder, opts ...Option) (*Processor, error) {
	if cfg == nil {
		return nil, common.NewAppError("CONFIG_ERROR", "processor config is nil", common.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	provider, err := providers.New(cfg.AI, logger)
	if err != nil {
		return nil, err
	}
	client, err := llm.NewClient(provider, logger, llm.WithMaxImages(cfg.Processing.MaxImages))
	if err != nil {
		return nil, err
	}
	extractor, err := pdf.NewDefaultExtractor(logger,
		pdf.WithDPI(cfg.Processing.DPI),
		pdf.WithMaxImageDimension(cfg.Processing.MaxImageDimension),
	)
	if err != nil {
		return nil, err
	}
	aliases, err := fill.ParseAliases(cfg.Processing.FieldAliases)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "FIELD_ALIASES: "+err.Error(), common.ErrInvalidInput)
	}
	var fillOpts []fill.Option
	if len(aliases) > 0 {
		fillOpts = append(fillOpts, fill.WithAliases(append(append([]fill.Alias{}, fill.DefaultAliases...), aliases...)))
	}
	filler, err := fill.NewDefaultFiller(logger, fillOpts...)
	if err != nil {
		return nil, err
	}
	deps := Deps{Extractor: extractor, Fields: client, Filler: filler}
	if cfg.Processing.UseOCR {
		deps.OCR = ocr.NewEngine(ocr.Config{Tesseract: cfg.Processing.TesseractBin}, logger)
	}
	if recorder != nil {
		deps.Recorder = recorder
	}
	return New(cfg, deps, logger, opts...)
}

// Config returns a copy of the processor's configuration.
func (p *Processor) Config() common.Config { return *p.cfg.Clone() }

func (p *Processor) stage(folder string, s constants.Stage, args ...any) {
	p.log.Info("pipeline."+string(s), append([]any{"folder", folder}, args...)...)
}

// ProcessFolder runs one patient folder end to end. It never returns an
// error: every failure, including a panic, ends up in ErrorMessage.
func (p *Processor) ProcessFolder(ctx context.Context, dir string, useVision bool) (res entity.ProcessingResult) {
	start := p.now()
	folder := filepath.Base(dir)
	ctx = common.WithFolder(ctx, folder)
	res = entity.ProcessingResult{
		RunID:         uuid.NewString(),
		PatientFolder: folder,
		Timestamp:     start,
	}

	defer func() {
		if r := recover(); r != nil {
			p.log.Error("pipeline.panic", "folder", folder, "panic", r, "stack", string(debug.Stack()))
			res.Success = false
			res.ErrorMessage = fmt.Sprintf("unexpected error: %v", r)
		}
		res.ProcessingTime = p.now().Sub(start)
		if !res.Success {
			p.stage(folder, constants.StageFailed, "error", res.ErrorMessage, "elapsed_ms", res.ProcessingTime.Milliseconds())
		} else {
			p.stage(folder, constants.StageDone,
				"filled", len(res.FilledFields),
				"uncertain", len(res.UncertainFields),
				"unfilled", len(res.UnfilledFields),
				"elapsed_ms", res.ProcessingTime.Milliseconds(),
			)
		}
		p.record(ctx, res)
	}()

	if err := p.run(ctx, dir, useVision, &res); err != nil {
		res.ErrorMessage = err.Error()
		return res
	}
	res.Success = true
	return res
}

func (p *Processor) run(ctx context.Context, dir string, useVision bool, res *entity.ProcessingResult) error {
	folder := res.PatientFolder

	// locate inputs
	p.stage(folder, constants.StageLocateInputs, "dir", dir)
	res.PAFormPath = FindPAForm(dir)
	res.ReferralPackagePath = FindReferralPackage(dir)
	if res.PAFormPath == "" || res.ReferralPackagePath == "" {
		return fmt.Errorf("Missing files: PA form=%t, Referral=%t", res.PAFormPath != "", res.ReferralPackagePath != "")
	}

	// extract text
	p.stage(folder, constants.StageExtractText, "referral", res.ReferralPackagePath)
	text := p.deps.Extractor.ExtractText(ctx, res.ReferralPackagePath)
	var pages []entity.Page
	if isBlank(text) && !useVision && p.deps.OCR != nil {
		text, pages = p.ocrText(ctx, res)
	} else if !isBlank(text) {
		pages = p.deps.Extractor.ExtractPages(ctx, res.ReferralPackagePath)
	}

	fields := p.template.Fields
	desc := p.template.Descriptions

	var extracted []entity.FormField
	var err error
	if isBlank(text) && useVision {
		images := p.deps.Extractor.PageImages(ctx, res.ReferralPackagePath)
		p.stage(folder, constants.StageExtractFields, "mode", "vision", "images", len(images))
		extracted, err = p.deps.Fields.ExtractFromImages(ctx, images, fields, desc, "")
	} else {
		docContext := p.buildContext(folder, text, pages)
		p.stage(folder, constants.StageExtractFields, "mode", "text", "context_chars", len(docContext))
		extracted, err = p.deps.Fields.ExtractFromText(ctx, docContext, fields, desc)
	}
	if err != nil {
		return fmt.Errorf("field extraction: %w", err)
	}

	p.stage(folder, constants.StageCategorize)
	res.Categorize(extracted)

	// fill form
	outDir := filepath.Join(p.cfg.Paths.OutputDir, folder)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	outPath := filepath.Join(outDir, constants.FilledFormName(folder))
	p.stage(folder, constants.StageFillForm, "output", outPath)
	outcome, err := p.deps.Filler.FillForm(ctx, res.PAFormPath, outPath, extracted, nil)
	if err != nil {
		return fmt.Errorf("fill form: %w", err)
	}
	res.OutputPath = outPath
	p.log.Info("pipeline.fill_form.ok", "folder", folder, "mode", outcome.Mode, "widgets", outcome.FilledWidgets)

	reportPath := filepath.Join(outDir, constants.ReportName(folder))
	if err := p.deps.Filler.CreateReport(ctx, reportPath, extracted, folder); err != nil {
		p.log.Warn("pipeline.report.failed", "folder", folder, "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("report: %v", err))
	} else {
		res.ReportPath = reportPath
	}
	return nil
}

func (p *Processor) buildContext(folder, text string, pages []entity.Page) string {
	r := p.index(folder, text, pages)
	perField := r.RetrieveForFields(p.template.Fields, p.template.Descriptions, p.cfg.Processing.TopK)
	return retrieval.BuildContext(text, perField, p.template.Fields, p.cfg.Processing.ContextPrefixLen)
}

// index chunks the referral page by page. When no page carries text the whole
// text is treated as page 1.
func (p *Processor) index(folder, text string, pages []entity.Page) *retrieval.Retriever {
	if !hasPageText(pages) {
		pages = []entity.Page{{PageNumber: 1, Text: text}}
	}
	chunks := p.chunker.ChunkPages(pages)
	// one Retriever per folder; they are not safe to share between workers
	r := retrieval.New()
	r.Index(chunks)
	p.stage(folder, constants.StageIndexChunks, "pages", len(pages), "chunks", len(chunks))
	return r
}

func hasPageText(pages []entity.Page) bool {
	for _, pg := range pages {
		if !isBlank(pg.Text) {
			return true
		}
	}
	return false
}

func (p *Processor) ocrText(ctx context.Context, res *entity.ProcessingResult) (string, []entity.Page) {
	start := time.Now()
	images := p.deps.Extractor.PageImages(ctx, res.ReferralPackagePath)
	if len(images) == 0 {
		res.Warnings = append(res.Warnings, "ocr: no page images")
		return "", nil
	}
	pages, warns, err := p.deps.OCR.RecognizeBase64Pages(ctx, images)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		p.log.Warn("pipeline.ocr.failed", "folder", res.PatientFolder, "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("ocr: %v", err))
		return "", nil
	}
	text := ocr.JoinPages(pages)
	out := make([]entity.Page, 0, len(pages))
	for _, pt := range pages {
		out = append(out, entity.Page{PageNumber: pt.PageNumber, Text: pt.Text})
	}
	p.log.Info("pipeline.ocr.ok", "folder", res.PatientFolder, "pages", len(pages), "chars", len(text), "elapsed_ms", time.Since(start).Milliseconds())
	return text, out
}

func (p *Processor) record(ctx context.Context, res entity.ProcessingResult) {
	if p.deps.Recorder == nil {
		return
	}
	// the folder result stands even if the caller's context is already done
	if err := p.deps.Recorder.Save(context.WithoutCancel(ctx), res); err != nil {
		p.log.Warn("pipeline.record.failed", "folder", res.PatientFolder, "error", err)
	}
}

// ProcessAll processes every subdirectory of inputDir.
func (p *Processor) ProcessAll(ctx context.Context, inputDir string, parallel bool) (entity.BatchProcessingResult, error) {
	names, err := subdirs(inputDir)
	if err != nil {
		return entity.BatchProcessingResult{}, err
	}
	dirs := make([]string, 0, len(names))
	for _, n := range names {
		dirs = append(dirs, filepath.Join(inputDir, n))
	}
	return p.processBatch(ctx, dirs, parallel), nil
}

// ProcessFolders processes the named folders of the configured input directory.
// Unknown names are rejected before any folder is processed.
func (p *Processor) ProcessFolders(ctx context.Context, names []string, parallel bool) (entity.BatchProcessingResult, error) {
	dirs := make([]string, 0, len(names))
	var unknown []string
	for _, n := range names {
		dir, ok := p.FolderPath(n)
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		dirs = append(dirs, dir)
	}
	if len(unknown) > 0 {
		return entity.BatchProcessingResult{}, common.NewAppError("INVALID_INPUT",
			"unknown folders: "+strings.Join(unknown, ", "), common.ErrInvalidInput)
	}
	return p.processBatch(ctx, dirs, parallel), nil
}

// FolderPath resolves a folder name inside the input directory.
func (p *Processor) FolderPath(name string) (string, bool) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	dir := filepath.Join(p.cfg.Paths.InputDir, name)
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return "", false
	}
	return dir, true
}

func (p *Processor) processBatch(ctx context.Context, dirs []string, parallel bool) entity.BatchProcessingResult {
	start := p.now()
	batch := entity.BatchProcessingResult{Timestamp: start}
	p.log.Info("pipeline.batch.start", "folders", len(dirs), "parallel", parallel, "workers", p.cfg.Processing.MaxWorkers)

	if !parallel || len(dirs) <= 1 {
		for _, dir := range dirs {
			batch.Results = append(batch.Results, p.ProcessFolder(ctx, dir, p.batchVision))
		}
	} else {
		tasks := make([]async.Task[entity.ProcessingResult], 0, len(dirs))
		for _, dir := range dirs {
			tasks = append(tasks, async.Task[entity.ProcessingResult]{
				ID: filepath.Base(dir),
				Run: func(ctx context.Context) (entity.ProcessingResult, error) {
					return p.ProcessFolder(ctx, dir, p.batchVision), nil
				},
			})
		}
		for _, o := range async.RunAll(ctx, p.log, tasks,
			async.WithWorkers(p.cfg.Processing.MaxWorkers),
			async.WithQueueSize(len(tasks)),
		) {
			if o.Err != nil {
				batch.Results = append(batch.Results, entity.ProcessingResult{
					PatientFolder:  o.ID,
					ErrorMessage:   o.Err.Error(),
					ProcessingTime: o.Elapsed,
					Timestamp:      start,
				})
				continue
			}
			batch.Results = append(batch.Results, o.Value)
		}
	}

	batch.TotalTime = p.now().Sub(start)
	p.log.Info("pipeline.batch.done",
		"folders", len(batch.Results),
		"successful", batch.Successful(),
		"elapsed_ms", batch.TotalTime.Milliseconds(),
	)
	return batch
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
