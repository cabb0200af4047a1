package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/export"
	"github.com/joseph-ayodele/pa-autofill/internal/pipeline"
	"github.com/joseph-ayodele/pa-autofill/internal/repository"
	"github.com/joseph-ayodele/pa-autofill/internal/server"
	"github.com/joseph-ayodele/pa-autofill/internal/watch"
)

// errRunFailed makes the process exit 1 after the summaries were printed.
var errRunFailed = errors.New("processing failed")

type options struct {
	folder   string
	all      bool
	list     bool
	vision   bool
	noVision bool
	parallel bool
	workers  int
	watch    bool

	serve bool
	host  string
	port  int

	openAIKey      string
	anthropicKey   string
	provider       string
	openAIModel    string
	anthropicModel string
	inputDir       string
	outputDir      string
	logLevel       string
}

func newRootCmd(out io.Writer) *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "pa-autofill",
		Short: "Fill prior-authorization forms from referral packages",
		Long: `pa-autofill extracts patient, provider, diagnosis and procedure details from
a referral package PDF and writes them into the matching PA form.

Each patient folder under the input directory holds a PA form (PA.pdf) and a
referral package (referral_package.pdf). Results are written to
<output-dir>/<folder>/.`,
		Example: `  pa-autofill --list
  pa-autofill --folder Adbulla
  pa-autofill --all --parallel --workers 4
  pa-autofill --server --port 8000
  pa-autofill --all --provider anthropic --anthropic-key KEY`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, out, o)
		},
	}

	cmd.SetOut(out)

	f := cmd.Flags()
	f.StringVarP(&o.folder, "folder", "f", "", "process a specific patient folder")
	f.BoolVarP(&o.all, "all", "a", false, "process all patient folders")
	f.BoolVarP(&o.list, "list", "l", false, "list available folders")
	f.BoolVar(&o.vision, "vision", true, "use page images when a referral has no text layer")
	f.BoolVar(&o.noVision, "no-vision", false, "disable the vision path")
	f.BoolVarP(&o.parallel, "parallel", "p", false, "process folders in parallel")
	f.IntVar(&o.workers, "workers", 0, "parallel workers (default MAX_WORKERS or 3)")
	f.BoolVarP(&o.watch, "watch", "w", false, "watch the input directory and process folders as they become ready")

	f.BoolVarP(&o.serve, "server", "s", false, "run the HTTP API server")
	f.StringVar(&o.host, "host", "", "server host (default API_HOST or 0.0.0.0)")
	f.IntVar(&o.port, "port", 0, "server port (default API_PORT or 8000)")

	f.StringVar(&o.openAIKey, "openai-key", "", "OpenAI API key")
	f.StringVar(&o.anthropicKey, "anthropic-key", "", "Anthropic API key")
	f.StringVar(&o.provider, "provider", "", "AI provider: "+strings.Join(constants.ProvidersAsStrings(), "|"))
	f.StringVar(&o.openAIModel, "openai-model", "", "OpenAI model")
	f.StringVar(&o.anthropicModel, "anthropic-model", "", "Anthropic model")
	f.StringVar(&o.inputDir, "input-dir", "", "input directory (default INPUT_DIR or \"Input Data\")")
	f.StringVar(&o.outputDir, "output-dir", "", "output directory (default OUTPUT_DIR or \"Output\")")
	f.StringVar(&o.logLevel, "log-level", "", "DEBUG|INFO|WARNING|ERROR")
	return cmd
}

// applyFlags overrides env configuration with explicitly set flags.
func applyFlags(cfg *common.Config, o options) error {
	if o.provider != "" {
		p, ok := constants.CanonicalizeProvider(o.provider)
		if !ok {
			return common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported provider %q", o.provider), common.ErrInvalidInput)
		}
		cfg.AI.Provider = p
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.AI.OpenAIAPIKey, o.openAIKey)
	set(&cfg.AI.AnthropicAPIKey, o.anthropicKey)
	set(&cfg.AI.OpenAIModel, o.openAIModel)
	set(&cfg.AI.AnthropicModel, o.anthropicModel)
	set(&cfg.Paths.InputDir, o.inputDir)
	set(&cfg.Paths.OutputDir, o.outputDir)
	set(&cfg.Server.Host, o.host)
	set(&cfg.LogLevel, o.logLevel)
	if o.port > 0 {
		cfg.Server.Port = o.port
	}
	if o.workers > 0 {
		cfg.Processing.MaxWorkers = o.workers
	}
	return cfg.Validate()
}

func newLogger(cfg *common.Config, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
		// the CLI prints its own summaries; keep log lines short
		if a.Key == slog.TimeKey {
			return slog.Attr{}
		}
		return a
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func run(cmd *cobra.Command, out io.Writer, o options) error {
	_ = godotenv.Load()
	cfg := common.LoadConfig()
	if err := applyFlags(cfg, o); err != nil {
		return err
	}
	logger := newLogger(cfg, o.serve)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if o.list {
		folders, err := pipeline.ListFolders(cfg.Paths.InputDir)
		if err != nil {
			return err
		}
		printFolders(out, folders)
		return nil
	}
	if !o.serve && o.folder == "" && !o.all && !o.watch {
		_ = cmd.Help()
		fmt.Fprintln(out, "\nTip: use --list to see available folders, or --all to process everything.")
		return nil
	}

	runs, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if o.serve {
		opts := []server.Option{}
		if runs != nil {
			opts = append(opts, server.WithRunRepository(runs))
		}
		fmt.Fprintf(out, "Starting API server on %s:%d...\n", cfg.Server.Host, cfg.Server.Port)
		return server.New(cfg, logger, opts...).Run(ctx)
	}

	var rec pipeline.RunRecorder
	if runs != nil {
		rec = runs
	}
	useVision := o.vision && !o.noVision
	proc, err := pipeline.NewFromConfig(cfg, logger, rec, pipeline.WithBatchVision(useVision))
	if err != nil {
		return err
	}

	if o.folder != "" {
		dir, ok := proc.FolderPath(o.folder)
		if !ok {
			fmt.Fprintf(out, "Error: folder '%s' not found in %s\n", o.folder, cfg.Paths.InputDir)
			return errRunFailed
		}
		fmt.Fprintf(out, "Processing folder: %s\n", o.folder)
		res := proc.ProcessFolder(ctx, dir, useVision)
		printResult(out, res)
		if !res.Success {
			return errRunFailed
		}
		return nil
	}

	if o.watch {
		return watchFolders(ctx, out, proc, cfg, useVision, logger)
	}

	fmt.Fprintf(out, "Processing all folders in: %s\n", cfg.Paths.InputDir)
	batch, err := proc.ProcessAll(ctx, cfg.Paths.InputDir, o.parallel)
	if err != nil {
		return err
	}
	for _, r := range batch.Results {
		printResult(out, r)
	}
	printBatch(out, batch)

	summaryPath := filepath.Join(cfg.Paths.OutputDir, constants.BatchSummaryFile)
	if err := export.NewService(logger).WriteBatchWorkbook(summaryPath, batch); err != nil {
		logger.Warn("cli.batch_summary.failed", "path", summaryPath, "error", err)
	} else {
		fmt.Fprintf(out, "Batch summary: %s\n", summaryPath)
	}

	if batch.AnyFailed() {
		return errRunFailed
	}
	return nil
}

// watchFolders processes every ready folder once at start and again whenever
// its PDFs change, until interrupted.
func watchFolders(ctx context.Context, out io.Writer, proc *pipeline.Processor, cfg *common.Config, useVision bool, logger *slog.Logger) error {
	events, errs, err := watch.Folders(ctx, watch.Config{Root: cfg.Paths.InputDir, InitialScan: true}, logger)
	if err != nil {
		return common.WrapError(err, "watch input dir")
	}
	fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", cfg.Paths.InputDir)
	for {
		select {
		case name, ok := <-events:
			if !ok {
				return nil
			}
			dir, ok := proc.FolderPath(name)
			if !ok || !pipeline.DescribeFolder(dir).Ready {
				continue
			}
			printResult(out, proc.ProcessFolder(ctx, dir, useVision))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("cli.watch.error", "error", err)
		}
	}
}

// openStore opens run history when STORE_DSN is set.
func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.RunRepository, func(), error) {
	if cfg.Store.DSN == "" {
		return nil, func() {}, nil
	}
	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Store.DSN,
		MaxConns:        10,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
	}, logger)
	if err != nil {
		return nil, nil, common.WrapError(err, "open run history store")
	}
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repository.NewRunRepository(db, logger), db.Close, nil
}
