package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
	"github.com/joseph-ayodele/pa-autofill/internal/export"
	"github.com/joseph-ayodele/pa-autofill/internal/pipeline"
	"github.com/joseph-ayodele/pa-autofill/internal/repository"
)

const ServiceName = "Prior Authorization Auto-Fill"

// Processor is the part of pipeline.Processor the API drives.
type Processor interface {
	ProcessFolder(ctx context.Context, dir string, useVision bool) entity.ProcessingResult
	ProcessAll(ctx context.Context, inputDir string, parallel bool) (entity.BatchProcessingResult, error)
	ProcessFolders(ctx context.Context, names []string, parallel bool) (entity.BatchProcessingResult, error)
}

// ProcessorFactory builds a Processor from a config snapshot.
type ProcessorFactory func(cfg *common.Config) (Processor, error)

// Server serves the REST API. The processor is built on first use and rebuilt
// after a config update.
type Server struct {
	mu        sync.Mutex
	cfg       *common.Config
	proc      Processor
	lastBatch *entity.BatchProcessingResult

	factory  ProcessorFactory
	runs     repository.RunRepository
	exporter *export.Service
	log      *slog.Logger
}

type Option func(*Server)

func WithProcessorFactory(f ProcessorFactory) Option {
	return func(s *Server) {
		if f != nil {
			s.factory = f
		}
	}
}

// WithRunRepository records every processed folder and serves its history.
func WithRunRepository(r repository.RunRepository) Option {
	return func(s *Server) { s.runs = r }
}

func New(cfg *common.Config, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg.Clone(),
		exporter: export.NewService(logger),
		log:      logger,
	}
	s.factory = s.defaultFactory
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) defaultFactory(cfg *common.Config) (Processor, error) {
	var rec pipeline.RunRecorder
	if s.runs != nil {
		rec = s.runs
	}
	p, err := pipeline.NewFromConfig(cfg, s.log, rec)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Server) config() *common.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

func (s *Server) processor() (Processor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != nil {
		return s.proc, nil
	}
	p, err := s.factory(s.cfg.Clone())
	if err != nil {
		s.log.Warn("server.processor.unavailable", "error", err)
		return nil, err
	}
	s.proc = p
	return p, nil
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), cors())

	r.GET("/", s.health)

	api := r.Group("/api")
	api.GET("/folders", s.listFolders)
	api.GET("/folders/:name", s.getFolder)
	api.POST("/process", s.processFolder)
	api.POST("/process/batch", s.processBatch)
	api.GET("/results/:name", s.getResults)
	api.GET("/results/:name/download/:file", s.downloadResult)
	api.GET("/export/batch", s.exportBatch)
	api.GET("/config", s.getConfig)
	api.POST("/config", s.updateConfig)
	return r
}

// Run serves HTTP (and gRPC health when configured) until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	cfg := s.config()
	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var hs *HealthServer
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return common.WrapError(err, "grpc listen")
		}
		hs = NewHealthServer(s.log)
		go hs.Serve(lis)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server.http.listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	s.log.Info("server.shutdown")
	if hs != nil {
		hs.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = err
	}
	return serveErr
}
