package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/pa-autofill/constants"
	"github.com/joseph-ayodele/pa-autofill/internal/common"
	"github.com/joseph-ayodele/pa-autofill/internal/entity"
	"github.com/joseph-ayodele/pa-autofill/internal/pipeline"
	"github.com/joseph-ayodele/pa-autofill/internal/repository"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type processRequest struct {
	FolderName string `json:"folder_name" binding:"required"`
	UseVision  *bool  `json:"use_vision"`
}

type batchRequest struct {
	FolderNames []string `json:"folder_names"`
	Parallel    bool     `json:"parallel"`
}

type configUpdateRequest struct {
	AIProvider      *string `json:"ai_provider"`
	OpenAIAPIKey    *string `json:"openai_api_key"`
	AnthropicAPIKey *string `json:"anthropic_api_key"`
}

type fieldValue struct {
	Name       string  `json:"name"`
	Value      *string `json:"value"`
	Confidence float64 `json:"confidence"`
}

type processResponse struct {
	Success         bool                 `json:"success"`
	Summary         entity.ResultSummary `json:"summary"`
	FilledFields    []fieldValue         `json:"filled_fields"`
	UncertainFields []fieldValue         `json:"uncertain_fields"`
	UnfilledFields  []string             `json:"unfilled_fields"`
	OutputPath      *string              `json:"output_path"`
	Error           *string              `json:"error"`
}

type resultFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   ServiceName,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) listFolders(c *gin.Context) {
	folders, err := pipeline.ListFolders(s.config().Paths.InputDir)
	if err != nil {
		s.fail(c, err)
		return
	}
	ready := 0
	for _, f := range folders {
		if f.Ready {
			ready++
		}
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders, "total": len(folders), "ready_count": ready})
}

func (s *Server) getFolder(c *gin.Context) {
	dir, err := s.inputFolder(c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pipeline.DescribeFolder(dir))
}

func (s *Server) processFolder(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, common.NewAppError("INVALID_INPUT", "folder_name is required", common.ErrInvalidInput))
		return
	}
	dir, err := s.inputFolder(req.FolderName)
	if err != nil {
		s.fail(c, err)
		return
	}
	proc, err := s.processor()
	if err != nil {
		s.fail(c, err)
		return
	}

	useVision := req.UseVision == nil || *req.UseVision
	res := proc.ProcessFolder(c.Request.Context(), dir, useVision)
	c.JSON(http.StatusOK, toProcessResponse(res))
}

func toProcessResponse(res entity.ProcessingResult) processResponse {
	out := processResponse{
		Success:         res.Success,
		Summary:         res.Summary(),
		FilledFields:    toFieldValues(res.FilledFields),
		UncertainFields: toFieldValues(res.UncertainFields),
		UnfilledFields:  res.UnfilledFieldNames(),
	}
	if res.OutputPath != "" {
		p := res.OutputPath
		out.OutputPath = &p
	}
	if res.ErrorMessage != "" {
		e := res.ErrorMessage
		out.Error = &e
	}
	return out
}

func toFieldValues(fields []entity.FormField) []fieldValue {
	out := make([]fieldValue, 0, len(fields))
	for _, f := range fields {
		out = append(out, fieldValue{Name: f.Name, Value: f.Value, Confidence: f.Confidence})
	}
	return out
}

func (s *Server) processBatch(c *gin.Context) {
	var req batchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, common.NewAppError("INVALID_INPUT", "invalid batch request", common.ErrInvalidInput))
			return
		}
	}
	proc, err := s.processor()
	if err != nil {
		s.fail(c, err)
		return
	}

	var batch entity.BatchProcessingResult
	if len(req.FolderNames) > 0 {
		batch, err = proc.ProcessFolders(c.Request.Context(), req.FolderNames, req.Parallel)
	} else {
		batch, err = proc.ProcessAll(c.Request.Context(), s.config().Paths.InputDir, req.Parallel)
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	s.mu.Lock()
	s.lastBatch = &batch
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"success": true, "summary": batch.Summary()})
}

func (s *Server) getResults(c *gin.Context) {
	name := c.Param("name")
	outDir, err := s.outputFolder(name)
	if err != nil {
		s.fail(c, err)
		return
	}
	matches, _ := filepath.Glob(filepath.Join(outDir, "*.pdf"))
	sort.Strings(matches)
	files := make([]resultFile, 0, len(matches))
	for _, m := range matches {
		files = append(files, resultFile{Name: filepath.Base(m), Path: m})
	}

	history := []repository.RunRecord{}
	if s.runs != nil {
		runs, err := s.runs.ListByFolder(c.Request.Context(), name, 20)
		if err != nil {
			s.log.Warn("server.results.history_failed", "folder", name, "error", err)
		} else if runs != nil {
			history = runs
		}
	}
	c.JSON(http.StatusOK, gin.H{"folder": name, "files": files, "history": history})
}

func (s *Server) downloadResult(c *gin.Context) {
	outDir, err := s.outputFolder(c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	file := c.Param("file")
	v := common.NewValidator().Field("file", file, common.Required, common.PathSegment, common.PDFName)
	if err := common.ValidateAndReturnError(v); err != nil {
		s.fail(c, err)
		return
	}
	path := filepath.Join(outDir, file)
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		s.fail(c, common.NewAppError("NOT_FOUND", "File not found", common.ErrNotFound))
		return
	}
	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(path, file)
}

func (s *Server) exportBatch(c *gin.Context) {
	s.mu.Lock()
	last := s.lastBatch
	s.mu.Unlock()
	if last == nil {
		s.fail(c, common.NewAppError("NOT_FOUND", "no batch has been processed yet", common.ErrNotFound))
		return
	}
	data, err := s.exporter.BatchWorkbook(*last)
	if err != nil {
		s.fail(c, common.WrapError(err, "build batch workbook"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", constants.BatchSummaryFile))
	c.Data(http.StatusOK, xlsxMIME, data)
}

func (s *Server) getConfig(c *gin.Context) {
	cfg := s.config()
	c.JSON(http.StatusOK, gin.H{
		"ai_provider":       cfg.AI.Provider,
		"openai_model":      cfg.AI.OpenAIModel,
		"anthropic_model":   cfg.AI.AnthropicModel,
		"has_openai_key":    cfg.AI.OpenAIAPIKey != "",
		"has_anthropic_key": cfg.AI.AnthropicAPIKey != "",
		"input_dir":         cfg.Paths.InputDir,
		"output_dir":        cfg.Paths.OutputDir,
	})
}

func (s *Server) updateConfig(c *gin.Context) {
	var req configUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, common.NewAppError("INVALID_INPUT", "invalid config update", common.ErrInvalidInput))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.cfg.Clone()
	if req.AIProvider != nil && strings.TrimSpace(*req.AIProvider) != "" {
		v := common.NewValidator().Field("ai_provider", *req.AIProvider, common.KnownProvider)
		if err := common.ValidateAndReturnError(v); err != nil {
			s.fail(c, err)
			return
		}
		next.AI.Provider, _ = constants.CanonicalizeProvider(*req.AIProvider)
	}
	if req.OpenAIAPIKey != nil && *req.OpenAIAPIKey != "" {
		next.AI.OpenAIAPIKey = *req.OpenAIAPIKey
	}
	if req.AnthropicAPIKey != nil && *req.AnthropicAPIKey != "" {
		next.AI.AnthropicAPIKey = *req.AnthropicAPIKey
	}
	s.cfg = next
	s.proc = nil
	s.log.Info("server.config.updated", "provider", next.AI.Provider)
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// inputFolder resolves an existing patient folder by name.
func (s *Server) inputFolder(name string) (string, error) {
	return existingDir(s.config().Paths.InputDir, name)
}

func (s *Server) outputFolder(name string) (string, error) {
	dir, err := existingDir(s.config().Paths.OutputDir, name)
	if err != nil {
		return "", common.NewAppError("NOT_FOUND", fmt.Sprintf("No results found for '%s'", name), common.ErrNotFound)
	}
	return dir, nil
}

func existingDir(root, name string) (string, error) {
	v := common.NewValidator().Field("folder", name, common.Required, common.PathSegment)
	if v.HasErrors() {
		return "", common.NewAppError("NOT_FOUND", fmt.Sprintf("Folder '%s' not found", name), common.ErrNotFound)
	}
	dir := filepath.Join(root, name)
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return "", common.NewAppError("NOT_FOUND", fmt.Sprintf("Folder '%s' not found", name), common.ErrNotFound)
	}
	return dir, nil
}
