package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	model "ansible-webui/datamodel/service-model"
	"ansible-webui/internal/reposync"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, indexTemplate, s.page(s.scan(), nil))
}

func (s *Server) handleRunForm(c *gin.Context) {
	startTime := time.Now()
	reqLogger := s.requestLog(c)

	var req model.ExecutionRequest
	if err := c.ShouldBind(&req); err != nil {
		reqLogger.Error().Err(err).Str("content_type", c.ContentType()).Msg("Invalid form submission")
		result := invalidRequest([]string{"form could not be parsed"})
		s.Metrics.ObserveRun(result)
		c.HTML(http.StatusBadRequest, indexTemplate, s.page(s.scan(), &result))
		return
	}

	if msgs := s.Validator.ValidateExecutionRequest(&req); len(msgs) > 0 {
		reqLogger.Warn().Strs("violations", msgs).Msg("Request validation failed")
		result := invalidRequest(msgs)
		s.Metrics.ObserveRun(result)
		c.HTML(http.StatusBadRequest, indexTemplate, s.page(s.scan(), &result))
		return
	}

	result := s.execute(c, req)
	reqLogger.Info().
		Str("kind", string(result.Kind)).
		Dur("duration", time.Since(startTime)).
		Msg("Playbook run request completed")

	c.HTML(http.StatusOK, indexTemplate, s.page(s.scan(), &result))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": Version})
}

func (s *Server) handlePlaybooks(c *gin.Context) {
	c.JSON(http.StatusOK, s.scan())
}

func (s *Server) handleAPIRun(c *gin.Context) {
	startTime := time.Now()
	reqLogger := s.requestLog(c)

	var req model.ExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reqLogger.Error().
			Err(err).
			Str("content_type", c.GetHeader("Content-Type")).
			Int64("content_length", c.Request.ContentLength).
			Msg("Invalid request body")
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	if msgs := s.Validator.ValidateExecutionRequest(&req); len(msgs) > 0 {
		reqLogger.Warn().Strs("violations", msgs).Msg("Request validation failed")
		s.Metrics.ObserveRun(invalidRequest(msgs))
		c.JSON(http.StatusBadRequest, errorResponse{Error: "Invalid request", Details: msgs})
		return
	}

	result := s.execute(c, req)
	reqLogger.Info().
		Str("kind", string(result.Kind)).
		Dur("duration", time.Since(startTime)).
		Msg("Playbook run request completed")

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleAPISync(c *gin.Context) {
	result, err := s.runSync(c.Request.Context())
	switch {
	case errors.Is(err, reposync.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Playbook repository sync failed", Details: []string{err.Error()}})
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) handleSyncForm(c *gin.Context) {
	status := http.StatusOK
	data := s.page(nil, nil)

	result, err := s.runSync(c.Request.Context())
	switch {
	case errors.Is(err, reposync.ErrNotConfigured):
		status = http.StatusServiceUnavailable
		data.SyncMessage, data.SyncError = "Playbook repository sync is not configured.", true
	case err != nil:
		status = http.StatusInternalServerError
		data.SyncMessage, data.SyncError = fmt.Sprintf("Playbook repository sync failed: %v", err), true
	default:
		data.SyncMessage = fmt.Sprintf("Playbook repository %s (%s at %s).", result.Action, result.Branch, shortHash(result.Head))
	}

	data.Playbooks = s.scan()
	c.HTML(status, indexTemplate, data)
}

// execute runs req and records the outcome.
func (s *Server) execute(c *gin.Context, req model.ExecutionRequest) model.ExecutionResult {
	result := s.Executor.Execute(c.Request.Context(), req)
	s.Metrics.ObserveRun(result)
	return result
}

// scan lists the catalog, never returning nil so JSON renders an empty array.
func (s *Server) scan() []model.PlaybookEntry {
	entries := s.Catalog.Scan()
	if entries == nil {
		entries = []model.PlaybookEntry{}
	}
	s.Metrics.PlaybooksScanned.Set(float64(len(entries)))
	return entries
}

func (s *Server) page(entries []model.PlaybookEntry, result *model.ExecutionResult) pageData {
	return pageData{
		Playbooks:      entries,
		Result:         result,
		SyncConfigured: s.Syncer != nil && s.Syncer.Configured(),
		Restricted:     s.Config.RestrictToCatalog,
		Version:        Version,
	}
}

func invalidRequest(msgs []string) model.ExecutionResult {
	return model.ExecutionResult{
		OutputText: "Error: Invalid request: " + strings.Join(msgs, "; ") + ".",
		IsError:    true,
		Kind:       model.KindInvalidRequest,
		ExitCode:   -1,
	}
}

func shortHash(h string) string {
	if len(h) > 7 {
		return h[:7]
	}
	return h
}
