package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/export"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/store"
)

const defaultRunLimit = 50

// Health reports liveness and whether the run history is enabled.
// GET /api/health
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "history": s.store != nil})
}

// Optimize runs a job and returns the full result. Settings absent from
// the request take the server defaults.
// POST /api/optimize
func (s *Server) Optimize(c *gin.Context) {
	job := model.NewJob()
	job.Settings = s.defaults
	if err := c.ShouldBindJSON(&job); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job: " + err.Error()})
		return
	}
	for i := range job.Pieces {
		job.Pieces[i].EnsureID()
	}

	result, err := s.newOptimizer(job.Settings).Optimize(c.Request.Context(), job.Name, job.Pieces)
	if err != nil {
		s.writeOptimizeError(c, err)
		return
	}

	if s.store != nil {
		if err := s.store.SaveRun(result); err != nil {
			glog.Errorf("server: saving run %s: %v", result.ID, err)
		}
	}
	c.JSON(http.StatusOK, result)
}

// writeOptimizeError maps engine errors onto HTTP status codes.
func (s *Server) writeOptimizeError(c *gin.Context, err error) {
	var ce *engine.ConfigError
	switch {
	case errors.As(err, &ce):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": ce.Field})
	case errors.Is(err, engine.ErrInfeasible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrSolverUnknown):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		glog.Errorf("server: optimize failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ListRuns returns the most recent runs.
// GET /api/runs?limit=N
func (s *Server) ListRuns(c *gin.Context) {
	if !s.requireHistory(c) {
		return
	}
	limit := defaultRunLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetRun returns the full result of one run.
// GET /api/runs/:id
func (s *Server) GetRun(c *gin.Context) {
	result, ok := s.loadRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteRun removes a run from the history.
// DELETE /api/runs/:id
func (s *Server) DeleteRun(c *gin.Context) {
	if !s.requireHistory(c) {
		return
	}
	err := s.store.DeleteRun(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ExportRun renders a stored run as pdf, xlsx, labels (pdf) or dxf.
// GET /api/runs/:id/export/:format
func (s *Server) ExportRun(c *gin.Context) {
	result, ok := s.loadRun(c)
	if !ok {
		return
	}

	format := c.Param("format")
	var buf bytes.Buffer
	switch format {
	case "pdf":
		if err := export.WritePDF(&buf, *result); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		attach(c, result.ID+".pdf", "application/pdf", buf.Bytes())
	case "xlsx":
		if err := export.WriteXLSX(&buf, *result); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		attach(c, result.ID+".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
	case "labels":
		s.exportViaFile(c, *result, result.ID+"-labels.pdf", "application/pdf", export.ExportLabels)
	case "dxf":
		s.exportViaFile(c, *result, result.ID+".dxf", "application/dxf", export.ExportDXF)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown export format %q", format)})
	}
}

// exportViaFile runs a file-based exporter in a scratch directory and
// streams the file back.
func (s *Server) exportViaFile(c *gin.Context, result model.OptimizeResult, name, contentType string,
	write func(string, model.OptimizeResult) error) {
	dir, err := os.MkdirTemp("", "barcut-export-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, name)
	if err := write(path, result); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	attach(c, name, contentType, data)
}

func attach(c *gin.Context, name, contentType string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, contentType, data)
}

func (s *Server) loadRun(c *gin.Context) (*model.OptimizeResult, bool) {
	if !s.requireHistory(c) {
		return nil, false
	}
	result, err := s.store.GetRun(c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return result, true
}

func (s *Server) requireHistory(c *gin.Context) bool {
	if s.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history is disabled"})
		return false
	}
	return true
}
