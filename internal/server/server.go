// Package server exposes the optimizer and the run history over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/glog"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/model"
	"github.com/piwi3910/BarCut/internal/store"
)

// Server is the BarCut HTTP API.
type Server struct {
	router   *gin.Engine
	store    *store.Store
	defaults model.CutSettings

	// newOptimizer builds the optimizer for one request.
	newOptimizer func(model.CutSettings) *engine.Optimizer
}

// NewServer creates the API server. Jobs that omit settings inherit the
// defaults from cfg. st may be nil, which disables the run history.
func NewServer(cfg model.AppConfig, st *store.Store) *Server {
	defaults := model.DefaultSettings()
	cfg.ApplyToSettings(&defaults)

	s := &Server{
		router:       gin.New(),
		store:        st,
		defaults:     defaults,
		newOptimizer: engine.New,
	}
	s.router.Use(gin.Recovery(), requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api := s.router.Group("/api")
	{
		api.GET("/health", s.Health)
		api.POST("/optimize", s.Optimize)
		api.GET("/runs", s.ListRuns)
		api.GET("/runs/:id", s.GetRun)
		api.DELETE("/runs/:id", s.DeleteRun)
		api.GET("/runs/:id/export/:format", s.ExportRun)
	}
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts serving on addr.
func (s *Server) Run(addr string) error {
	glog.Infof("server: listening on %s", addr)
	return s.router.Run(addr)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		glog.V(1).Infof("server: %s %s -> %d (%s)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
