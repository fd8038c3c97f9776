package web

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"improvfest/internal/config"
	"improvfest/internal/generator"
	appLog "improvfest/internal/log"
	"improvfest/internal/render"
)

// Runner is the part of the generator the HTTP surface needs.
type Runner interface {
	TryRun(ctx context.Context) (generator.Report, error)
	Last() (generator.Report, bool)
}

// Server exposes the generated site plus a small API:
//
//	GET  /health          liveness
//	GET  /api/festivals   last run's festivals as JSON
//	POST /api/refresh     run a generation now
//
// Every other path is served from the output directory.
type Server struct {
	cfg    *config.Config
	runner Runner
	engine *gin.Engine
}

func NewServer(cfg *config.Config, runner Runner) *Server {
	s := &Server{
		cfg:    cfg,
		runner: runner,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	api.GET("/festivals", s.handleFestivals)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled for refresh")
		api.POST("/refresh", s.basicAuth(), s.handleRefresh)
	} else {
		api.POST("/refresh", s.handleRefresh)
	}

	fileServer := http.FileServer(http.Dir(s.cfg.OutputDir))
	s.engine.NoRoute(func(c *gin.Context) {
		// Unknown /api/* paths must 404 as JSON, not fall through to files.
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		fileServer.ServeHTTP(c.Writer, c.Request)
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleFestivals(c *gin.Context) {
	rep, ok := s.runner.Last()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no generation has completed yet"})
		return
	}
	doc, err := render.JSON(rep.Result)
	if err != nil {
		appLog.Error("festivals JSON encode failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode festivals"})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}

// handleRefresh runs a generation synchronously. The run is detached from
// the request context so a client disconnect does not abort half-way.
func (s *Server) handleRefresh(c *gin.Context) {
	rep, err := s.runner.TryRun(context.WithoutCancel(c.Request.Context()))
	switch {
	case errors.Is(err, generator.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	failed := make([]string, 0, len(rep.Result.Failed))
	for _, cont := range rep.Result.Failed {
		failed = append(failed, cont.Slug)
	}
	c.JSON(http.StatusOK, gin.H{
		"run_id":            rep.RunID,
		"events":            len(rep.Result.Events),
		"failed_continents": failed,
		"finished_at":       rep.FinishedAt,
	})
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

func (s *Server) basicAuth() gin.HandlerFunc {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return func(c *gin.Context) {
		u, p, ok := c.Request.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			c.Header("WWW-Authenticate", `Basic realm="improvfest", charset="UTF-8"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		appLog.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

// Start serves until ctx is canceled, then shuts down gracefully.
func Start(ctx context.Context, cfg *config.Config, runner Runner) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewServer(cfg, runner).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "output_dir", cfg.OutputDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
