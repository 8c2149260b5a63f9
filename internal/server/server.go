package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"codepair/api/internal/config"
	"codepair/api/internal/handlers"
	"codepair/api/internal/middleware"
)

type HTTPServer struct {
	engine *gin.Engine
	server *http.Server
	log    zerolog.Logger
	cfg    *config.AppConfig
}

func NewHTTPServer(cfg *config.AppConfig, log zerolog.Logger, handlerSet handlers.HandlerSet) *HTTPServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.RedirectTrailingSlash = true
	engine.RedirectFixedPath = true

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(log),
		middleware.Recovery(log),
		middleware.CORS(cfg.AllowCORSOrigins),
	)

	engine.GET("/health", handlerSet.Health)
	handlerSet.Register(engine.Group("/api"))

	engine.NoRoute(fallbackHandler(cfg, log))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &HTTPServer{
		engine: engine,
		server: srv,
		log:    log,
		cfg:    cfg,
	}
}

// fallbackHandler catches everything outside the registered routes.
// Unmatched API paths answer a structured 404 echoing the path so a
// client can tell "backend reached, endpoint missing" from "backend
// down". Non-API paths in production fall back to the prebuilt SPA when
// one is present.
func fallbackHandler(cfg *config.AppConfig, log zerolog.Logger) gin.HandlerFunc {
	staticDir := cfg.HTTP.StaticDir
	indexPath := filepath.Join(staticDir, "index.html")

	serveSPA := false
	if cfg.Environment == "production" {
		if _, err := os.Stat(indexPath); err == nil {
			serveSPA = true
			log.Info().Str("dir", staticDir).Msg("serving static frontend")
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if path == "/api" || strings.HasPrefix(path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "route_not_found",
				"path":  path,
			})
			return
		}

		if !serveSPA {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}

		candidate := filepath.Join(staticDir, filepath.Clean("/"+path))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			c.File(candidate)
			return
		}
		c.File(indexPath)
	}
}

func (s *HTTPServer) Start() error {
	s.log.Info().
		Str("addr", s.server.Addr).
		Msg("http server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}
