// Package server assembles the HTTP server over the API handlers
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mealforge/mealforge/internal/infrastructure/config"
	"github.com/mealforge/mealforge/internal/infrastructure/http/handlers"
	"github.com/mealforge/mealforge/internal/infrastructure/http/middleware"
)

// Server is the JSON API HTTP server
type Server struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server
	engine *gin.Engine
}

// NewServer wires the router and the underlying http.Server. The write
// timeout is intentionally left to the config default of zero: the
// progress stream holds its response open indefinitely.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	recipes *handlers.RecipeHandlers,
	generation *handlers.GenerationHandlers,
) *Server {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{config: cfg, logger: logger}
	s.engine = s.setupRoutes(recipes, generation)
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes(recipes *handlers.RecipeHandlers, generation *handlers.GenerationHandlers) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.CORS())

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/recipes", recipes.List)
		v1.POST("/recipes/generate", generation.Generate)
		v1.GET("/recipes/generate/:taskID/events", generation.Events)
		v1.GET("/recipes/:id", recipes.Get)
	}

	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": s.config.App.Name,
		"version": s.config.App.Version,
	})
}

// Start begins serving. It blocks until the listener fails or Stop is
// called.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("http server stopping")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}
