package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"birthday-memory-app/config"
	"birthday-memory-app/internal/handler"
	"birthday-memory-app/internal/metrics"
	"birthday-memory-app/internal/middleware"
	"birthday-memory-app/internal/redis"
	"birthday-memory-app/internal/transport/httpdto"
	"birthday-memory-app/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
)

// multipartOverhead is headroom for form fields and part headers on top of
// the file bytes themselves.
const multipartOverhead = 1 << 20

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
	metrics    *metrics.Collector
}

type Handlers struct {
	Memory  *handler.MemoryHandler
	Upload  *handler.UploadHandler
	Gallery *handler.GalleryHandler
	File    *handler.FileHandler
	Health  *handler.HealthHandler
}

func New(cfg *config.Config, l *logger.Logger, m *metrics.Collector) *Server {
	switch cfg.AppMode {
	case config.ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case config.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(l))
	engine.MaxMultipartMemory = 8 << 20

	s := &Server{
		engine:  engine,
		config:  cfg,
		logger:  l,
		metrics: m,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Engine exposes the router without compression, for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler is the router wrapped with gzip response compression.
func (s *Server) Handler() http.Handler {
	return gzhttp.GzipHandler(s.engine)
}

// SetupRoutes registers the API. limiter may be nil, which disables rate
// limiting.
func (s *Server) SetupRoutes(h *Handlers, limiter middleware.Limiter) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware(s.config.CORS.AllowedOrigins))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.MetricsMiddleware(s.metrics))
	s.engine.Use(middleware.ErrorHandler(s.logger, !s.config.IsProduction()))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})
	s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("resource not found", httpdto.CodeNotFound))
	})

	uploadLimit := middleware.RateLimitMiddleware(limiter, redis.ScopeUpload, s.logger, s.metrics)
	batchBody := middleware.BodyLimit(int64(s.config.Upload.MaxFiles)*s.config.Upload.MaxFileSize + multipartOverhead)
	singleBody := middleware.BodyLimit(s.config.Upload.MaxFileSize + multipartOverhead)

	api := s.engine.Group("/api")
	api.Use(middleware.RateLimitMiddleware(limiter, redis.ScopeGeneral, s.logger, s.metrics))
	{
		api.GET("/health", h.Health.Health)

		api.GET("/memories", h.Memory.List)
		api.GET("/memories/:id", h.Memory.Get)
		api.PUT("/memories/:id", h.Memory.Update)
		api.DELETE("/memories/:id", h.Memory.Delete)
		api.POST("/memories/:id/audio-note", uploadLimit, singleBody, h.Memory.AttachAudioNote)

		api.POST("/upload", uploadLimit, batchBody, h.Upload.Upload)
		api.POST("/upload-files-only", uploadLimit, batchBody, h.Upload.UploadFilesOnly)

		api.POST("/gallery", h.Gallery.Create)
		api.PUT("/gallery/:id", h.Gallery.Update)

		api.GET("/file/:id", h.File.Serve)
	}
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("Error in starting the server: %s", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	s.logger.Infof("Server is running on :%s", s.config.AppPort)

	<-quit

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		return err
	}

	s.logger.Infof("Server stopped gracefully")
	return nil
}
