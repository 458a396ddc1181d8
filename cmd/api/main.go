package main

import (
	"context"
	"log"
	"time"

	"birthday-memory-app/config"
	"birthday-memory-app/internal/handler"
	"birthday-memory-app/internal/metrics"
	"birthday-memory-app/internal/middleware"
	"birthday-memory-app/internal/redis"
	"birthday-memory-app/internal/repository"
	"birthday-memory-app/internal/server"
	"birthday-memory-app/internal/services"
	"birthday-memory-app/internal/storage"
	"birthday-memory-app/pkg/database"
	"birthday-memory-app/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l := logger.New(cfg.Environment)
	logger.SetGlobalLogger(l)
	defer l.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongo, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		l.Logger.Fatal("failed to connect to MongoDB: " + err.Error())
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = mongo.Close(closeCtx)
	}()
	if err := mongo.EnsureIndexes(ctx); err != nil {
		l.Logger.Fatal("failed to create indexes: " + err.Error())
	}

	blobs, err := storage.NewBlobStore(ctx, cfg.Blob, cfg.S3)
	if err != nil {
		l.Logger.Fatal("failed to open blob store: " + err.Error())
	}

	m := metrics.NewCollector()

	var (
		queue   services.CleanupQueue = services.NewMemoryCleanupQueue()
		limiter middleware.Limiter
		rdb     *goredis.Client
	)
	if cfg.Redis.Addr != "" {
		rdb, err = redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			l.Warnf("Redis unavailable, rate limiting disabled and cleanup queue kept in memory: %s", err)
		} else {
			queue = redis.NewCleanupQueue(rdb)
			limiter = redis.NewRateLimiter(rdb, cfg.RateLimit)
			defer rdb.Close()
		}
	}

	memories := repository.NewMemoryRepository(mongo.DB)
	files := repository.NewFileRepository(mongo.DB)

	janitor := services.NewBlobJanitor(blobs, queue, l.Named("cleanup"), m)
	uploadService := services.NewUploadService(memories, files, blobs, janitor, services.NewThumbnailer(cfg.Upload.ThumbMaxPixels), cfg.Upload, l.Named("upload"), m)
	galleryService := services.NewGalleryService(memories, files, l.Named("gallery"), m)
	memoryService := services.NewMemoryService(memories, blobs, janitor, cfg.Upload, l.Named("memory"))
	fileService := services.NewFileService(memories, files, blobs, l.Named("file"))

	worker := services.NewCleanupWorker(janitor, files, memories, cfg.Cleanup, l.Named("cleanup"), m)
	worker.Start()
	defer worker.Stop()

	srv := server.New(cfg, l, m)
	srv.SetupRoutes(&server.Handlers{
		Memory:  handler.NewMemoryHandler(memoryService),
		Upload:  handler.NewUploadHandler(uploadService),
		Gallery: handler.NewGalleryHandler(galleryService),
		File:    handler.NewFileHandler(fileService),
		Health:  handler.NewHealthHandler(handler.PingerFunc(mongo.HealthCheck), blobs),
	}, limiter)

	if err := srv.Start(); err != nil {
		l.Errorf("Server exited with error: %s", err)
	}
}
