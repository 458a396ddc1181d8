package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"birthday-memory-app/config"
	"birthday-memory-app/internal/repository"
	"birthday-memory-app/internal/services"
	"birthday-memory-app/internal/storage"
	"birthday-memory-app/pkg/database"
	"birthday-memory-app/pkg/logger"
)

const usage = `
Birthday Memory Album - Database CLI Tool

Usage:
  migrate [flags] [command]

Commands:
  up          Create collections and indexes
  status      Show database and blob store status
  sweep       Delete staged files that no gallery references

Flags:
  -timeout duration    Timeout for the command (default 1m)
  -ttl duration        Staging age for sweep (default from CLEANUP_STAGING_TTL)

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go status
  go run cmd/migrate/main.go -ttl 1h sweep
`

func main() {
	timeout := flag.Duration("timeout", time.Minute, "Timeout for the command")
	ttl := flag.Duration("ttl", 0, "Staging age for sweep")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	mongo, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongo.Close(context.Background())

	switch command := flag.Arg(0); command {
	case "up":
		runUp(ctx, mongo)
	case "status":
		showStatus(ctx, cfg, mongo)
	case "sweep":
		if *ttl > 0 {
			cfg.Cleanup.StagingTTL = *ttl
		}
		runSweep(ctx, cfg, mongo)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runUp(ctx context.Context, mongo *database.Mongo) {
	fmt.Println("Creating indexes...")
	if err := mongo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}
	fmt.Println("Indexes are up to date")
}

func showStatus(ctx context.Context, cfg *config.Config, mongo *database.Mongo) {
	fmt.Printf("Database: %s\n", cfg.Mongo.Database)
	if err := mongo.HealthCheck(ctx); err != nil {
		fmt.Printf("  MongoDB: disconnected (%v)\n", err)
	} else {
		fmt.Println("  MongoDB: connected")
	}

	for _, coll := range []string{database.MemoriesCollection, database.FilesCollection} {
		n, err := mongo.DB.Collection(coll).EstimatedDocumentCount(ctx)
		if err != nil {
			fmt.Printf("  %s: error (%v)\n", coll, err)
			continue
		}
		fmt.Printf("  %s: %d documents\n", coll, n)
	}

	blobs, err := storage.NewBlobStore(ctx, cfg.Blob, cfg.S3)
	if err != nil {
		fmt.Printf("Blob store (%s): %v\n", cfg.Blob.Backend, err)
		return
	}
	if err := blobs.Ping(ctx); err != nil {
		fmt.Printf("Blob store (%s): unavailable (%v)\n", cfg.Blob.Backend, err)
		return
	}
	fmt.Printf("Blob store (%s): available\n", cfg.Blob.Backend)
}

func runSweep(ctx context.Context, cfg *config.Config, mongo *database.Mongo) {
	blobs, err := storage.NewBlobStore(ctx, cfg.Blob, cfg.S3)
	if err != nil {
		log.Fatalf("Failed to open blob store: %v", err)
	}

	l := logger.New(cfg.Environment)
	defer l.Sync()

	files := repository.NewFileRepository(mongo.DB)
	memories := repository.NewMemoryRepository(mongo.DB)
	janitor := services.NewBlobJanitor(blobs, services.NewMemoryCleanupQueue(), l.Named("cleanup"), nil)
	worker := services.NewCleanupWorker(janitor, files, memories, cfg.Cleanup, l.Named("cleanup"), nil)

	n, err := worker.SweepStaged(ctx)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}
	fmt.Printf("Swept %d staged files older than %s\n", n, cfg.Cleanup.StagingTTL)
}
