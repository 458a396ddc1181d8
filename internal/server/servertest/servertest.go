// Package servertest runs the album API in-process over in-memory
// repositories and a temporary blob directory.
package servertest

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"birthday-memory-app/config"
	"birthday-memory-app/internal/handler"
	"birthday-memory-app/internal/metrics"
	"birthday-memory-app/internal/repository/repotest"
	"birthday-memory-app/internal/server"
	"birthday-memory-app/internal/services"
	"birthday-memory-app/internal/storage"
	"birthday-memory-app/pkg/logger"

	"github.com/stretchr/testify/require"
)

var errDatabaseDown = errors.New("database down")

type Env struct {
	Config   *config.Config
	Server   *server.Server
	HTTP     *httptest.Server
	Memories *repotest.MemoryRepo
	Files    *repotest.FileRepo
	Blobs    *storage.FSStore
	Queue    *services.MemoryCleanupQueue
	Metrics  *metrics.Collector

	dbDown atomic.Bool
}

// New starts a server. configure runs on the defaults before anything is
// built.
func New(t testing.TB, configure ...func(*config.Config)) *Env {
	t.Helper()

	cfg := config.Default()
	cfg.AppMode = config.TestMode
	cfg.Blob.Root = t.TempDir()
	for _, fn := range configure {
		fn(cfg)
	}

	blobs, err := storage.NewFSStore(cfg.Blob.Root)
	require.NoError(t, err)

	env := &Env{
		Config:   cfg,
		Memories: repotest.NewMemoryRepo(),
		Files:    repotest.NewFileRepo(),
		Blobs:    blobs,
		Queue:    services.NewMemoryCleanupQueue(),
		Metrics:  metrics.NewCollector(),
	}

	l := logger.NewNop()
	janitor := services.NewBlobJanitor(blobs, env.Queue, l, env.Metrics)
	uploads := services.NewUploadService(env.Memories, env.Files, blobs, janitor, services.NewThumbnailer(cfg.Upload.ThumbMaxPixels), cfg.Upload, l, env.Metrics)
	galleries := services.NewGalleryService(env.Memories, env.Files, l, env.Metrics)
	memories := services.NewMemoryService(env.Memories, blobs, janitor, cfg.Upload, l)
	files := services.NewFileService(env.Memories, env.Files, blobs, l)

	db := handler.PingerFunc(func(ctx context.Context) error {
		if env.dbDown.Load() {
			return errDatabaseDown
		}
		return nil
	})

	env.Server = server.New(cfg, l, env.Metrics)
	env.Server.SetupRoutes(&server.Handlers{
		Memory:  handler.NewMemoryHandler(memories),
		Upload:  handler.NewUploadHandler(uploads),
		Gallery: handler.NewGalleryHandler(galleries),
		File:    handler.NewFileHandler(files),
		Health:  handler.NewHealthHandler(db, blobs),
	}, nil)

	env.HTTP = httptest.NewServer(env.Server.Handler())
	t.Cleanup(env.HTTP.Close)
	return env
}

// URL is the base URL of the running server.
func (e *Env) URL() string {
	return e.HTTP.URL
}

// SetDatabaseDown makes the health check report MongoDB as disconnected.
func (e *Env) SetDatabaseDown(down bool) {
	e.dbDown.Store(down)
}

// PNG encodes a w x h test image.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
