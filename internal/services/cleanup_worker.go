package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"birthday-memory-app/config"
	"birthday-memory-app/internal/metrics"
	"birthday-memory-app/internal/repository"
	app_errors "birthday-memory-app/pkg/errors"
	"birthday-memory-app/pkg/logger"

	"go.uber.org/zap"
)

// CleanupWorker retries queued blob deletions and periodically reclaims
// staged files that no gallery references.
type CleanupWorker struct {
	janitor  *BlobJanitor
	files    repository.FileRepository
	memories repository.MemoryRepository
	cfg      config.CleanupConfig
	log      *logger.Logger
	metrics  *metrics.Collector

	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	lastSweep time.Time
	now       func() time.Time
}

func NewCleanupWorker(
	janitor *BlobJanitor,
	files repository.FileRepository,
	memories repository.MemoryRepository,
	cfg config.CleanupConfig,
	log *logger.Logger,
	m *metrics.Collector,
) *CleanupWorker {
	return &CleanupWorker{
		janitor:  janitor,
		files:    files,
		memories: memories,
		cfg:      cfg,
		log:      log,
		metrics:  m,
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start begins the worker loop
func (w *CleanupWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop gracefully shuts down
func (w *CleanupWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
}

func (w *CleanupWorker) run() {
	defer w.wg.Done()
	interval := w.cfg.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *CleanupWorker) tick() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	if n, err := w.janitor.RetryPending(ctx, w.cfg.BatchSize, w.cfg.MaxAttempts); err != nil {
		w.log.Error(ctx, "cleanup retry failed", zap.Error(err))
	} else if n > 0 {
		w.log.Info(ctx, "cleanup retried blob deletes", zap.Int("deleted", n))
	}

	if w.cfg.SweepEvery > 0 && w.now().Sub(w.lastSweep) >= w.cfg.SweepEvery {
		w.lastSweep = w.now()
		if _, err := w.SweepStaged(ctx); err != nil {
			w.log.Error(ctx, "staged file sweep failed", zap.Error(err))
		}
	}
}

// SweepStaged deletes staged files older than the staging TTL that no
// gallery references, together with their blobs.
func (w *CleanupWorker) SweepStaged(ctx context.Context) (int, error) {
	if w.cfg.StagingTTL <= 0 {
		return 0, nil
	}
	cutoff := w.now().Add(-w.cfg.StagingTTL)
	candidates, err := w.files.ListStagedBefore(ctx, cutoff, 0)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, f := range candidates {
		if w.cfg.BatchSize > 0 && swept >= w.cfg.BatchSize {
			break
		}
		referenced, err := w.memories.IsReferenced(ctx, f.ID)
		if err != nil {
			return swept, err
		}
		if referenced {
			continue
		}
		if err := w.files.Delete(ctx, f.ID); err != nil {
			if errors.Is(err, app_errors.ErrNotFound) {
				continue
			}
			return swept, err
		}
		// A gallery may have claimed the file between the check and the
		// delete. Put the record back and keep the blobs in that case. A
		// gallery whose resolve ran before the delete but commits after
		// this second check can still lose its bytes; the TTL keeps that
		// window to files untouched for a whole staging period.
		if referenced, err := w.memories.IsReferenced(ctx, f.ID); err != nil || referenced {
			if cerr := w.files.Create(ctx, f); cerr != nil {
				w.log.Error(ctx, "restoring claimed staged file failed", zap.String("id", f.ID), zap.Error(cerr))
			}
			if err != nil {
				return swept, err
			}
			continue
		}
		w.janitor.Remove(ctx, f.BlobKeys()...)
		swept++
	}

	if swept > 0 {
		w.log.Info(ctx, "swept unreferenced staged files", zap.Int("count", swept))
		if w.metrics != nil {
			w.metrics.SweptFiles.Add(float64(swept))
		}
	}
	return swept, nil
}
