package services

import (
	"context"
	"errors"
	"time"

	"birthday-memory-app/internal/metrics"
	"birthday-memory-app/internal/storage"
	"birthday-memory-app/pkg/logger"

	"go.uber.org/zap"
)

const (
	CleanupComplete = "complete"
	CleanupDeferred = "deferred"
)

// BlobJanitor deletes blobs that no record owns any more. Deletions that
// fail are queued for the cleanup worker instead of failing the caller.
type BlobJanitor struct {
	blobs   storage.BlobStore
	queue   CleanupQueue
	log     *logger.Logger
	metrics *metrics.Collector
}

func NewBlobJanitor(blobs storage.BlobStore, queue CleanupQueue, log *logger.Logger, m *metrics.Collector) *BlobJanitor {
	return &BlobJanitor{blobs: blobs, queue: queue, log: log, metrics: m}
}

// Remove deletes every key and reports CleanupComplete or CleanupDeferred.
func (j *BlobJanitor) Remove(ctx context.Context, keys ...string) string {
	status := CleanupComplete
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := j.blobs.Delete(ctx, key); err != nil {
			if isUnaddressable(err) {
				j.log.Warn(ctx, "skipping blob with invalid key", zap.String("key", key), zap.Error(err))
				j.observe("skipped")
				continue
			}
			j.log.Warn(ctx, "blob delete failed, queued for retry", zap.String("key", key), zap.Error(err))
			j.observe("deferred")
			task := CleanupTask{Key: key, Attempts: 1, LastError: err.Error(), EnqueuedAt: time.Now().UTC()}
			if qerr := j.queue.Enqueue(ctx, task); qerr != nil {
				j.log.Error(ctx, "cleanup enqueue failed", zap.String("key", key), zap.Error(qerr))
			}
			status = CleanupDeferred
			continue
		}
		j.observe("deleted")
	}
	j.reportQueue(ctx)
	return status
}

// RetryPending drains up to batch queued deletions. Tasks that keep failing
// are requeued until maxAttempts, then dropped with an error log.
func (j *BlobJanitor) RetryPending(ctx context.Context, batch, maxAttempts int) (int, error) {
	tasks, err := j.queue.Dequeue(ctx, batch)
	if err != nil {
		return 0, err
	}

	done := 0
	var retry []CleanupTask
	for _, task := range tasks {
		if err := j.blobs.Delete(ctx, task.Key); err != nil {
			if isUnaddressable(err) {
				j.observe("skipped")
				continue
			}
			task.Attempts++
			task.LastError = err.Error()
			if task.Attempts >= maxAttempts {
				j.log.Error(ctx, "giving up on blob delete",
					zap.String("key", task.Key), zap.Int("attempts", task.Attempts), zap.Error(err))
				j.observe("abandoned")
				continue
			}
			retry = append(retry, task)
			continue
		}
		j.observe("retried")
		done++
	}
	if len(retry) > 0 {
		if err := j.queue.Enqueue(ctx, retry...); err != nil {
			return done, err
		}
	}
	j.reportQueue(ctx)
	return done, nil
}

// isUnaddressable reports keys no retry can ever delete.
func isUnaddressable(err error) bool {
	return errors.Is(err, storage.ErrInvalidKey) || errors.Is(err, storage.ErrEmptyKey)
}

func (j *BlobJanitor) observe(result string) {
	if j.metrics != nil {
		j.metrics.BlobDeletes.WithLabelValues(result).Inc()
	}
}

func (j *BlobJanitor) reportQueue(ctx context.Context) {
	if j.metrics == nil {
		return
	}
	if n, err := j.queue.Len(ctx); err == nil {
		j.metrics.CleanupQueue.Set(float64(n))
	}
}
