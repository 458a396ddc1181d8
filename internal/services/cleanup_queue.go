package services

import (
	"context"
	"sync"
	"time"
)

// CleanupTask is one blob deletion waiting for retry.
type CleanupTask struct {
	Key        string    `json:"key"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// CleanupQueue holds blob deletions that failed and must be retried.
type CleanupQueue interface {
	Enqueue(ctx context.Context, tasks ...CleanupTask) error
	Dequeue(ctx context.Context, max int) ([]CleanupTask, error)
	Len(ctx context.Context) (int64, error)
}

// MemoryCleanupQueue is the in-process queue used when Redis is not
// configured. Pending tasks are lost on restart; the staged-file sweep
// reclaims what it can.
type MemoryCleanupQueue struct {
	mu    sync.Mutex
	tasks []CleanupTask
}

func NewMemoryCleanupQueue() *MemoryCleanupQueue {
	return &MemoryCleanupQueue{}
}

func (q *MemoryCleanupQueue) Enqueue(ctx context.Context, tasks ...CleanupTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, tasks...)
	return nil
}

func (q *MemoryCleanupQueue) Dequeue(ctx context.Context, max int) ([]CleanupTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if max <= 0 || max > len(q.tasks) {
		max = len(q.tasks)
	}
	out := make([]CleanupTask, max)
	copy(out, q.tasks[:max])
	q.tasks = q.tasks[max:]
	return out, nil
}

func (q *MemoryCleanupQueue) Len(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.tasks)), nil
}
