package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"birthday-memory-app/internal/services"

	goredis "github.com/redis/go-redis/v9"
)

const cleanupQueueKey = "cleanup:blobs"

// CleanupQueue keeps pending blob deletions in a Redis list so they
// survive restarts.
type CleanupQueue struct {
	client *goredis.Client
	key    string
}

var _ services.CleanupQueue = (*CleanupQueue)(nil)

func NewCleanupQueue(client *goredis.Client) *CleanupQueue {
	return &CleanupQueue{client: client, key: cleanupQueueKey}
}

func (q *CleanupQueue) Enqueue(ctx context.Context, tasks ...services.CleanupTask) error {
	if len(tasks) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(tasks))
	for _, t := range tasks {
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		values = append(values, data)
	}
	return q.client.RPush(ctx, q.key, values...).Err()
}

func (q *CleanupQueue) Dequeue(ctx context.Context, max int) ([]services.CleanupTask, error) {
	if max <= 0 {
		max = 100
	}
	raw, err := q.client.LPopCount(ctx, q.key, max).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pop cleanup tasks: %w", err)
	}

	tasks := make([]services.CleanupTask, 0, len(raw))
	for _, item := range raw {
		var t services.CleanupTask
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (q *CleanupQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}
