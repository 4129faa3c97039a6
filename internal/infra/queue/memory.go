package queue

import (
	"context"

	"tg-clip-bot/internal/domain"
)

// MemoryPublishQueue очередь на канале для тестов и запуска без Redis.
type MemoryPublishQueue struct {
	jobs chan domain.PublishJob
}

// NewMemoryPublishQueue создаёт очередь указанной ёмкости.
func NewMemoryPublishQueue(size int) *MemoryPublishQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryPublishQueue{jobs: make(chan domain.PublishJob, size)}
}

// Enqueue кладёт задачу в канал.
func (q *MemoryPublishQueue) Enqueue(ctx context.Context, job domain.PublishJob) error {
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop блокирующе читает задачу.
func (q *MemoryPublishQueue) Pop(ctx context.Context) (domain.PublishJob, error) {
	select {
	case job := <-q.jobs:
		return job, nil
	case <-ctx.Done():
		return domain.PublishJob{}, ctx.Err()
	}
}
