package queue

import (
	"context"
	"sync"

	"nutriplan_backend/internal/logger"
)

// MemoryQueue - очередь на буферизованном канале внутри процесса
type MemoryQueue struct {
	jobs chan Job

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &MemoryQueue{jobs: make(chan Job, buffer)}
}

// Publish не блокируется: при переполненном буфере возвращает ErrQueueFull
func (q *MemoryQueue) Publish(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case job, ok := <-q.jobs:
				if !ok {
					return
				}
				if err := handler(ctx, job); err != nil {
					logger.WorkerLog("chat-queue", "handle", err, "message_id", job.MessageID)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Close закрывает канал и ждет, пока потребители разберут остаток
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len - число заданий в буфере
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}
