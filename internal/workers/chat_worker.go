package workers

import (
	"context"

	"nutriplan_backend/internal/logger"
	"nutriplan_backend/internal/queue"
	"nutriplan_backend/internal/services"
)

const (
	JobChatRetry = "chat_retry"

	requeueBatch = 500
)

// ChatWorker подписывает обработчик сообщений на очередь чата
type ChatWorker struct {
	queue     queue.Queue
	processor *services.ChatProcessor
}

func NewChatWorker(q queue.Queue, processor *services.ChatProcessor) *ChatWorker {
	return &ChatWorker{queue: q, processor: processor}
}

// Start запускает потребителя и возвращает в очередь сообщения,
// оставшиеся PENDING после прошлого запуска.
func (w *ChatWorker) Start(ctx context.Context) error {
	if err := w.queue.Consume(ctx, w.processor.Handle); err != nil {
		return err
	}

	requeued, err := w.processor.RequeuePending(ctx, w.queue, requeueBatch)
	logger.WorkerLog("chat", "requeue_pending", err, "count", requeued)
	return nil
}

// Register добавляет периодическую переотправку зависших сообщений
func (w *ChatWorker) Register(s *Scheduler, spec string) error {
	return s.Add(JobChatRetry, spec, w.RetryStale)
}

func (w *ChatWorker) RetryStale(ctx context.Context) error {
	requeued, err := w.processor.RetryStale(ctx, w.queue, requeueBatch)
	if err != nil {
		return err
	}
	if requeued > 0 {
		logger.Info("Stale chat messages requeued", "count", requeued)
	}
	return nil
}
