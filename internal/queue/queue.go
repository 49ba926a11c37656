// Package queue доставляет идентификаторы сообщений чата обработчику.
package queue

import (
	"context"
	"errors"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Job - задание на обработку сообщения чата
type Job struct {
	MessageID string `json:"message_id"`
	SessionID string `json:"session_id"`
}

// Handler обрабатывает одно задание. Ошибка означает, что задание стоит повторить.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Publish(ctx context.Context, job Job) error

	// Consume запускает обработку в фоне и возвращается сразу.
	// Обработка прекращается при отмене ctx или Close.
	Consume(ctx context.Context, handler Handler) error

	Close() error
}
