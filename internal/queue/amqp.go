package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"nutriplan_backend/internal/logger"
)

// AMQPQueue - очередь в RabbitMQ
type AMQPQueue struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	queueName string

	// amqp.Channel не потокобезопасен для Publish
	pubMu sync.Mutex
}

// Connect подключается к брокеру с повторами
func Connect(url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "queue.Connect"
	var (
		conn *amqp.Connection
		err  error
	)

	for i := 0; i < max(retries, 1); i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}

func NewAMQPQueue(url, queueName string) (*AMQPQueue, error) {
	const op = "queue.NewAMQPQueue"

	conn, err := Connect(url, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, queueName, err)
	}

	return &AMQPQueue{conn: conn, ch: ch, queueName: queueName}, nil
}

func (q *AMQPQueue) Publish(ctx context.Context, job Job) error {
	const op = "queue.AMQPQueue.Publish"

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	err = q.ch.Publish(
		"",
		q.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (q *AMQPQueue) Consume(ctx context.Context, handler Handler) error {
	const op = "queue.AMQPQueue.Consume"

	deliveries, err := q.ch.Consume(
		q.queueName,
		"",
		false, // ручной ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	sem := make(chan struct{}, 10)
	go func() {
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					q.handleDelivery(ctx, d, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (q *AMQPQueue) handleDelivery(ctx context.Context, d amqp.Delivery, handler Handler) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.WorkerLog("chat-queue", "decode", err)
		// битое сообщение повторять бессмысленно
		if nackErr := d.Nack(false, false); nackErr != nil {
			logger.WorkerLog("chat-queue", "nack", nackErr)
		}
		return
	}

	if err := handler(ctx, job); err != nil {
		logger.WorkerLog("chat-queue", "handle", err, "message_id", job.MessageID)
		if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
			logger.WorkerLog("chat-queue", "nack", nackErr)
		}
		return
	}

	if ackErr := d.Ack(false); ackErr != nil {
		logger.WorkerLog("chat-queue", "ack", ackErr)
	}
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
