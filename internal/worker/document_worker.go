package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"lexhub/internal/platform/rabbitmq"
)

// DocumentProcessor runs the analysis pipeline for one stored document.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID uint) error
}

// DocumentWorker consumes document-processing tasks and drives them
// through the pipeline. Failed tasks are dropped, not requeued; the
// document row records the failure.
type DocumentWorker struct {
	conn      *amqp.Connection
	processor DocumentProcessor
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDocumentWorker(conn *amqp.Connection, processor DocumentProcessor, queueName string) *DocumentWorker {
	return &DocumentWorker{
		conn:      conn,
		processor: processor,
		queueName: queueName,
	}
}

func (w *DocumentWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var task rabbitmq.ProcessTask
				if err := json.Unmarshal(d.Body, &task); err != nil {
					log.Printf("worker decode process task failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.processor.Process(workerCtx, task.DocumentID); err != nil {
					log.Printf("worker process document %d failed: %v", task.DocumentID, err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *DocumentWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
