package archive

import (
	"context"
	"log"
	"sync"

	"chat-engine/internal/models"
	"chat-engine/internal/observability"
	"chat-engine/internal/repositories"
)

const queueSize = 1024

// Worker drains appended messages into the archive repository on a background
// goroutine. Enqueue never blocks the hot path: when the queue is full the
// message is dropped and counted, not awaited.
type Worker struct {
	repo  repositories.ArchiveRepository
	queue chan models.Message
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewWorker builds a Worker. A nil repository yields a disabled worker whose
// Enqueue is a no-op.
func NewWorker(repo repositories.ArchiveRepository) *Worker {
	return &Worker{
		repo:  repo,
		queue: make(chan models.Message, queueSize),
		stop:  make(chan struct{}),
	}
}

// Start launches the drain loop. No-op when the worker is disabled.
func (w *Worker) Start(ctx context.Context) {
	if w.repo == nil {
		log.Printf("archive disabled: no repository configured")
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case msg := <-w.queue:
				if err := w.repo.SaveMessage(ctx, msg); err != nil {
					log.Printf("archive write failed room=%s message_id=%d: %v", msg.RoomID, msg.ID, err)
				}
			case <-w.stop:
				w.drain(ctx)
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Enqueue hands a message to the worker. Never blocks.
func (w *Worker) Enqueue(msg models.Message) {
	if w.repo == nil {
		return
	}
	select {
	case w.queue <- msg:
	default:
		log.Printf("archive queue full, dropping room=%s message_id=%d", msg.RoomID, msg.ID)
		observability.IncArchiveDrop()
	}
}

// Close stops the drain loop after flushing whatever is queued.
func (w *Worker) Close() {
	if w.repo == nil {
		return
	}
	close(w.stop)
	w.wg.Wait()
}

func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case msg := <-w.queue:
			if err := w.repo.SaveMessage(ctx, msg); err != nil {
				log.Printf("archive write failed room=%s message_id=%d: %v", msg.RoomID, msg.ID, err)
			}
		default:
			return
		}
	}
}
