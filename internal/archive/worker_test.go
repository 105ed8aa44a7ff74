package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chat-engine/internal/mocks"
	"chat-engine/internal/models"
)

func TestWorkerPersistsEnqueuedMessages(t *testing.T) {
	repo := new(mocks.ArchiveRepositoryMock)
	msg := models.Message{ID: 1, RoomID: "general", SenderID: "alice", Content: "hi", Type: models.MessageTypeText, CreatedAt: time.Now()}
	repo.On("SaveMessage", mock.Anything, msg).Return(nil).Once()

	worker := NewWorker(repo)
	worker.Start(context.Background())
	worker.Enqueue(msg)
	worker.Close()

	repo.AssertExpectations(t)
}

func TestWorkerFlushesQueueOnClose(t *testing.T) {
	repo := new(mocks.ArchiveRepositoryMock)
	repo.On("SaveMessage", mock.Anything, mock.Anything).Return(nil).Times(10)

	worker := NewWorker(repo)
	worker.Start(context.Background())
	for i := 1; i <= 10; i++ {
		worker.Enqueue(models.Message{ID: int64(i), RoomID: "general"})
	}
	worker.Close()

	repo.AssertExpectations(t)
}

func TestWorkerToleratesRepoErrors(t *testing.T) {
	repo := new(mocks.ArchiveRepositoryMock)
	repo.On("SaveMessage", mock.Anything, mock.Anything).Return(assert.AnError)

	worker := NewWorker(repo)
	worker.Start(context.Background())
	worker.Enqueue(models.Message{ID: 1, RoomID: "general"})
	worker.Close()

	repo.AssertExpectations(t)
}

func TestDisabledWorkerIsNoop(t *testing.T) {
	worker := NewWorker(nil)
	worker.Start(context.Background())
	worker.Enqueue(models.Message{ID: 1, RoomID: "general"})
	worker.Close()
}
