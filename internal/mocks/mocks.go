package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-engine/internal/auth"
	"chat-engine/internal/models"
	"chat-engine/internal/registry"
	"chat-engine/internal/repositories"
)

type VerifierMock struct {
	mock.Mock
}

func (m *VerifierMock) Verify(ctx context.Context, token string) (models.Identity, error) {
	args := m.Called(ctx, token)
	var identity models.Identity
	if val := args.Get(0); val != nil {
		identity = val.(models.Identity)
	}
	return identity, args.Error(1)
}

type ArchiveRepositoryMock struct {
	mock.Mock
}

func (m *ArchiveRepositoryMock) SaveMessage(ctx context.Context, msg models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type SenderMock struct {
	mock.Mock
}

func (m *SenderMock) Send(event models.OutboundEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *SenderMock) Close(reason string) {
	m.Called(reason)
}

var _ auth.Verifier = (*VerifierMock)(nil)
var _ repositories.ArchiveRepository = (*ArchiveRepositoryMock)(nil)
var _ registry.Sender = (*SenderMock)(nil)
