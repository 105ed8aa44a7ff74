package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"chat-engine/internal/models"
)

// ArchiveRepository persists messages out of band. The engine's correctness
// never depends on it; archive writes happen after the in-memory log append
// has committed.
type ArchiveRepository interface {
	SaveMessage(ctx context.Context, msg models.Message) error
}

// ArchiveRepo is a sqlx implementation of ArchiveRepository.
type ArchiveRepo struct {
	db *sqlx.DB
}

// NewArchiveRepo constructs an ArchiveRepo.
func NewArchiveRepo(db *sqlx.DB) *ArchiveRepo {
	return &ArchiveRepo{db: db}
}

// SaveMessage upserts one message. Re-archiving the same (room, id) pair is
// harmless, so retries after a crash are safe.
func (r *ArchiveRepo) SaveMessage(ctx context.Context, msg models.Message) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO archived_messages
        (room_id, message_id, sender_id, sender_name, content, message_type, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (room_id, message_id) DO NOTHING`,
		msg.RoomID, msg.ID, msg.SenderID, msg.SenderName, msg.Content, msg.Type, msg.CreatedAt)
	return err
}
