package msglog

import (
	"errors"
	"sort"
	"sync"
	"time"

	"chat-engine/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

type stored struct {
	msg       models.Message
	reactions map[string]map[string]struct{}
}

type roomLog struct {
	mu      sync.Mutex
	nextID  int64
	entries []*stored
	byID    map[int64]*stored
}

// Log keeps an append-only message history per room. Ids are strictly
// increasing within a room; the append order is the ordering authority for
// everything downstream.
type Log struct {
	mu    sync.RWMutex
	rooms map[string]*roomLog
}

// NewLog creates an empty Log.
func NewLog() *Log {
	return &Log{rooms: make(map[string]*roomLog)}
}

func (l *Log) roomFor(roomID string) *roomLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLog{nextID: 1, byID: make(map[int64]*stored)}
		l.rooms[roomID] = rl
	}
	return rl
}

// Append stores a message and assigns its id. Membership is the dispatcher's
// concern; the log only records.
func (l *Log) Append(roomID string, sender models.Member, content, msgType string) models.Message {
	rl := l.roomFor(roomID)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	entry := &stored{
		msg: models.Message{
			ID:         rl.nextID,
			RoomID:     roomID,
			SenderID:   sender.UserID,
			SenderName: sender.DisplayName,
			Content:    content,
			Type:       msgType,
			CreatedAt:  time.Now(),
		},
		reactions: make(map[string]map[string]struct{}),
	}
	rl.nextID++
	rl.entries = append(rl.entries, entry)
	rl.byID[entry.msg.ID] = entry
	return entry.msg
}

// AddReaction records a reaction and returns the resulting count for the
// emoji. Idempotent per (message, emoji, user): a set, not a counter.
func (l *Log) AddReaction(roomID string, messageID int64, emoji, userID string) (int, error) {
	l.mu.RLock()
	rl, ok := l.rooms[roomID]
	l.mu.RUnlock()
	if !ok {
		return 0, ErrMessageNotFound
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	entry, ok := rl.byID[messageID]
	if !ok {
		return 0, ErrMessageNotFound
	}
	users, ok := entry.reactions[emoji]
	if !ok {
		users = make(map[string]struct{})
		entry.reactions[emoji] = users
	}
	users[userID] = struct{}{}
	return len(users), nil
}

// Page returns the requested page of the room's history, most recent first.
// Page numbers start at 1. Pure function of the log state at call time.
func (l *Log) Page(roomID string, page, size int) []models.Message {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}

	l.mu.RLock()
	rl, ok := l.rooms[roomID]
	l.mu.RUnlock()
	if !ok {
		return []models.Message{}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	end := len(rl.entries) - (page-1)*size
	if end <= 0 {
		return []models.Message{}
	}
	start := end - size
	if start < 0 {
		start = 0
	}

	out := make([]models.Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, rl.entries[i].view())
	}
	return out
}

// Count returns the number of messages appended to the room.
func (l *Log) Count(roomID string) int {
	l.mu.RLock()
	rl, ok := l.rooms[roomID]
	l.mu.RUnlock()
	if !ok {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}

// view copies the entry with its reactions materialized. Callers own the copy.
func (s *stored) view() models.Message {
	msg := s.msg
	if len(s.reactions) > 0 {
		msg.Reactions = make(map[string][]string, len(s.reactions))
		for emoji, users := range s.reactions {
			ids := make([]string, 0, len(users))
			for id := range users {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			msg.Reactions[emoji] = ids
		}
	}
	return msg
}
