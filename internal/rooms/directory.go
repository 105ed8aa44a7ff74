package rooms

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"chat-engine/internal/models"
)

var (
	ErrInvalidRoom  = errors.New("invalid room id")
	ErrRoomNotFound = errors.New("room not found")
)

const maxRoomIDLength = 64

type room struct {
	mu           sync.Mutex
	id           string
	name         string
	members      map[string]models.Member
	messageCount int64
	createdAt    time.Time
	lastActivity time.Time
}

// Directory tracks rooms and their membership sets. Rooms are created lazily
// on first join and persist for the lifetime of the process. Each room guards
// its own state, so unrelated rooms never contend.
type Directory struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{rooms: make(map[string]*room)}
}

// Add inserts a member into the room, creating the room if absent.
// Reports whether the room was created by this call.
func (d *Directory) Add(roomID string, member models.Member) (bool, error) {
	if err := ValidateRoomID(roomID); err != nil {
		return false, err
	}

	d.mu.Lock()
	rm, ok := d.rooms[roomID]
	created := !ok
	if !ok {
		now := time.Now()
		rm = &room{
			id:        roomID,
			name:      roomID,
			members:   make(map[string]models.Member),
			createdAt: now,
		}
		d.rooms[roomID] = rm
	}
	d.mu.Unlock()

	rm.mu.Lock()
	rm.members[member.UserID] = member
	rm.lastActivity = time.Now()
	rm.mu.Unlock()
	return created, nil
}

// Remove deletes a member from the room. A no-op when the identity is not a
// member or the room does not exist; reports whether membership was removed.
func (d *Directory) Remove(roomID, userID string) bool {
	d.mu.RLock()
	rm, ok := d.rooms[roomID]
	d.mu.RUnlock()
	if !ok {
		return false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, ok := rm.members[userID]; !ok {
		return false
	}
	delete(rm.members, userID)
	rm.lastActivity = time.Now()
	return true
}

// IsMember reports whether the identity currently belongs to the room.
func (d *Directory) IsMember(roomID, userID string) bool {
	d.mu.RLock()
	rm, ok := d.rooms[roomID]
	d.mu.RUnlock()
	if !ok {
		return false
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	_, ok = rm.members[userID]
	return ok
}

// MembersOf returns a point-in-time snapshot of the room's members, sorted by
// user id. Empty when the room does not exist.
func (d *Directory) MembersOf(roomID string) []models.Member {
	d.mu.RLock()
	rm, ok := d.rooms[roomID]
	d.mu.RUnlock()
	if !ok {
		return nil
	}

	rm.mu.Lock()
	members := make([]models.Member, 0, len(rm.members))
	for _, m := range rm.members {
		members = append(members, m)
	}
	rm.mu.Unlock()

	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members
}

// NoteMessage bumps the room's message counter and activity timestamp.
func (d *Directory) NoteMessage(roomID string) {
	d.mu.RLock()
	rm, ok := d.rooms[roomID]
	d.mu.RUnlock()
	if !ok {
		return
	}
	rm.mu.Lock()
	rm.messageCount++
	rm.lastActivity = time.Now()
	rm.mu.Unlock()
}

// Stats returns the room's counters. Fails with ErrRoomNotFound if the room
// was never created.
func (d *Directory) Stats(roomID string) (models.RoomStats, error) {
	d.mu.RLock()
	rm, ok := d.rooms[roomID]
	d.mu.RUnlock()
	if !ok {
		return models.RoomStats{}, ErrRoomNotFound
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.statsLocked(), nil
}

// ListStats returns stats for every room, sorted by room id.
func (d *Directory) ListStats() []models.RoomStats {
	d.mu.RLock()
	all := make([]*room, 0, len(d.rooms))
	for _, rm := range d.rooms {
		all = append(all, rm)
	}
	d.mu.RUnlock()

	stats := make([]models.RoomStats, 0, len(all))
	for _, rm := range all {
		rm.mu.Lock()
		stats = append(stats, rm.statsLocked())
		rm.mu.Unlock()
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].RoomID < stats[j].RoomID })
	return stats
}

func (rm *room) statsLocked() models.RoomStats {
	return models.RoomStats{
		RoomID:       rm.id,
		Name:         rm.name,
		MemberCount:  len(rm.members),
		MessageCount: rm.messageCount,
		CreatedAt:    rm.createdAt,
		LastActivity: rm.lastActivity,
	}
}

// ValidateRoomID rejects empty or malformed room ids.
func ValidateRoomID(roomID string) error {
	if roomID == "" || len(roomID) > maxRoomIDLength {
		return ErrInvalidRoom
	}
	if strings.TrimSpace(roomID) != roomID || strings.ContainsAny(roomID, " \t\n") {
		return ErrInvalidRoom
	}
	return nil
}
