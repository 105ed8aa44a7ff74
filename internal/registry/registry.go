package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"chat-engine/internal/models"
)

var ErrNotRegistered = errors.New("connection not registered")

// Sender is the write side of a live connection. Implementations must not
// block: a slow consumer is dropped, not awaited.
type Sender interface {
	Send(event models.OutboundEvent) error
	Close(reason string)
}

// Connection is a point-in-time copy of a registry record. The lifecycle is
// Authenticated (no room) -> InRoom -> Disconnected (offline, grace window
// pending) -> purged.
type Connection struct {
	ConnID   string
	Identity models.Identity
	Status   models.Status
	Room     string
	LastSeen time.Time
}

type record struct {
	connID   string
	identity models.Identity
	sender   Sender
	status   models.Status
	room     string
	lastSeen time.Time
}

// PurgeFunc runs after the grace window elapses without a reconnect. It
// receives the purged identity and the room it last occupied.
type PurgeFunc func(identity models.Identity, room string)

// Registry tracks active connections and presence, one record per identity.
type Registry struct {
	mu      sync.RWMutex
	conns   map[string]*record
	purges  map[string]*time.Timer
	grace   time.Duration
	onPurge PurgeFunc
}

// New creates a Registry with the given disconnect grace window.
func New(grace time.Duration) *Registry {
	return &Registry{
		conns:  make(map[string]*record),
		purges: make(map[string]*time.Timer),
		grace:  grace,
	}
}

// SetPurgeHook installs the callback invoked when a grace window expires.
// Must be called before connections register.
func (r *Registry) SetPurgeHook(fn PurgeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onPurge = fn
}

// Register binds an identity to a live sender. A reconnect within the grace
// window cancels the pending purge and keeps the previous room membership.
// If the identity already has a different live handle, the new handle replaces
// it and the old one is closed asynchronously.
func (r *Registry) Register(identity models.Identity, connID string, sender Sender) (Connection, bool) {
	r.mu.Lock()

	if timer, ok := r.purges[identity.UserID]; ok {
		timer.Stop()
		delete(r.purges, identity.UserID)
	}

	var replaced Sender
	rec, exists := r.conns[identity.UserID]
	if exists {
		if rec.sender != nil && rec.connID != connID {
			replaced = rec.sender
		}
		rec.connID = connID
		rec.identity = identity
		rec.sender = sender
		rec.status = models.StatusOnline
		rec.lastSeen = time.Now()
	} else {
		rec = &record{
			connID:   connID,
			identity: identity,
			sender:   sender,
			status:   models.StatusOnline,
			lastSeen: time.Now(),
		}
		r.conns[identity.UserID] = rec
	}
	snapshot := rec.snapshot()
	r.mu.Unlock()

	if replaced != nil {
		go replaced.Close("duplicate connection")
	}
	return snapshot, replaced != nil
}

// Lookup returns a copy of the identity's record.
func (r *Registry) Lookup(userID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.conns[userID]
	if !ok {
		return Connection{}, false
	}
	return rec.snapshot(), true
}

// SenderFor returns the live sender for an identity, if it is online.
func (r *Registry) SenderFor(userID string) (Sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.conns[userID]
	if !ok || rec.status != models.StatusOnline || rec.sender == nil {
		return nil, false
	}
	return rec.sender, true
}

// SetStatus sets the identity's presence directly. The connect and disconnect
// transitions are driven by Register and Unregister, and presence fan-out
// lives in the coordinator; this is the escape hatch for explicit status
// changes. Idempotent.
func (r *Registry) SetStatus(userID string, status models.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.conns[userID]
	if !ok {
		return ErrNotRegistered
	}
	rec.status = status
	rec.lastSeen = time.Now()
	return nil
}

// SetRoom records the identity's current room ("" means no room).
func (r *Registry) SetRoom(userID, roomID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.conns[userID]
	if !ok {
		return ErrNotRegistered
	}
	rec.room = roomID
	return nil
}

// Unregister marks the identity offline and schedules the grace-window purge.
// The connID guard keeps a replaced handle's teardown from unregistering the
// connection that replaced it.
func (r *Registry) Unregister(userID, connID string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.conns[userID]
	if !ok || rec.connID != connID {
		return Connection{}, false
	}
	rec.status = models.StatusOffline
	rec.sender = nil
	rec.lastSeen = time.Now()

	if timer, ok := r.purges[userID]; ok {
		timer.Stop()
	}
	r.purges[userID] = time.AfterFunc(r.grace, func() {
		r.purge(userID)
	})
	return rec.snapshot(), true
}

func (r *Registry) purge(userID string) {
	r.mu.Lock()
	delete(r.purges, userID)
	rec, ok := r.conns[userID]
	if !ok || rec.status != models.StatusOffline {
		// Reconnected while the timer was firing.
		r.mu.Unlock()
		return
	}
	delete(r.conns, userID)
	identity, room := rec.identity, rec.room
	hook := r.onPurge
	r.mu.Unlock()

	if hook != nil {
		hook(identity, room)
	}
}

// OnlineUsers returns the identities currently online, sorted by user id.
func (r *Registry) OnlineUsers() []models.PresenceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]models.PresenceInfo, 0, len(r.conns))
	for _, rec := range r.conns {
		if rec.status != models.StatusOnline {
			continue
		}
		users = append(users, models.PresenceInfo{
			UserID:      rec.identity.UserID,
			DisplayName: rec.identity.DisplayName,
			Status:      rec.status,
			LastSeen:    rec.lastSeen,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users
}

func (rec *record) snapshot() Connection {
	return Connection{
		ConnID:   rec.connID,
		Identity: rec.identity,
		Status:   rec.status,
		Room:     rec.room,
		LastSeen: rec.lastSeen,
	}
}
