package coordinator

import (
	"log"

	"chat-engine/internal/models"
	"chat-engine/internal/msglog"
	"chat-engine/internal/registry"
	"chat-engine/internal/rooms"
)

// How much history a joining client receives in its snapshot.
const snapshotHistorySize = 50

// Broadcaster is the fan-out surface the coordinator emits through. The
// dispatcher implements it; implementations must not block.
type Broadcaster interface {
	RoomCast(roomID, excludeUserID string, event models.OutboundEvent)
	Broadcast(event models.OutboundEvent)
	Unicast(userID string, event models.OutboundEvent)
}

// Coordinator sequences the multi-step join/leave/disconnect protocols. It is
// the only component allowed to touch more than one store per operation; the
// stores themselves only expose single-entity contracts.
type Coordinator struct {
	registry *registry.Registry
	rooms    *rooms.Directory
	messages *msglog.Log
	caster   Broadcaster
}

// New wires a Coordinator to its stores and installs the purge hook.
func New(reg *registry.Registry, dir *rooms.Directory, messages *msglog.Log) *Coordinator {
	c := &Coordinator{registry: reg, rooms: dir, messages: messages}
	reg.SetPurgeHook(c.purge)
	return c
}

// SetBroadcaster installs the fan-out implementation. Must be called before
// connections arrive.
func (c *Coordinator) SetBroadcaster(b Broadcaster) {
	c.caster = b
}

// Connect registers a live connection and announces presence. A reconnect
// within the grace window keeps the previous room membership.
func (c *Coordinator) Connect(identity models.Identity, connID string, sender registry.Sender) registry.Connection {
	conn, replaced := c.registry.Register(identity, connID, sender)
	if replaced {
		log.Printf("connection replaced user_id=%s conn_id=%s", identity.UserID, connID)
	}
	c.broadcast(models.OutboundEvent{
		Event: models.EventUserOnline,
		Payload: models.PresenceInfo{
			UserID:      identity.UserID,
			DisplayName: identity.DisplayName,
			Status:      models.StatusOnline,
			LastSeen:    conn.LastSeen,
		},
	})
	return conn
}

// Join moves the identity into a room, leaving its previous room first. It
// returns the snapshot the joiner renders from; the "joined" room-cast to the
// other members happens here.
func (c *Coordinator) Join(userID, roomID, displayName string) (models.RoomSnapshot, error) {
	// Validate before touching anything so a rejected join has no side
	// effects, not even leaving the previous room.
	if err := rooms.ValidateRoomID(roomID); err != nil {
		return models.RoomSnapshot{}, err
	}
	conn, ok := c.registry.Lookup(userID)
	if !ok {
		return models.RoomSnapshot{}, registry.ErrNotRegistered
	}

	member := models.Member{UserID: userID, DisplayName: conn.Identity.DisplayName}
	if displayName != "" {
		member.DisplayName = displayName
	}

	if conn.Room != "" && conn.Room != roomID {
		c.leaveRoom(conn.Room, member)
	}

	rejoin := c.rooms.IsMember(roomID, userID)
	if _, err := c.rooms.Add(roomID, member); err != nil {
		return models.RoomSnapshot{}, err
	}
	if err := c.registry.SetRoom(userID, roomID); err != nil {
		return models.RoomSnapshot{}, err
	}

	if !rejoin {
		c.roomCast(roomID, userID, models.OutboundEvent{
			Event: models.EventUserJoinedRoom,
			Payload: models.UserRoomPayload{
				RoomID:      roomID,
				UserID:      userID,
				DisplayName: member.DisplayName,
			},
		})
	}

	stats, err := c.rooms.Stats(roomID)
	if err != nil {
		return models.RoomSnapshot{}, err
	}
	return models.RoomSnapshot{
		RoomID:  roomID,
		Name:    stats.Name,
		Members: c.rooms.MembersOf(roomID),
		Recent:  c.messages.Page(roomID, 1, snapshotHistorySize),
		Stats:   stats,
	}, nil
}

// Leave removes the identity from the room and returns it to the roomless
// state. A no-op when the identity is not a member.
func (c *Coordinator) Leave(userID, roomID string) {
	conn, ok := c.registry.Lookup(userID)
	if !ok {
		return
	}
	member := models.Member{UserID: userID, DisplayName: conn.Identity.DisplayName}
	if c.leaveRoom(roomID, member) && conn.Room == roomID {
		if err := c.registry.SetRoom(userID, ""); err != nil {
			log.Printf("clear room failed user_id=%s: %v", userID, err)
		}
	}
}

// Disconnect marks the identity offline and starts the grace window. Room
// membership is kept until the window elapses so a quick reconnect resumes
// where it left off; the "left"/"offline" fan-out fires at purge time.
func (c *Coordinator) Disconnect(userID, connID string) {
	if _, ok := c.registry.Unregister(userID, connID); !ok {
		return
	}
	log.Printf("disconnect user_id=%s conn_id=%s, purge scheduled", userID, connID)
}

func (c *Coordinator) purge(identity models.Identity, roomID string) {
	if roomID != "" {
		c.leaveRoom(roomID, models.Member{UserID: identity.UserID, DisplayName: identity.DisplayName})
	}
	c.broadcast(models.OutboundEvent{
		Event: models.EventUserOffline,
		Payload: models.PresenceInfo{
			UserID:      identity.UserID,
			DisplayName: identity.DisplayName,
			Status:      models.StatusOffline,
		},
	})
	log.Printf("purged user_id=%s room=%q", identity.UserID, roomID)
}

func (c *Coordinator) leaveRoom(roomID string, member models.Member) bool {
	if !c.rooms.Remove(roomID, member.UserID) {
		return false
	}
	c.roomCast(roomID, member.UserID, models.OutboundEvent{
		Event: models.EventUserLeftRoom,
		Payload: models.UserRoomPayload{
			RoomID:      roomID,
			UserID:      member.UserID,
			DisplayName: member.DisplayName,
		},
	})
	return true
}

func (c *Coordinator) roomCast(roomID, exclude string, event models.OutboundEvent) {
	if c.caster == nil {
		return
	}
	c.caster.RoomCast(roomID, exclude, event)
}

func (c *Coordinator) broadcast(event models.OutboundEvent) {
	if c.caster == nil {
		return
	}
	c.caster.Broadcast(event)
}
