package dispatcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"chat-engine/internal/coordinator"
	"chat-engine/internal/models"
	"chat-engine/internal/msglog"
	"chat-engine/internal/observability"
	"chat-engine/internal/registry"
	"chat-engine/internal/rooms"
)

// Archiver receives appended messages for out-of-band persistence. Enqueue
// must never block; it is always called after the log append has committed
// and no lock is held.
type Archiver interface {
	Enqueue(msg models.Message)
}

// Dispatcher is the single entry and exit point for client events. It owns no
// state beyond routing: it validates each inbound event against the sender's
// current state, invokes the relevant store, and fans the result out.
type Dispatcher struct {
	registry *registry.Registry
	rooms    *rooms.Directory
	messages *msglog.Log
	coord    *coordinator.Coordinator
	archiver Archiver

	// Serializes append+fan-out per room so every member observes messages
	// in log order. Fan-out only enqueues to per-connection buffers, so
	// nothing blocks while a room mutex is held.
	roomLocks sync.Map
}

// New wires the Dispatcher and registers it as the coordinator's broadcaster.
func New(reg *registry.Registry, dir *rooms.Directory, messages *msglog.Log, coord *coordinator.Coordinator, archiver Archiver) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		rooms:    dir,
		messages: messages,
		coord:    coord,
		archiver: archiver,
	}
	coord.SetBroadcaster(d)
	return d
}

// Dispatch decodes one inbound frame and routes it. Every rejected event
// yields exactly one error event back to the sender and no mutation.
func (d *Dispatcher) Dispatch(identity models.Identity, raw []byte) {
	var env models.InboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		d.sendError(identity.UserID, "malformed event envelope")
		return
	}
	observability.IncEventDispatched(env.Event)

	switch env.Event {
	case models.EventJoinRoom:
		d.handleJoinRoom(identity, env.Payload)
	case models.EventLeaveRoom:
		d.handleLeaveRoom(identity, env.Payload)
	case models.EventSendMessage:
		d.handleSendMessage(identity, env.Payload)
	case models.EventSendPrivateMessage:
		d.handlePrivateMessage(identity, env.Payload)
	case models.EventTypingStart:
		d.handleTyping(identity, env.Payload, models.EventUserTyping)
	case models.EventTypingStop:
		d.handleTyping(identity, env.Payload, models.EventUserStoppedTyping)
	case models.EventAddReaction:
		d.handleAddReaction(identity, env.Payload)
	case models.EventShareFile:
		d.handleShareFile(identity, env.Payload)
	case models.EventCallUser:
		d.handleCallSignal(identity, env.Payload, models.EventIncomingCall)
	case models.EventAnswerCall:
		d.handleCallSignal(identity, env.Payload, models.EventCallAnswered)
	case models.EventICECandidate:
		d.handleCallSignal(identity, env.Payload, models.EventICECandidate)
	case models.EventGetRoomStats:
		d.handleGetRoomStats(identity, env.Payload)
	default:
		d.sendError(identity.UserID, fmt.Sprintf("unknown event %q", env.Event))
	}
}

func (d *Dispatcher) handleJoinRoom(identity models.Identity, raw json.RawMessage) {
	var payload models.JoinRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" {
		d.sendError(identity.UserID, "join_room requires a room_id")
		return
	}

	snapshot, err := d.coord.Join(identity.UserID, payload.RoomID, payload.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, rooms.ErrInvalidRoom):
			d.sendError(identity.UserID, fmt.Sprintf("invalid room id %q", payload.RoomID))
		case errors.Is(err, registry.ErrNotRegistered):
			d.sendError(identity.UserID, "connection is not registered")
		default:
			d.sendError(identity.UserID, "could not join room")
		}
		return
	}

	d.Unicast(identity.UserID, models.OutboundEvent{Event: models.EventRoomJoined, Payload: snapshot})
}

func (d *Dispatcher) handleLeaveRoom(identity models.Identity, raw json.RawMessage) {
	var payload models.LeaveRoomPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		d.sendError(identity.UserID, "malformed leave_room payload")
		return
	}
	roomID := payload.RoomID
	if roomID == "" {
		conn, ok := d.registry.Lookup(identity.UserID)
		if !ok || conn.Room == "" {
			d.sendError(identity.UserID, "not in a room")
			return
		}
		roomID = conn.Room
	}
	d.coord.Leave(identity.UserID, roomID)
}

func (d *Dispatcher) handleSendMessage(identity models.Identity, raw json.RawMessage) {
	var payload models.SendMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" || payload.Content == "" {
		d.sendError(identity.UserID, "send_message requires room_id and content")
		return
	}
	msg, ok := d.appendToRoom(identity, payload.RoomID, payload.Content, models.MessageTypeText, models.EventNewMessage, nil)
	if !ok {
		return
	}
	d.archive(msg)
}

func (d *Dispatcher) handleShareFile(identity models.Identity, raw json.RawMessage) {
	var payload models.ShareFilePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" || payload.FileURL == "" {
		d.sendError(identity.UserID, "share_file requires room_id and file_url")
		return
	}
	wrap := func(msg models.Message) any {
		return models.FileSharedPayload{Message: msg, FileName: payload.FileName}
	}
	msg, ok := d.appendToRoom(identity, payload.RoomID, payload.FileURL, models.MessageTypeFile, models.EventFileShared, wrap)
	if !ok {
		return
	}
	d.archive(msg)
}

// appendToRoom validates membership, appends under the room's dispatch lock
// and room-casts to every member, sender included. The wrap func shapes the
// outbound payload; nil means the message itself.
func (d *Dispatcher) appendToRoom(identity models.Identity, roomID, content, msgType, event string, wrap func(models.Message) any) (models.Message, bool) {
	conn, ok := d.registry.Lookup(identity.UserID)
	if !ok || conn.Room != roomID || !d.rooms.IsMember(roomID, identity.UserID) {
		d.sendError(identity.UserID, fmt.Sprintf("not a member of room %q", roomID))
		return models.Message{}, false
	}

	sender := models.Member{UserID: identity.UserID, DisplayName: identity.DisplayName}

	mu := d.roomLock(roomID)
	mu.Lock()
	msg := d.messages.Append(roomID, sender, content, msgType)
	d.rooms.NoteMessage(roomID)
	payload := any(msg)
	if wrap != nil {
		payload = wrap(msg)
	}
	d.RoomCast(roomID, "", models.OutboundEvent{Event: event, Payload: payload})
	mu.Unlock()

	return msg, true
}

func (d *Dispatcher) handlePrivateMessage(identity models.Identity, raw json.RawMessage) {
	var payload models.PrivateMessagePayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RecipientID == "" || payload.Content == "" {
		d.sendError(identity.UserID, "send_private_message requires recipient_id and content")
		return
	}
	if _, ok := d.registry.Lookup(payload.RecipientID); !ok {
		d.sendError(identity.UserID, fmt.Sprintf("recipient %q is not connected", payload.RecipientID))
		return
	}

	event := models.PrivateMessageEvent{
		SenderID:    identity.UserID,
		SenderName:  identity.DisplayName,
		RecipientID: payload.RecipientID,
		Content:     payload.Content,
	}
	d.Unicast(payload.RecipientID, models.OutboundEvent{Event: models.EventPrivateMessage, Payload: event})
	d.Unicast(identity.UserID, models.OutboundEvent{Event: models.EventPrivateMessageSent, Payload: event})
}

func (d *Dispatcher) handleTyping(identity models.Identity, raw json.RawMessage, event string) {
	var payload models.TypingPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" {
		d.sendError(identity.UserID, "typing events require a room_id")
		return
	}
	conn, ok := d.registry.Lookup(identity.UserID)
	if !ok || conn.Room != payload.RoomID {
		d.sendError(identity.UserID, fmt.Sprintf("not a member of room %q", payload.RoomID))
		return
	}

	d.RoomCast(payload.RoomID, identity.UserID, models.OutboundEvent{
		Event: event,
		Payload: models.UserRoomPayload{
			RoomID:      payload.RoomID,
			UserID:      identity.UserID,
			DisplayName: identity.DisplayName,
		},
	})
}

func (d *Dispatcher) handleAddReaction(identity models.Identity, raw json.RawMessage) {
	var payload models.AddReactionPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" || payload.Emoji == "" {
		d.sendError(identity.UserID, "add_reaction requires room_id, message_id and emoji")
		return
	}

	count, err := d.messages.AddReaction(payload.RoomID, payload.MessageID, payload.Emoji, identity.UserID)
	if err != nil {
		d.sendError(identity.UserID, fmt.Sprintf("message %d not found in room %q", payload.MessageID, payload.RoomID))
		return
	}
	observability.IncReaction()

	d.RoomCast(payload.RoomID, "", models.OutboundEvent{
		Event: models.EventReactionAdded,
		Payload: models.ReactionAddedPayload{
			RoomID:    payload.RoomID,
			MessageID: payload.MessageID,
			Emoji:     payload.Emoji,
			UserID:    identity.UserID,
			Count:     count,
		},
	})
}

func (d *Dispatcher) handleCallSignal(identity models.Identity, raw json.RawMessage, event string) {
	var payload models.CallSignalPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RecipientID == "" {
		d.sendError(identity.UserID, "call signaling requires a recipient_id")
		return
	}
	if _, ok := d.registry.SenderFor(payload.RecipientID); !ok {
		d.sendError(identity.UserID, fmt.Sprintf("recipient %q is not connected", payload.RecipientID))
		return
	}

	d.Unicast(payload.RecipientID, models.OutboundEvent{
		Event: event,
		Payload: models.CallEventPayload{
			CallerID:   identity.UserID,
			CallerName: identity.DisplayName,
			Signal:     payload.Signal,
			Candidate:  payload.Candidate,
		},
	})
}

func (d *Dispatcher) handleGetRoomStats(identity models.Identity, raw json.RawMessage) {
	if identity.Role != models.RoleAdmin {
		d.sendError(identity.UserID, "room stats require admin role")
		return
	}
	var payload models.RoomStatsPayload
	if err := json.Unmarshal(raw, &payload); err != nil || payload.RoomID == "" {
		d.sendError(identity.UserID, "get_room_stats requires a room_id")
		return
	}

	stats, err := d.rooms.Stats(payload.RoomID)
	if err != nil {
		d.sendError(identity.UserID, fmt.Sprintf("room %q not found", payload.RoomID))
		return
	}
	d.Unicast(identity.UserID, models.OutboundEvent{Event: models.EventRoomStats, Payload: stats})
}

// HandleDisconnect routes a transport-level disconnect to the coordinator.
func (d *Dispatcher) HandleDisconnect(userID, connID string) {
	d.coord.Disconnect(userID, connID)
}

// RoomCast emits to every member of the room except excludeUserID ("" casts
// to everyone). The member set is snapshotted once, so concurrent joins and
// leaves cannot cause partial or duplicate delivery.
func (d *Dispatcher) RoomCast(roomID, excludeUserID string, event models.OutboundEvent) {
	for _, m := range d.rooms.MembersOf(roomID) {
		if m.UserID == excludeUserID {
			continue
		}
		d.deliver(m.UserID, event)
	}
}

// Broadcast emits to every online connection.
func (d *Dispatcher) Broadcast(event models.OutboundEvent) {
	for _, u := range d.registry.OnlineUsers() {
		d.deliver(u.UserID, event)
	}
}

// Unicast emits to a single identity, best effort.
func (d *Dispatcher) Unicast(userID string, event models.OutboundEvent) {
	d.deliver(userID, event)
}

// deliver is fire-and-forget: an unreachable recipient is logged and dropped,
// never rolled back.
func (d *Dispatcher) deliver(userID string, event models.OutboundEvent) {
	sender, ok := d.registry.SenderFor(userID)
	if !ok {
		observability.IncDeliveryDrop()
		return
	}
	if err := sender.Send(event); err != nil {
		log.Printf("delivery dropped user_id=%s event=%s: %v", userID, event.Event, err)
		observability.IncDeliveryDrop()
	}
}

func (d *Dispatcher) sendError(userID, message string) {
	log.Printf("rejected event user_id=%s: %s", userID, message)
	observability.IncEventRejected()
	d.Unicast(userID, models.OutboundEvent{
		Event:   models.EventError,
		Payload: models.ErrorPayload{Message: message},
	})
}

func (d *Dispatcher) archive(msg models.Message) {
	if d.archiver == nil {
		return
	}
	d.archiver.Enqueue(msg)
}

func (d *Dispatcher) roomLock(roomID string) *sync.Mutex {
	mu, _ := d.roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
