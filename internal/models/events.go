package models

import "encoding/json"

// Inbound event names the dispatcher recognizes. Anything else is rejected
// with an error event.
const (
	EventJoinRoom           = "join_room"
	EventLeaveRoom          = "leave_room"
	EventSendMessage        = "send_message"
	EventSendPrivateMessage = "send_private_message"
	EventTypingStart        = "typing_start"
	EventTypingStop         = "typing_stop"
	EventAddReaction        = "add_reaction"
	EventShareFile          = "share_file"
	EventCallUser           = "call_user"
	EventAnswerCall         = "answer_call"
	EventICECandidate       = "ice_candidate"
	EventGetRoomStats       = "get_room_stats"
)

// Outbound event names.
const (
	EventRoomJoined         = "room_joined"
	EventUserJoinedRoom     = "user_joined_room"
	EventUserLeftRoom       = "user_left_room"
	EventNewMessage         = "new_message"
	EventPrivateMessage     = "private_message"
	EventPrivateMessageSent = "private_message_sent"
	EventUserTyping         = "user_typing"
	EventUserStoppedTyping  = "user_stopped_typing"
	EventReactionAdded      = "reaction_added"
	EventFileShared         = "file_shared"
	EventIncomingCall       = "incoming_call"
	EventCallAnswered       = "call_answered"
	EventRoomStats          = "room_stats"
	EventUserOnline         = "user_online"
	EventUserOffline        = "user_offline"
	EventError              = "error"
)

// InboundEnvelope is the wire shape of every client event. The payload is
// decoded once, into the variant matching the event name.
type InboundEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// OutboundEvent is the wire shape of every server event.
type OutboundEvent struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Inbound payload variants, one per recognized event name.

type JoinRoomPayload struct {
	RoomID      string `json:"room_id"`
	DisplayName string `json:"display_name"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"room_id"`
}

type SendMessagePayload struct {
	RoomID  string `json:"room_id"`
	Content string `json:"content"`
}

type PrivateMessagePayload struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

type TypingPayload struct {
	RoomID string `json:"room_id"`
}

type AddReactionPayload struct {
	RoomID    string `json:"room_id"`
	MessageID int64  `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type ShareFilePayload struct {
	RoomID   string `json:"room_id"`
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}

type CallSignalPayload struct {
	RecipientID string          `json:"recipient_id"`
	Signal      json.RawMessage `json:"signal,omitempty"`
	Candidate   json.RawMessage `json:"candidate,omitempty"`
}

type RoomStatsPayload struct {
	RoomID string `json:"room_id"`
}

// Outbound payload shapes shared by several events.

type UserRoomPayload struct {
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

type PrivateMessageEvent struct {
	SenderID    string `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

type ReactionAddedPayload struct {
	RoomID    string `json:"room_id"`
	MessageID int64  `json:"message_id"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"user_id"`
	Count     int    `json:"count"`
}

type FileSharedPayload struct {
	Message  Message `json:"message"`
	FileName string  `json:"file_name"`
}

type CallEventPayload struct {
	CallerID   string          `json:"caller_id"`
	CallerName string          `json:"caller_name"`
	Signal     json.RawMessage `json:"signal,omitempty"`
	Candidate  json.RawMessage `json:"candidate,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
