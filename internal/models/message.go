package models

import "time"

// Message types.
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// Message is a single entry in a room's append-only log. IDs are assigned by
// the log and are strictly increasing within a room.
type Message struct {
	ID         int64               `json:"id"`
	RoomID     string              `json:"room_id"`
	SenderID   string              `json:"sender_id"`
	SenderName string              `json:"sender_name"`
	Content    string              `json:"content"`
	Type       string              `json:"type"`
	Edited     bool                `json:"edited"`
	Reactions  map[string][]string `json:"reactions,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}
