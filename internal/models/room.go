package models

import "time"

// RoomStats is a point-in-time view of a room's counters.
type RoomStats struct {
	RoomID       string    `json:"room_id"`
	Name         string    `json:"name"`
	MemberCount  int       `json:"member_count"`
	MessageCount int64     `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// RoomSnapshot is what a joining client receives: enough to render the room
// without further round trips.
type RoomSnapshot struct {
	RoomID  string    `json:"room_id"`
	Name    string    `json:"name"`
	Members []Member  `json:"members"`
	Recent  []Message `json:"recent_messages"`
	Stats   RoomStats `json:"stats"`
}

// Member is a room member as seen in snapshots and join/leave events.
type Member struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}
