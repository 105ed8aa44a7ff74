package models

import "time"

// Roles recognized by the engine.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is an authenticated user reference attached to a live connection.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Presence status of an identity.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// PresenceInfo is the API view of an identity's presence.
type PresenceInfo struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Status      Status    `json:"status"`
	LastSeen    time.Time `json:"last_seen"`
}
