package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-engine/internal/middleware"
	"chat-engine/internal/models"
	"chat-engine/internal/msglog"
	"chat-engine/internal/registry"
	"chat-engine/internal/rooms"
	"chat-engine/internal/telemetry"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// QueryHandler serves the read-only query surface. It reads the same stores
// the dispatcher writes; no endpoint here mutates anything.
type QueryHandler struct {
	registry *registry.Registry
	rooms    *rooms.Directory
	messages *msglog.Log
	audit    *telemetry.AuditEmitter
}

// NewQueryHandler builds a QueryHandler.
func NewQueryHandler(reg *registry.Registry, dir *rooms.Directory, messages *msglog.Log, audit *telemetry.AuditEmitter) *QueryHandler {
	return &QueryHandler{registry: reg, rooms: dir, messages: messages, audit: audit}
}

// ListRooms returns every room with member and message counts.
func (h *QueryHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.rooms.ListStats()})
}

// GetRoomMessages returns a page of a room's history, most recent first.
func (h *QueryHandler) GetRoomMessages(c *gin.Context) {
	roomID := c.Param("room_id")
	if _, err := h.rooms.Stats(roomID); err != nil {
		if errors.Is(err, rooms.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
		return
	}

	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id":  roomID,
		"page":     page,
		"limit":    limit,
		"messages": h.messages.Page(roomID, page, limit),
	})
}

// GetRoomStats returns a room's counters. Admin only.
func (h *QueryHandler) GetRoomStats(c *gin.Context) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	if identity.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}

	roomID := c.Param("room_id")
	stats, err := h.rooms.Stats(roomID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}

	h.audit.Emit(c.Request.Context(), "INFO", "room stats read: "+roomID, requestIDFromContext(c), identity.UserID)
	c.JSON(http.StatusOK, stats)
}

// ListOnlineUsers returns the identities currently online.
func (h *QueryHandler) ListOnlineUsers(c *gin.Context) {
	users := h.registry.OnlineUsers()
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 1 {
		return fallback
	}
	return val
}
