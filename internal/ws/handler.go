package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-engine/internal/auth"
	"chat-engine/internal/coordinator"
	"chat-engine/internal/dispatcher"
	"chat-engine/internal/observability"
	"chat-engine/internal/telemetry"
)

// Handler authenticates and upgrades websocket connections, then bridges the
// transport to the dispatcher.
type Handler struct {
	verifier   auth.Verifier
	coord      *coordinator.Coordinator
	dispatcher *dispatcher.Dispatcher
	audit      *telemetry.AuditEmitter
}

// NewHandler constructs a Handler.
func NewHandler(verifier auth.Verifier, coord *coordinator.Coordinator, d *dispatcher.Dispatcher, audit *telemetry.AuditEmitter) *Handler {
	return &Handler{verifier: verifier, coord: coord, dispatcher: d, audit: audit}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle validates the bearer credential, upgrades the connection and runs
// the connection lifecycle. Rejection closes the channel before upgrade.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-engine/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	requestID := observability.RequestIDFromRequest(c.Request)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	identity, err := h.verifier.Verify(ctx, token)
	if err != nil {
		h.audit.Emit(ctx, "WARN", "websocket auth rejected: "+err.Error(), requestID, "")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(identity, conn)
	connectedAt := time.Now()
	ip := observability.IPFromRequest(c.Request)
	deviceID := observability.DeviceIDFromRequest(c.Request)

	h.coord.Connect(identity, client.ConnID(), client)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.connect", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_connect",
		Payload: map[string]any{
			"conn_id":   client.ConnID(),
			"user_id":   identity.UserID,
			"device_id": deviceID,
			"ip":        ip,
		},
	})

	go client.WritePump()

	go func() {
		closeReason := client.ReadLoop(h.dispatcher.Dispatch)

		h.dispatcher.HandleDisconnect(identity.UserID, client.ConnID())
		client.Close(closeReason)

		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		_ = observability.PublishEvent(ctx, "ws_events.disconnect", observability.EventEnvelope{
			EventType: "ws_events",
			EventName: "ws_disconnect",
			Payload: map[string]any{
				"conn_id":     client.ConnID(),
				"user_id":     identity.UserID,
				"device_id":   deviceID,
				"ip":          ip,
				"duration_ms": time.Since(connectedAt).Milliseconds(),
				"reason":      closeReason,
			},
		})
	}()
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}
