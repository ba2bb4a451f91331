package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"hostelwatch/backend/internal/eventhub"
	"hostelwatch/backend/internal/models"
	"hostelwatch/backend/internal/rbac"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// The feed carries every committed record across all complaints, so it is
// gated on staff-tier read grants.
var eventFeedPerms = []string{"complaint:read:block", "complaint:read:all", "admin"}

// ServeEvents upgrades the connection and registers the caller for live
// ledger events. RequireAuth has already put the vit ID on the context; roles
// are re-resolved through the directory before the upgrade.
func (h *Handler) ServeEvents(c *gin.Context) {
	roles, err := h.Storage.RolesFor(actor(c))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "directory lookup failed"})
		return
	}
	if !rbac.HasAny(rbac.Permissions(roles), eventFeedPerms) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "staff only"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
		return
	}

	client := &eventhub.WebSocketClient{
		Hub:    h.Hub,
		UserID: actor(c),
		Conn:   conn,
		Send:   make(chan models.LogEvent, 64),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
