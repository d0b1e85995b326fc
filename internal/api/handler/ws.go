package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"anonpair/backend/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The token is checked before the upgrade, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeOversight upgrades the connection and streams the oversight feed
// until the client disconnects.
func (h *Handler) ServeOversight(c *gin.Context) {
	if h.Feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "oversight feed is disabled"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logger.Warn("oversight upgrade failed", "err", err)
		return
	}
	logger.Info("oversight client connected", "session", c.GetString("session"))
	h.Feed.Serve(conn)
	logger.Info("oversight client disconnected", "session", c.GetString("session"))
}
