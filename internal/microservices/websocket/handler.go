package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HTTP upgrade handler to WebSocket connections

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// same-origin page and local tools only, no auth on this surface
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// AngleHandler: upgrade and hold the connection until the subscriber leaves.
// ctx is the server lifetime; closing it sends a going-away frame to every subscriber.
func AngleHandler(ctx context.Context, source AngleSource, interval time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already replied with an HTTP error
			logger.Warn("angle_upgrade_failed", "error", err.Error())
			return
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(c.Request.Context(), cancel)
		defer stop()

		NewClient(conn, source, interval, logger).Run(runCtx)
	}
}
