package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/arturoibarra/ovh-fleet/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // auth already happened via X-API-Key / ?key before upgrade
	},
}

// serveEvents upgrades the connection and streams hub events until the
// client disconnects. Inbound client messages are read and discarded; the
// endpoint is observational only, never a command channel.
func serveEvents(hub *events.Hub, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ch, unregister := hub.Register()
		defer unregister()

		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for event := range ch {
			if err := conn.WriteMessage(websocket.TextMessage, event); err != nil {
				return
			}
		}
	}
}
