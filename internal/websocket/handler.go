package websocket

import (
	"log/slog"
	"net/http"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/opsdesk/internal/auth"
)

// HandleWebSocket upgrades the request and serves it as a hub client until
// the connection closes. An empty originPatterns only accepts same-origin
// connections.
func HandleWebSocket(hub *Hub, logger *slog.Logger, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err, "user_id", userID)
			return
		}

		started := time.Now()
		logger.Debug("websocket connected", "user_id", userID, "clients", hub.ClientCount()+1)
		err = NewClient(hub, conn, userID).Run(r.Context())
		logger.Debug("websocket closed",
			"user_id", userID,
			"duration", time.Since(started).Round(time.Millisecond),
			"reason", err,
		)
	}
}
