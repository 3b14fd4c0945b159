package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"renttrack/internal/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Token auth, no cookies; cross-origin clients are fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// WatchHandler streams live item snapshots over a websocket.
type WatchHandler struct {
	Hub *live.Hub
}

// Watch handles GET /api/items/watch. Each message is a complete snapshot of
// the user's items, newest first: one on connect, then one per change.
func (h *WatchHandler) Watch(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sub, err := h.Hub.Subscribe(r.Context(), claims.UserID)
	if err != nil {
		zap.S().Errorw("opening item subscription", "user", claims.UserID, "err", err)
		return
	}
	defer sub.Close()

	// Read pump: the client sends nothing, but reading is how we notice the
	// connection closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case err := <-sub.Errs:
			zap.S().Errorw("item subscription failed", "user", claims.UserID, "err", err)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "snapshot query failed"),
				time.Now().Add(writeTimeout))
			return
		case items, ok := <-sub.Snapshots:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(items); err != nil {
				return
			}
		}
	}
}
