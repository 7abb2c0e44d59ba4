package notif

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"contentflow/internal/common"
	"contentflow/internal/config"
	"contentflow/internal/logger"
	"contentflow/internal/workflow"
)

const writeWait = 10 * time.Second

type WSHandler struct {
	hub          *Hub
	buffer       int
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

func NewWSHandler(hub *Hub, cfg config.SyncConfig) *WSHandler {
	ping := cfg.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	return &WSHandler{
		hub:          hub,
		buffer:       cfg.SessionBuffer,
		pingInterval: ping,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4 * 1024,
			// bearer tokens authenticate the channel, not cookies
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Events serves GET /items/events?scope=. The first message is {"type":"connected"};
// every later one is {"action","itemId"} for a change committed in the scope.
func (h *WSHandler) Events(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")
	if err := common.ValidateScope(scope); err != nil {
		common.WriteError(w, err)
		return
	}
	actor, ok := common.ActorFromContext(r.Context())
	if !ok {
		common.WriteErrorBody(w, http.StatusUnauthorized, "unauthenticated", "authorization required")
		return
	}
	if err := workflow.CheckView(actor); err != nil {
		common.WriteError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithContext(r.Context()).WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	obs := NewStreamObserver(scope, h.buffer)
	h.hub.Subscribe(obs)
	defer func() {
		h.hub.Unsubscribe(obs)
		obs.Close()
	}()

	log := logger.WithContext(r.Context()).WithField("scope", scope)
	log.Info("push session opened")
	defer log.Info("push session closed")

	if err := h.write(conn, common.ChangeNotification{Type: common.NotificationConnected}); err != nil {
		return
	}

	// the reader only drains control frames and notices the peer going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-obs.Notifications():
			if !ok {
				return
			}
			if err := h.write(conn, n); err != nil {
				log.WithError(err).Debug("push write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-h.hub.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (h *WSHandler) write(conn *websocket.Conn, n common.ChangeNotification) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(n)
}
