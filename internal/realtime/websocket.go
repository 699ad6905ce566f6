package realtime

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/salon-scheduler/internal/persistence"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	sendBuffer   = 16
)

// Notice is the message pushed to dashboards. It carries no payload; clients
// re-fetch the named entity.
type Notice struct {
	Entity persistence.Entity `json:"entity"`
}

// WebsocketHandler upgrades dashboard connections and pushes a Notice for
// every change on the watched entities.
type WebsocketHandler struct {
	feed     persistence.ChangeFeed
	entities []persistence.Entity
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWebsocketHandler watches appointments and blockages on feed. Browsers may
// connect from the serving host or from one of allowedOrigins; "*" admits any
// origin. Requests without an Origin header are not from a browser and pass.
func NewWebsocketHandler(feed persistence.ChangeFeed, logger *slog.Logger, allowedOrigins ...string) *WebsocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebsocketHandler{
		feed:     feed,
		entities: []persistence.Entity{persistence.EntityAppointments, persistence.EntityBlockages},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger.With("component", "realtime.websocket"),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	anyOrigin := false
	for _, origin := range allowed {
		origin = normalizeOrigin(origin)
		if origin == "*" {
			anyOrigin = true
		}
		if origin != "" {
			set[origin] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || anyOrigin {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		_, ok := set[normalizeOrigin(origin)]
		return ok
	}
}

func normalizeOrigin(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	notices := make(chan Notice, sendBuffer)
	for _, entity := range h.entities {
		unsubscribe := h.feed.Subscribe(entity, func(event persistence.ChangeEvent) {
			select {
			case notices <- Notice{Entity: event.Entity}:
			default:
				// Slow client; it will catch up on the next notice.
			}
		})
		defer unsubscribe()
	}

	closed := make(chan struct{})
	go h.readLoop(conn, closed)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case notice := <-notices:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(notice); err != nil {
				h.logger.DebugContext(r.Context(), "websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames so control messages are processed, and
// closes done when the peer goes away.
func (h *WebsocketHandler) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
