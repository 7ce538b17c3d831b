package stockfeed

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// newUpgrader accepts same-host upgrades, clients that send no Origin
// (terminals, curl) and the browser origins configured for CORS.
func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	wildcard := false
	for _, o := range allowedOrigins {
		o = strings.ToLower(strings.TrimRight(strings.TrimSpace(o), "/"))
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || wildcard {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			if strings.EqualFold(u.Host, r.Host) {
				return true
			}
			return allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
		},
	}
}

// ServeWS upgrades the request and subscribes the terminal to stock updates.
func (h *Hub) ServeWS(allowedOrigins []string) http.HandlerFunc {
	upgrader := newUpgrader(allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logg.Warn(h.logg.WithField(r.Context(), "origin", r.Header.Get("Origin")), "stockfeed.upgrade_failed")
			return
		}
		c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
		select {
		case h.register <- c:
		case <-h.done:
			_ = conn.Close()
			return
		}
		h.logg.Info(r.Context(), "stockfeed.client_connected")

		go c.writePump()
		go h.readPump(c)
	}
}
