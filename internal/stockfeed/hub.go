// Package stockfeed pushes product stock changes to connected terminals over
// websockets.
package stockfeed

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

// Update is the message broadcast whenever stock changes.
type Update struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Stock     int             `json:"stock"`
	Price     decimal.Decimal `json:"price"`
	Reason    string          `json:"reason"`
	At        time.Time       `json:"at"`
}

// Publisher is implemented by anything that can fan out stock updates.
type Publisher interface {
	Publish(ctx context.Context, updates ...Update)
}

// Nop discards updates.
type Nop struct{}

func (Nop) Publish(context.Context, ...Update) {}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub tracks connected clients and fans out broadcasts from a single loop.
type Hub struct {
	logg       *logger.Logger
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	clients    map[*client]bool
	count      atomic.Int64
	done       chan struct{}
}

func NewHub(logg *logger.Logger) *Hub {
	return &Hub{
		logg:       logg,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*client]bool),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.count.Store(0)
			return

		case c := <-h.register:
			h.clients[c] = true
			h.count.Store(int64(len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.count.Store(int64(len(h.clients)))
			}

		case message := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// slow consumer
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

// Clients reports how many terminals are connected.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// Publish queues updates for broadcast. Updates are dropped when the
// broadcast buffer is full.
func (h *Hub) Publish(ctx context.Context, updates ...Update) {
	for _, update := range updates {
		if update.At.IsZero() {
			update.At = time.Now().UTC()
		}
		payload, err := json.Marshal(update)
		if err != nil {
			h.logg.Error(ctx, "stockfeed.encode_failed", err)
			continue
		}
		select {
		case h.broadcast <- payload:
		default:
			ctx = h.logg.WithField(ctx, "product_id", update.ProductID.String())
			h.logg.Warn(ctx, "stockfeed.broadcast_dropped")
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; it only exists to notice disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
