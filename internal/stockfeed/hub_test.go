package stockfeed

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/puntoventa-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcastsUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logger.New(logger.Options{Output: io.Discard}))
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.ServeWS(nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	productID := uuid.New()
	hub.Publish(ctx, Update{ProductID: productID, Name: "Coffee", Stock: 7, Price: decimal.RequireFromString("9.99"), Reason: "sale"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got Update
	require.NoError(t, json.Unmarshal(payload, &got))
	require.Equal(t, productID, got.ProductID)
	require.Equal(t, 7, got.Stock)
	require.Equal(t, "sale", got.Reason)
	require.False(t, got.At.IsZero())
}

func TestHubDropsClientOnDisconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logger.New(logger.Options{Output: io.Discard}))
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.ServeWS(nil))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestPublishWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewHub(logger.New(logger.Options{Output: io.Discard}))
	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			hub.Publish(context.Background(), Update{ProductID: uuid.New(), Stock: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with a full buffer")
	}
}

func TestHubChecksUpgradeOrigin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(logger.New(logger.Options{Output: io.Discard}))
	go hub.Run(ctx)

	srv := httptest.NewServer(hub.ServeWS([]string{"https://caja.example.com/"}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://caja.example.com"}})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.net"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
