package realtime

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/salon-scheduler/internal/persistence"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubDeliversByEntity(t *testing.T) {
	hub := NewHub()
	var appointments, blockages int
	unsubscribe := hub.Subscribe(persistence.EntityAppointments, func(persistence.ChangeEvent) { appointments++ })
	hub.Subscribe(persistence.EntityBlockages, func(persistence.ChangeEvent) { blockages++ })

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, persistence.ChangeEvent{Entity: persistence.EntityAppointments}))
	require.NoError(t, hub.Publish(ctx, persistence.ChangeEvent{Entity: persistence.EntityProcedures}))
	assert.Equal(t, 1, appointments)
	assert.Equal(t, 0, blockages)

	unsubscribe()
	unsubscribe()
	require.NoError(t, hub.Publish(ctx, persistence.ChangeEvent{Entity: persistence.EntityAppointments}))
	assert.Equal(t, 1, appointments)
	assert.Equal(t, 0, hub.Subscribers(persistence.EntityAppointments))
	assert.Equal(t, 1, hub.Subscribers(persistence.EntityBlockages))
}

func TestRedisFeedRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewRedisFeed(client, "", discardLogger())
	var (
		mu       sync.Mutex
		received []persistence.ChangeEvent
	)
	feed.Subscribe(persistence.EntityBlockages, func(event persistence.ChangeEvent) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
	})
	require.NoError(t, feed.Start(ctx))

	at := time.Date(2024, time.June, 11, 10, 0, 0, 0, time.UTC)
	require.NoError(t, feed.Publish(ctx, persistence.ChangeEvent{
		Entity: persistence.EntityBlockages,
		Op:     persistence.OpDelete,
		ID:     "blk-1",
		At:     at,
	}))
	require.NoError(t, client.Publish(ctx, DefaultChannel, "not json").Err())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	event := received[0]
	mu.Unlock()
	assert.Equal(t, persistence.OpDelete, event.Op)
	assert.Equal(t, "blk-1", event.ID)
	assert.True(t, event.At.Equal(at))

	cancel()
	feed.Wait()
}

func TestWebsocketHandlerPushesNotices(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(NewWebsocketHandler(hub, discardLogger()))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.Subscribers(persistence.EntityAppointments) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), persistence.ChangeEvent{
		Entity: persistence.EntityAppointments,
		Op:     persistence.OpInsert,
		ID:     "appt-1",
	}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var notice Notice
	require.NoError(t, conn.ReadJSON(&notice))
	assert.Equal(t, persistence.EntityAppointments, notice.Entity)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return hub.Subscribers(persistence.EntityAppointments) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebsocketHandlerChecksOrigin(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(NewWebsocketHandler(hub, discardLogger(), "https://painel.example.com/"))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	dial := func(origin string) (*http.Response, error) {
		header := http.Header{}
		if origin != "" {
			header.Set("Origin", origin)
		}
		conn, resp, err := websocket.DefaultDialer.Dial(url, header)
		if conn != nil {
			_ = conn.Close()
		}
		return resp, err
	}

	t.Run("same host", func(t *testing.T) {
		_, err := dial(server.URL)
		require.NoError(t, err)
	})

	t.Run("no origin header", func(t *testing.T) {
		_, err := dial("")
		require.NoError(t, err)
	})

	t.Run("listed origin", func(t *testing.T) {
		_, err := dial("https://PAINEL.example.com")
		require.NoError(t, err)
	})

	t.Run("foreign origin", func(t *testing.T) {
		resp, err := dial("https://evil.example.net")
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func TestWebsocketHandlerWildcardOrigin(t *testing.T) {
	server := httptest.NewServer(NewWebsocketHandler(NewHub(), discardLogger(), "*"))
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "https://anywhere.example.org")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), header)
	require.NoError(t, err)
	_ = conn.Close()
}
