package livefeed

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blackmichael/swapbot/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHubBroadcastsVouches(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(testLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 10*time.Millisecond)

	v := domain.Vouch{
		User1:     "alice",
		User2:     "bob",
		Permalink: "/r/x/comments/t/c1",
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	hub.VouchRecorded(v)

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var got domain.Vouch
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, v, got)
	}

	hub.Close()
	assert.Equal(t, 0, hub.Clients())
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(testLogger())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)

	// No clients left; broadcasting is a no-op.
	hub.VouchRecorded(domain.Vouch{User1: "alice", User2: "bob", Permalink: "p"})
	hub.Close()
}

func TestHubRejectsAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(testLogger())
	hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	assert.Equal(t, 0, hub.Clients())
}
