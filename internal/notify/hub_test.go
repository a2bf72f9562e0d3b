package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readEvent reads one broadcast frame with a deadline so tests never hang.
func readEvent(t *testing.T, conn *websocket.Conn) WSEvent {
	t.Helper()
	var ev WSEvent
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "failed to read websocket frame")
	require.NoError(t, json.Unmarshal(p, &ev))
	return ev
}

func setupHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub(nil)
	go hub.Run()
	t.Cleanup(hub.Close)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := strconv.ParseInt(r.URL.Query().Get("org_id"), 10, 64)
		ServeWS(hub, w, r, orgID)
	}))
	t.Cleanup(server.Close)

	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, wsURL string, orgID int64) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?org_id="+strconv.FormatInt(orgID, 10), nil)
	require.NoError(t, err, "failed to connect")
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReachesOrgRoom(t *testing.T) {
	hub, wsURL := setupHub(t)

	conn1 := dial(t, wsURL, 1)
	conn2 := dial(t, wsURL, 1)

	// give the hub a beat to register both clients
	time.Sleep(50 * time.Millisecond)

	hub.Publish(1, KindWorkflow, "rule fired")

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		ev := readEvent(t, conn)
		assert.Equal(t, KindWorkflow, ev.Kind)
		assert.Equal(t, int64(1), ev.OrgID)
		assert.Equal(t, "rule fired", ev.Message)
		assert.NotZero(t, ev.At)
	}
}

func TestPublishIsScopedToOrg(t *testing.T) {
	hub, wsURL := setupHub(t)

	connA := dial(t, wsURL, 1)
	connB := dial(t, wsURL, 2)
	time.Sleep(50 * time.Millisecond)

	hub.Publish(2, KindEscalation, "only org 2")

	ev := readEvent(t, connB)
	assert.Equal(t, "only org 2", ev.Message)

	// org 1 must not see it
	connA.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := connA.ReadMessage()
	assert.Error(t, err, "org 1 client unexpectedly received a frame")
}

func TestClientDisconnectLeavesRoom(t *testing.T) {
	hub, wsURL := setupHub(t)

	conn := dial(t, wsURL, 7)
	time.Sleep(50 * time.Millisecond)

	hub.mu.Lock()
	inRoom := len(hub.rooms[7])
	hub.mu.Unlock()
	require.Equal(t, 1, inRoom)

	conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.rooms[7]) == 0
	}, 2*time.Second, 20*time.Millisecond, "client never unregistered")
}

func TestPublishAfterCloseDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	hub.Close()

	done := make(chan struct{})
	go func() {
		hub.Publish(1, KindPayout, "dropped")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Close")
	}

	// double close is safe
	hub.Close()
}
