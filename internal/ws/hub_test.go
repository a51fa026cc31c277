package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-bridge/internal/observability"
)

func newTestServer(t *testing.T, hub *Hub, apiToken string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", NewHandler(hub, apiToken, 1).Handle)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestNotifyReachesAllSubscribers(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub, "")

	first := dialWS(t, srv, "")
	second := dialWS(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Notify("message_appended", map[string]any{"id": 42})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev PushEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, "message_appended", ev.Event)
	}
}

func TestClosedSubscriberIsDropped(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub, "")

	conn := dialWS(t, srv, "")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	// Broadcasting to nobody must not panic.
	hub.Notify("presence_changed", []int{7})
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []observability.EventEnvelope
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if envelope, ok := event.(observability.EventEnvelope); ok {
		p.events = append(p.events, envelope)
	}
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName)
	}
	return out
}

func TestLifecycleEventsFlowThroughSharedPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	observability.SetPublisher(pub)
	t.Cleanup(func() { observability.SetPublisher(nil) })

	hub := NewHub()
	srv := newTestServer(t, hub, "")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Request-Id": []string{"req-77"}})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	conn.Close()

	require.Eventually(t, func() bool {
		names := pub.names()
		return len(names) >= 2 && names[0] == "ws_connect"
	}, time.Second, 5*time.Millisecond)

	names := pub.names()
	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, "ws_events", pub.events[0].EventType)
	assert.Equal(t, "req-77", pub.events[0].RequestID, "correlation id rides in the envelope")
	assert.Contains(t, names, "ws_disconnect")
}

func TestHandshakeRequiresToken(t *testing.T) {
	hub := NewHub()
	srv := newTestServer(t, hub, "secret")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	dialWS(t, srv, "?token=secret")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
}
