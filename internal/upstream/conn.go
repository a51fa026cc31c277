package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pborman/uuid"

	"chat-bridge/internal/observability"
)

var (
	// ErrNotConnected is returned when an operation needs an open transport.
	ErrNotConnected = errors.New("not connected to chat server")
	// ErrConnectionClosed is returned to requests whose connection went away
	// before the acknowledgement arrived.
	ErrConnectionClosed = errors.New("connection closed")
)

const defaultAckTimeout = 10 * time.Second

// Socket is the minimal frame channel Conn needs. *websocket.Conn
// satisfies it; tests substitute an in-memory pipe.
type Socket interface {
	WriteJSON(v interface{}) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// DialFunc opens a Socket to the chat server.
type DialFunc func(ctx context.Context, url string, header http.Header) (Socket, error)

// WebsocketDial dials with the default gorilla dialer.
func WebsocketDial(ctx context.Context, url string, header http.Header) (Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// EventHandler receives inbound push events in arrival order.
type EventHandler func(Event)

// StateFunc is notified when the connection opens or drops.
type StateFunc func(connected bool)

// Conn owns the single upstream transport connection: dial, authenticate,
// acknowledgement correlation and teardown. The event handler is fixed at
// construction and the read loop is the only dispatcher, so reconnects can
// never double-register handlers.
type Conn struct {
	url     string
	token   string
	dial    DialFunc
	handler EventHandler
	onState StateFunc

	ackTimeout time.Duration

	mu        sync.Mutex
	sock      Socket
	connected bool
	authed    bool
	gen       int

	// writeMu serializes socket writes. The websocket permits a single
	// concurrent writer, while requests, fire-and-forget emissions and the
	// typing auto-stop timer all write from their own goroutines.
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan Ack
}

func (c *Conn) writeJSON(sock Socket, v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return sock.WriteJSON(v)
}

// ConnOption customizes a Conn.
type ConnOption func(*Conn)

// WithDialFunc overrides the transport dialer.
func WithDialFunc(dial DialFunc) ConnOption {
	return func(c *Conn) { c.dial = dial }
}

// WithStateFunc registers a connection state listener.
func WithStateFunc(fn StateFunc) ConnOption {
	return func(c *Conn) { c.onState = fn }
}

// WithAckTimeout overrides the per-request acknowledgement timeout.
func WithAckTimeout(d time.Duration) ConnOption {
	return func(c *Conn) { c.ackTimeout = d }
}

// NewConn builds a Conn. The handler receives every inbound push event.
func NewConn(url, token string, handler EventHandler, opts ...ConnOption) *Conn {
	c := &Conn{
		url:        url,
		token:      token,
		dial:       WebsocketDial,
		handler:    handler,
		ackTimeout: defaultAckTimeout,
		pending:    make(map[string]chan Ack),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens the transport. Idempotent: a no-op when already connected.
// Authentication is issued separately by the caller.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.connected {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	sock, err := c.dial(ctx, c.url, header)
	if err != nil {
		observability.IncUpstreamConnect("error")
		return fmt.Errorf("dial chat server: %w", err)
	}

	c.mu.Lock()
	if c.connected {
		// Lost a race with a concurrent Connect; keep the first socket.
		c.mu.Unlock()
		_ = sock.Close()
		return nil
	}
	c.sock = sock
	c.connected = true
	c.authed = false
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	observability.IncUpstreamConnect("ok")
	go c.readLoop(sock, gen)

	if c.onState != nil {
		c.onState(true)
	}
	return nil
}

// Disconnect emits a best-effort disconnecting notice to the peer and
// tears the transport down. Idempotent. Store state is reset by callers.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return
	}
	sock := c.sock
	c.connected = false
	c.authed = false
	c.sock = nil
	c.gen++
	c.mu.Unlock()

	_ = c.writeJSON(sock, Command{Action: "disconnecting"})
	_ = sock.Close()
	c.failPending()

	if c.onState != nil {
		c.onState(false)
	}
}

// Connected reports whether the transport is open.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Authenticated reports whether the current connection has a recognized
// session.
func (c *Conn) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && c.authed
}

// Authenticate issues the authenticate request for the session identity.
func (c *Conn) Authenticate(ctx context.Context, userID int, organizationID string) error {
	ack, err := c.Do(ctx, "authenticate", authenticatePayload{UserID: userID, OrganizationID: organizationID})
	if err != nil {
		return err
	}
	if !ack.Success {
		if ack.Error != "" {
			return fmt.Errorf("authenticate rejected: %s", ack.Error)
		}
		return errors.New("authenticate rejected")
	}
	c.mu.Lock()
	c.authed = true
	c.mu.Unlock()
	return nil
}

// MarkUnauthenticated flags the session as no longer recognized, forcing
// re-authentication before the next request.
func (c *Conn) MarkUnauthenticated() {
	c.mu.Lock()
	c.authed = false
	c.mu.Unlock()
}

// Do sends a command and blocks until its acknowledgement, the timeout, or
// context cancellation.
func (c *Conn) Do(ctx context.Context, action string, payload any) (Ack, error) {
	c.mu.Lock()
	sock, open := c.sock, c.connected
	c.mu.Unlock()
	if !open {
		return Ack{}, ErrNotConnected
	}

	id := uuid.New()
	ch := make(chan Ack, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.writeJSON(sock, Command{Action: action, RequestID: id, Payload: payload}); err != nil {
		return Ack{}, fmt.Errorf("write %s: %w", action, err)
	}

	timer := time.NewTimer(c.ackTimeout)
	defer timer.Stop()

	select {
	case ack, ok := <-ch:
		if !ok {
			return Ack{}, ErrConnectionClosed
		}
		return ack, nil
	case <-timer.C:
		return Ack{}, fmt.Errorf("%s: acknowledgement timed out", action)
	case <-ctx.Done():
		return Ack{}, ctx.Err()
	}
}

// Emit sends a fire-and-forget command: no acknowledgement, no retry, and
// silently a no-op when not connected.
func (c *Conn) Emit(action string, payload any) {
	c.mu.Lock()
	sock, open := c.sock, c.connected
	c.mu.Unlock()
	if !open {
		return
	}
	if err := c.writeJSON(sock, Command{Action: action, Payload: payload}); err != nil {
		log.Printf("emit %s failed: %v", action, err)
	}
}

func (c *Conn) readLoop(sock Socket, gen int) {
	for {
		_, data, err := sock.ReadMessage()
		if err != nil {
			c.teardown(gen, err)
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("discarding malformed frame: %v", err)
			continue
		}

		if f.RequestID != "" {
			c.resolve(Ack{RequestID: f.RequestID, Success: f.Success, Error: f.Error, Data: f.Data})
			continue
		}
		if f.Type == "" {
			continue
		}
		observability.IncUpstreamEvent(f.Type)
		if c.handler != nil {
			c.handler(Event{Type: f.Type, Payload: f.Payload})
		}
	}
}

func (c *Conn) teardown(gen int, err error) {
	c.mu.Lock()
	if gen != c.gen {
		// A newer connection already replaced this one.
		c.mu.Unlock()
		return
	}
	sock := c.sock
	c.connected = false
	c.authed = false
	c.sock = nil
	c.mu.Unlock()

	if sock != nil {
		_ = sock.Close()
	}
	c.failPending()
	log.Printf("chat server connection lost: %v", err)

	if c.onState != nil {
		c.onState(false)
	}
}

func (c *Conn) resolve(ack Ack) {
	c.pendingMu.Lock()
	ch, ok := c.pending[ack.RequestID]
	if ok {
		delete(c.pending, ack.RequestID)
	}
	c.pendingMu.Unlock()
	if ok {
		ch <- ack
	}
}

func (c *Conn) failPending() {
	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
}
