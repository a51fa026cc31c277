package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"chat-bridge/internal/models"
	"chat-bridge/internal/observability"
	"chat-bridge/internal/restclient"
	"chat-bridge/internal/session"
	"chat-bridge/internal/store"
)

var (
	// ErrServerUnreachable is the terminal error after the connect-and-settle
	// retry failed.
	ErrServerUnreachable = errors.New("chat server unreachable")
	// ErrEmptyMessage rejects sends with no content and no attachments
	// before anything reaches the transport.
	ErrEmptyMessage = errors.New("message has no content and no attachments")
)

const (
	defaultSettleDelay  = time.Second
	defaultAuthBackoff  = time.Second
	defaultTypingWindow = 3 * time.Second
	maxAuthAttempts     = 3 // 1 initial + 2 retries
)

// Connection is the transport surface the protocol drives. *Conn
// implements it; tests substitute a scripted fake.
type Connection interface {
	Connect(ctx context.Context) error
	Disconnect()
	Connected() bool
	Authenticated() bool
	Authenticate(ctx context.Context, userID int, organizationID string) error
	MarkUnauthenticated()
	Do(ctx context.Context, action string, payload any) (Ack, error)
	Emit(action string, payload any)
}

// History fetches conversation and message history over REST.
type History interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	GetMessages(ctx context.Context, conversationID string, page int) ([]models.DayGroup, error)
}

// Notifier pushes store change events to the UI layer.
type Notifier interface {
	Notify(event string, payload any)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(string, any) {}

// SendRequest carries everything needed to send one message.
type SendRequest struct {
	ConversationID   string              `json:"conversation_id"`
	ReceiverID       int                 `json:"receiver_id"`
	ReceiverName     string              `json:"receiver_name"`
	Content          string              `json:"content"`
	Attachments      []models.Attachment `json:"attachments,omitempty"`
	TaskID           string              `json:"task_id,omitempty"`
	TaskTitle        string              `json:"task_title,omitempty"`
	TaskDescription  string              `json:"task_description,omitempty"`
	ReplyToMessageID int64               `json:"reply_to_message_id,omitempty"`
}

// CreateRequest starts a new conversation with a counterpart.
type CreateRequest struct {
	ReceiverID     int    `json:"receiver_id"`
	InitialMessage string `json:"initial_message,omitempty"`
	TaskID         string `json:"task_id,omitempty"`
	TaskTitle      string `json:"task_title,omitempty"`
}

// CreateResult is the acknowledgement payload of create_conversation.
type CreateResult struct {
	ConversationID string      `json:"conversation_id"`
	Sender         models.User `json:"sender"`
	Receiver       models.User `json:"receiver"`
}

// Chat is the operation surface exposed to the UI facade.
type Chat interface {
	Connect(ctx context.Context) error
	Disconnect()
	JoinConversation(ctx context.Context, conversationID string) error
	SelectConversation(ctx context.Context, conversationID string) error
	SendMessage(ctx context.Context, req SendRequest) (models.Message, error)
	CreateConversation(ctx context.Context, req CreateRequest) (CreateResult, error)
	StartTyping(conversationID string, receiverID int)
	StopTyping(conversationID string, receiverID int)
	RefreshConversations(ctx context.Context) error
}

// Client implements the join/send protocol on top of a Connection: every
// operation is a request/single-acknowledgement exchange with one shared
// retry policy for the not-connected and not-authenticated cases.
type Client struct {
	conn     Connection
	session  *session.Session
	store    *store.Store
	history  History
	notifier Notifier

	settleDelay  time.Duration
	authBackoff  time.Duration
	typingWindow time.Duration
	now          func() time.Time

	typing typingState
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithConnection injects a transport, replacing the default websocket Conn.
func WithConnection(conn Connection) ClientOption {
	return func(c *Client) { c.conn = conn }
}

// WithSettleDelay overrides the connect settle delay.
func WithSettleDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.settleDelay = d }
}

// WithAuthBackoff overrides the backoff between authentication retries.
func WithAuthBackoff(d time.Duration) ClientOption {
	return func(c *Client) { c.authBackoff = d }
}

// WithTypingWindow overrides the typing debounce window.
func WithTypingWindow(d time.Duration) ClientOption {
	return func(c *Client) { c.typingWindow = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// NewClient wires the protocol to a session, the state store, the REST
// history collaborator and the UI notifier. Unless a Connection is
// injected, a websocket Conn to url is created with this client as the
// single event handler.
func NewClient(url string, sess *session.Session, st *store.Store, history History, notifier Notifier, opts ...ClientOption) *Client {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	c := &Client{
		session:      sess,
		store:        st,
		history:      history,
		notifier:     notifier,
		settleDelay:  defaultSettleDelay,
		authBackoff:  defaultAuthBackoff,
		typingWindow: defaultTypingWindow,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.conn == nil {
		c.conn = NewConn(url, sess.Token, c.HandleEvent, WithStateFunc(c.handleConnState))
	}
	return c
}

// Connect opens the transport and authenticates the session once. On an
// authentication failure the connection stays open but inert; the retry
// budget applies when the next operation runs.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := otel.Tracer("chat-bridge/upstream").Start(ctx, "chat.connect")
	defer span.End()

	if err := c.conn.Connect(ctx); err != nil {
		return err
	}
	if c.conn.Authenticated() {
		return nil
	}
	if err := c.conn.Authenticate(ctx, c.session.UserID, c.session.OrganizationID); err != nil {
		return fmt.Errorf("chat session not authenticated: %w", err)
	}
	return nil
}

// Connected reports whether the upstream transport is open.
func (c *Client) Connected() bool { return c.conn.Connected() }

// Authenticated reports whether the upstream session is recognized.
func (c *Client) Authenticated() bool { return c.conn.Authenticated() }

// Disconnect clears local timers and closes the transport. Conversation
// and message state are left for the caller to reset.
func (c *Client) Disconnect() {
	c.clearTypingTimer()
	c.conn.Disconnect()
}

// request runs the shared retry state machine around one action:
//
//  1. not connected: connect, wait the settle delay, re-check once, then
//     fail terminally with ErrServerUnreachable;
//  2. not authenticated: authenticate with a budget of 3 attempts total,
//     backing off between attempts;
//  3. an acknowledged rejection whose error text flags an authentication
//     problem loops back to 2 inside the same budget; every other
//     rejection is terminal and carries the server's message.
func (c *Client) request(ctx context.Context, action string, payload any) (Ack, error) {
	ctx, span := otel.Tracer("chat-bridge/upstream").Start(ctx, "chat."+action)
	defer span.End()

	observability.IncProtocolRequest(action)

	if !c.conn.Connected() {
		if err := c.conn.Connect(ctx); err != nil {
			log.Printf("%s: connect attempt failed: %v", action, err)
		}
		if err := sleepCtx(ctx, c.settleDelay); err != nil {
			return Ack{}, err
		}
		if !c.conn.Connected() {
			return Ack{}, ErrServerUnreachable
		}
	}

	attempts := 0
	for {
		if !c.conn.Authenticated() {
			attempts++
			if err := c.conn.Authenticate(ctx, c.session.UserID, c.session.OrganizationID); err != nil {
				if attempts >= maxAuthAttempts {
					return Ack{}, fmt.Errorf("%s: %w", action, err)
				}
				observability.IncProtocolRetry(action)
				if err := sleepCtx(ctx, c.authBackoff); err != nil {
					return Ack{}, err
				}
				continue
			}
		}

		ack, err := c.conn.Do(ctx, action, payload)
		if err != nil {
			return Ack{}, err
		}
		if ack.Success {
			return ack, nil
		}
		if isAuthError(ack.Error) && attempts < maxAuthAttempts {
			c.conn.MarkUnauthenticated()
			observability.IncProtocolRetry(action)
			continue
		}
		if ack.Error == "" {
			return Ack{}, fmt.Errorf("%s rejected", action)
		}
		return Ack{}, errors.New(ack.Error)
	}
}

func isAuthError(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "auth")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JoinConversation joins the conversation room. Safe to call repeatedly.
func (c *Client) JoinConversation(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		return errors.New("conversation id is empty")
	}
	_, err := c.request(ctx, "join_conversation", joinPayload{ConversationID: conversationID})
	return err
}

// SelectConversation makes a conversation the viewed one: selection (and
// with it the typing state) switches immediately, then the room is joined
// and the grouped history is fetched and loaded. A join failure degrades
// gracefully: the conversation still opens and the fetch is attempted.
func (c *Client) SelectConversation(ctx context.Context, conversationID string) error {
	c.clearTypingTimer()
	c.store.Select(conversationID)
	c.notifier.Notify("conversation_selected", conversationID)

	if err := c.JoinConversation(ctx, conversationID); err != nil {
		log.Printf("join %s failed, opening without room: %v", conversationID, err)
	}

	groups, err := c.history.GetMessages(ctx, conversationID, 1)
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}
	c.store.LoadGroups(conversationID, groups)
	c.notifier.Notify("messages_loaded", conversationID)
	return nil
}

// SendMessage sends one message and, on acknowledgement, appends the
// authoritative record to the message log so the UI shows it without a
// further round trip. A failed send leaves the store untouched so the
// composer keeps its content for a retry.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (models.Message, error) {
	if strings.TrimSpace(req.Content) == "" && len(req.Attachments) == 0 {
		return models.Message{}, ErrEmptyMessage
	}

	payload := sendMessagePayload{
		ConversationID:   req.ConversationID,
		SenderID:         c.session.UserID,
		ReceiverID:       req.ReceiverID,
		Content:          req.Content,
		TaskID:           req.TaskID,
		TaskTitle:        req.TaskTitle,
		TaskDescription:  req.TaskDescription,
		ReplyToMessageID: req.ReplyToMessageID,
	}
	for _, a := range req.Attachments {
		payload.Attachments = append(payload.Attachments, attachmentWire{Type: a.Type, URL: a.URL, Name: a.Name})
	}

	ack, err := c.request(ctx, "send_message", payload)
	if err != nil {
		return models.Message{}, err
	}

	msg := c.messageFromAck(ack, req)
	c.store.AppendIncoming(msg, c.session.UserID)
	c.store.ClearReply()
	c.StopTyping(req.ConversationID, req.ReceiverID)
	c.notifier.Notify("message_appended", msg)
	return msg, nil
}

// messageFromAck builds the local message record. The server's
// acknowledgement carries the authoritative id whenever it can, so the
// broadcast echo of the same message deduplicates naturally.
func (c *Client) messageFromAck(ack Ack, req SendRequest) models.Message {
	var data struct {
		MessageID int64           `json:"message_id"`
		Message   *models.Message `json:"message"`
	}
	if len(ack.Data) > 0 {
		if err := json.Unmarshal(ack.Data, &data); err != nil {
			log.Printf("send acknowledgement payload unreadable: %v", err)
		}
	}
	if data.Message != nil {
		return *data.Message
	}

	id := data.MessageID
	if id == 0 {
		id = c.now().UnixMilli()
	}
	msg := models.Message{
		ID:              id,
		ConversationID:  req.ConversationID,
		Sender:          models.User{ID: c.session.UserID, Name: c.session.UserName},
		Receiver:        models.User{ID: req.ReceiverID, Name: req.ReceiverName},
		Content:         req.Content,
		Attachments:     req.Attachments,
		TaskID:          req.TaskID,
		TaskTitle:       req.TaskTitle,
		TaskDescription: req.TaskDescription,
		IsRead:          true,
		CreatedAt:       c.now(),
	}
	if req.ReplyToMessageID != 0 {
		ref := &models.ReplyRef{MessageID: req.ReplyToMessageID}
		if target, ok := c.store.Reply(); ok && target.MessageID == req.ReplyToMessageID {
			ref.Content = target.Content
		}
		msg.ReplyTo = ref
	}
	return msg
}

// CreateConversation asks the server for a new conversation. The store is
// deliberately not touched here; the caller inserts the summary.
func (c *Client) CreateConversation(ctx context.Context, req CreateRequest) (CreateResult, error) {
	payload := createConversationPayload{
		SenderID:       c.session.UserID,
		ReceiverID:     req.ReceiverID,
		InitialMessage: req.InitialMessage,
		TaskID:         req.TaskID,
		TaskTitle:      req.TaskTitle,
	}
	ack, err := c.request(ctx, "create_conversation", payload)
	if err != nil {
		return CreateResult{}, err
	}

	result := CreateResult{
		Sender:   models.User{ID: c.session.UserID, Name: c.session.UserName},
		Receiver: models.User{ID: req.ReceiverID},
	}
	if len(ack.Data) > 0 {
		if err := json.Unmarshal(ack.Data, &result); err != nil {
			return CreateResult{}, fmt.Errorf("create acknowledgement payload unreadable: %w", err)
		}
	}
	if result.ConversationID == "" {
		return CreateResult{}, errors.New("create_conversation acknowledged without a conversation id")
	}
	return result, nil
}

// RefreshConversations replaces the conversation list from REST.
func (c *Client) RefreshConversations(ctx context.Context) error {
	convs, err := c.history.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("fetch conversations: %w", err)
	}
	c.store.ReplaceConversations(convs)
	c.notifier.Notify("conversations_replaced", len(convs))
	return nil
}

// HandleEvent applies one inbound push event. Events are dispatched in
// arrival order by the connection's read loop.
func (c *Client) HandleEvent(ev Event) {
	switch ev.Type {
	case "new_message":
		var msg models.Message
		if err := json.Unmarshal(ev.Payload, &msg); err != nil {
			log.Printf("new_message payload unreadable: %v", err)
			return
		}
		c.store.AppendIncoming(msg, c.session.UserID)
		c.notifier.Notify("message_appended", msg)

	case "user_typing":
		var t models.TypingEvent
		if err := json.Unmarshal(ev.Payload, &t); err != nil {
			return
		}
		c.store.SetTyping(t.UserID, t.Name, t.ConversationID)
		c.notifier.Notify("typing_changed", c.store.TypingUsers())

	case "user_stop_typing":
		var t models.TypingEvent
		if err := json.Unmarshal(ev.Payload, &t); err != nil {
			return
		}
		c.store.ClearTyping(t.UserID, t.ConversationID)
		c.notifier.Notify("typing_changed", c.store.TypingUsers())

	case "user_online":
		var p models.PresenceEvent
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		c.store.SetOnline(p.UserID)
		c.notifier.Notify("presence_changed", c.store.OnlineUsers())

	case "user_offline":
		var p models.PresenceEvent
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return
		}
		c.store.SetOffline(p.UserID)
		c.notifier.Notify("presence_changed", c.store.OnlineUsers())

	case "new_conversation":
		var nc models.NewConversationEvent
		if err := json.Unmarshal(ev.Payload, &nc); err != nil {
			log.Printf("new_conversation payload unreadable: %v", err)
			return
		}
		other := nc.Sender
		if other.ID == c.session.UserID {
			other = nc.Receiver
		}
		c.store.Upsert(models.Conversation{ID: nc.ConversationID, OtherUser: other, Task: nc.Task})
		c.notifier.Notify("conversation_updated", nc.ConversationID)
		// Join the announced room so its messages start flowing.
		go func() {
			if err := c.JoinConversation(context.Background(), nc.ConversationID); err != nil {
				log.Printf("join announced conversation %s: %v", nc.ConversationID, err)
			}
		}()

	default:
		log.Printf("unhandled push event %q", ev.Type)
	}
}

// handleConnState reacts to transport state changes. Presence and typing
// are ephemeral and rebuilt from push events only, so a drop resets them.
func (c *Client) handleConnState(connected bool) {
	if !connected {
		c.store.ResetPresence()
	}
	c.notifier.Notify("connection_state", connected)
}

var _ Chat = (*Client)(nil)
var _ History = (*restclient.Client)(nil)
