package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-bridge/internal/mocks"
	"chat-bridge/internal/models"
	"chat-bridge/internal/session"
	"chat-bridge/internal/store"
	"chat-bridge/internal/upstream"
)

type fixture struct {
	router   *gin.Engine
	chat     *mocks.ChatClient
	store    *store.Store
	uploader *mocks.Uploader
	cache    *mocks.Snapshotter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		chat:     &mocks.ChatClient{},
		store:    store.New(),
		uploader: &mocks.Uploader{},
		cache:    &mocks.Snapshotter{},
	}
	f.cache.On("SaveConversations", mock.Anything).Return(nil).Maybe()
	f.cache.On("SavePins", mock.Anything).Return(nil).Maybe()

	sess := &session.Session{UserID: 1, UserName: "me", OrganizationID: "org-1"}
	handler := New(f.chat, f.store, sess, f.uploader, f.cache, nil)

	f.router = gin.New()
	handler.Register(f.router.Group("/api/v1"))
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestListConversationsMergesByCounterpart(t *testing.T) {
	f := newFixture(t)
	f.store.ReplaceConversations([]models.Conversation{
		{ID: "general", OtherUser: models.User{ID: 2, Name: "bob"}, UnreadCount: 1},
		{ID: "task", OtherUser: models.User{ID: 2, Name: "bob"}, Task: &models.TaskRef{ID: "t1", Title: "Review"}, UnreadCount: 2},
		{ID: "old", OtherUser: models.User{ID: 9, Name: "zoe"}, IsArchived: true},
	})
	f.store.SetOnline(2)

	rec := f.do(t, http.MethodGet, "/api/v1/conversations", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
		Online        map[int]bool          `json:"online"`
		Archived      []models.Conversation `json:"archived"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Conversations, 1, "both bob threads collapse into one entry")
	assert.Equal(t, 3, resp.Conversations[0].UnreadCount)
	assert.True(t, resp.Online[2], "bob is online")
	require.Len(t, resp.Archived, 1)
	assert.Equal(t, "old", resp.Archived[0].ID)
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	sent := models.Message{ID: 501, ConversationID: "c1", Content: "hi", CreatedAt: time.Now()}
	f.chat.On("SendMessage", mock.Anything, mock.MatchedBy(func(req upstream.SendRequest) bool {
		return req.ConversationID == "c1" && req.Content == "hi"
	})).Return(sent, nil)

	rec := f.do(t, http.MethodPost, "/api/v1/messages", upstream.SendRequest{ConversationID: "c1", ReceiverID: 2, Content: "hi"})
	require.Equal(t, http.StatusCreated, rec.Code)
	f.chat.AssertExpectations(t)
}

func TestSendMessageErrorsMapped(t *testing.T) {
	f := newFixture(t)
	f.chat.On("SendMessage", mock.Anything, mock.Anything).Return(models.Message{}, upstream.ErrServerUnreachable).Once()

	rec := f.do(t, http.MethodPost, "/api/v1/messages", upstream.SendRequest{ConversationID: "c1", Content: "hi"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	f.chat.On("SendMessage", mock.Anything, mock.Anything).Return(models.Message{}, upstream.ErrEmptyMessage).Once()
	rec = f.do(t, http.MethodPost, "/api/v1/messages", upstream.SendRequest{ConversationID: "c1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/messages", upstream.SendRequest{Content: "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing conversation id is rejected locally")
}

func TestSelectConversation(t *testing.T) {
	f := newFixture(t)
	f.chat.On("SelectConversation", mock.Anything, "c1").Run(func(args mock.Arguments) {
		f.store.Select("c1")
	}).Return(nil)

	rec := f.do(t, http.MethodPost, "/api/v1/conversations/c1/select", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"selected_id":"c1"`)
}

func TestGetMessagesRequiresSelection(t *testing.T) {
	f := newFixture(t)
	f.store.Select("c2")

	rec := f.do(t, http.MethodGet, "/api/v1/conversations/c1/messages", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/conversations/c2/messages", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestArchiveConversation(t *testing.T) {
	f := newFixture(t)
	f.store.Upsert(models.Conversation{ID: "c1", OtherUser: models.User{ID: 2}})

	rec := f.do(t, http.MethodPost, "/api/v1/conversations/missing/archive", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/conversations/c1/archive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, f.store.Active())
	f.cache.AssertCalled(t, "SaveConversations", mock.Anything)

	rec = f.do(t, http.MethodPost, "/api/v1/conversations/c1/unarchive", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.store.Active(), 1)
}

func TestTypingDelegation(t *testing.T) {
	f := newFixture(t)
	f.chat.On("StartTyping", "c1", 2).Once()
	f.chat.On("StopTyping", "c1", 2).Once()

	rec := f.do(t, http.MethodPost, "/api/v1/typing", typingRequest{ConversationID: "c1", ReceiverID: 2, Typing: true})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/v1/typing", typingRequest{ConversationID: "c1", ReceiverID: 2})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	f.chat.AssertExpectations(t)
}

func TestReplySlot(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/api/v1/reply", models.ReplyTarget{MessageID: 9, Content: "quoted", Sender: models.User{ID: 2, Name: "bob"}})
	require.Equal(t, http.StatusOK, rec.Code)

	target, ok := f.store.Reply()
	require.True(t, ok)
	assert.Equal(t, int64(9), target.MessageID)

	rec = f.do(t, http.MethodDelete, "/api/v1/reply", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok = f.store.Reply()
	assert.False(t, ok)
}

func TestPinLifecycle(t *testing.T) {
	f := newFixture(t)
	f.store.Upsert(models.Conversation{ID: "c1", OtherUser: models.User{ID: 2}})
	f.store.Select("c1")
	f.store.AppendIncoming(models.Message{
		ID: 42, ConversationID: "c1", Sender: models.User{ID: 2, Name: "bob"},
		Content: "keep this", CreatedAt: time.Now(),
	}, 1)

	rec := f.do(t, http.MethodPost, "/api/v1/pins", pinRequest{MessageID: 42})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.store.Pins("c1"), 1)

	rec = f.do(t, http.MethodPost, "/api/v1/pins", pinRequest{MessageID: 404})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/pins/42", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.store.Pins(""))
}

func multipartBody(t *testing.T, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestUploadValidationRejectsBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	body, contentType := multipartBody(t, "script.exe")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "unsupported file type"))
	f.uploader.AssertNotCalled(t, "UploadFiles", mock.Anything, mock.Anything)
}

func TestUploadForwardsValidBatch(t *testing.T) {
	f := newFixture(t)
	f.uploader.On("UploadFiles", mock.Anything, mock.Anything).Return([]models.Attachment{
		{Type: "image", URL: "https://cdn/a.png", Name: "a.png"},
	}, nil)

	body, contentType := multipartBody(t, "a.png")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "https://cdn/a.png")
	f.uploader.AssertExpectations(t)
}
