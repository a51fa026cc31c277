package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-bridge/internal/models"
	"chat-bridge/internal/upstream"
)

// ChatClient is a mock of the upstream.Chat interface.
type ChatClient struct {
	mock.Mock
}

func (m *ChatClient) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *ChatClient) Disconnect() {
	m.Called()
}

func (m *ChatClient) JoinConversation(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *ChatClient) SelectConversation(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}

func (m *ChatClient) SendMessage(ctx context.Context, req upstream.SendRequest) (models.Message, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Message), args.Error(1)
}

func (m *ChatClient) CreateConversation(ctx context.Context, req upstream.CreateRequest) (upstream.CreateResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(upstream.CreateResult), args.Error(1)
}

func (m *ChatClient) StartTyping(conversationID string, receiverID int) {
	m.Called(conversationID, receiverID)
}

func (m *ChatClient) StopTyping(conversationID string, receiverID int) {
	m.Called(conversationID, receiverID)
}

func (m *ChatClient) RefreshConversations(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
