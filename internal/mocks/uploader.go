package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-bridge/internal/models"
)

// Uploader is a mock of the handlers.Uploader interface.
type Uploader struct {
	mock.Mock
}

func (m *Uploader) UploadFiles(ctx context.Context, files []models.FileUpload) ([]models.Attachment, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Attachment), args.Error(1)
}

// Snapshotter is a mock of the handlers.Snapshotter interface.
type Snapshotter struct {
	mock.Mock
}

func (m *Snapshotter) SaveConversations(convs []models.Conversation) error {
	args := m.Called(convs)
	return args.Error(0)
}

func (m *Snapshotter) SavePins(pins []models.PinnedMessage) error {
	args := m.Called(pins)
	return args.Error(0)
}
