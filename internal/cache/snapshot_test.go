package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-bridge/internal/models"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestConversationsRoundTripPreservesOrder(t *testing.T) {
	c := openTestCache(t)

	loaded, err := c.LoadConversations()
	require.NoError(t, err)
	assert.Nil(t, loaded, "fresh cache has no snapshot")

	convs := []models.Conversation{
		{ID: "c2", OtherUser: models.User{ID: 3, Name: "carol"}, UnreadCount: 2},
		{ID: "c1", OtherUser: models.User{ID: 2, Name: "bob"}, IsArchived: true},
	}
	require.NoError(t, c.SaveConversations(convs))

	loaded, err = c.LoadConversations()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "c2", loaded[0].ID)
	assert.True(t, loaded[1].IsArchived)
}

func TestSaveConversationsOverwrites(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.SaveConversations([]models.Conversation{{ID: "old"}}))
	require.NoError(t, c.SaveConversations([]models.Conversation{{ID: "new"}}))

	loaded, err := c.LoadConversations()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "new", loaded[0].ID)
}

func TestPinsRoundTrip(t *testing.T) {
	c := openTestCache(t)
	pinnedAt := time.Date(2025, time.March, 14, 15, 0, 0, 0, time.UTC)
	pins := []models.PinnedMessage{{
		ID:             "pin-1",
		MessageID:      42,
		ConversationID: "c1",
		Content:        "remember this",
		Sender:         models.User{ID: 2, Name: "bob"},
		PinnedAt:       pinnedAt,
	}}
	require.NoError(t, c.SavePins(pins))

	loaded, err := c.LoadPins()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, int64(42), loaded[0].MessageID)
	assert.True(t, loaded[0].PinnedAt.Equal(pinnedAt))
}
