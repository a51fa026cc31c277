// Package cache persists a local snapshot of the conversation list and
// the pinned messages, so a restarted bridge shows something immediately
// while the live state is refetched. Presence and typing are never
// cached; they are rebuilt from push events only.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"chat-bridge/internal/models"
)

var (
	bucketConversations = []byte("conversations")
	bucketPins          = []byte("pins")

	snapshotKey = []byte("snapshot")
)

// Cache is a bbolt-backed snapshot store.
type Cache struct {
	db *bolt.DB
}

// Open opens (creating if needed) the snapshot file at path.
func Open(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open snapshot cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketConversations, bucketPins} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare snapshot cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying file.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) save(bucket []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(snapshotKey, data)
	})
}

func (c *Cache) load(bucket []byte, out any) error {
	return c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get(snapshotKey)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, out)
	})
}

// SaveConversations replaces the cached conversation list. Order is
// preserved, so the restored list renders as it was left.
func (c *Cache) SaveConversations(convs []models.Conversation) error {
	if err := c.save(bucketConversations, convs); err != nil {
		return fmt.Errorf("save conversations snapshot: %w", err)
	}
	return nil
}

// LoadConversations returns the cached conversation list, or nil when no
// snapshot was ever written.
func (c *Cache) LoadConversations() ([]models.Conversation, error) {
	var convs []models.Conversation
	if err := c.load(bucketConversations, &convs); err != nil {
		return nil, fmt.Errorf("load conversations snapshot: %w", err)
	}
	return convs, nil
}

// SavePins replaces the cached pin list.
func (c *Cache) SavePins(pins []models.PinnedMessage) error {
	if err := c.save(bucketPins, pins); err != nil {
		return fmt.Errorf("save pins snapshot: %w", err)
	}
	return nil
}

// LoadPins returns the cached pin list, or nil when absent.
func (c *Cache) LoadPins() ([]models.PinnedMessage, error) {
	var pins []models.PinnedMessage
	if err := c.load(bucketPins, &pins); err != nil {
		return nil, fmt.Errorf("load pins snapshot: %w", err)
	}
	return pins, nil
}
