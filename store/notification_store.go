package store

import (
	"context"
	"encoding/json"
	"fmt"

	"RoomFM/model"

	"github.com/redis/go-redis/v9"
)

const (
	notificationKey = "notify:%s" // List: Notification JSON, newest first
	notificationCap = 50
)

// NotificationStore keeps per-user notification inboxes.
type NotificationStore struct {
	client *redis.Client
	locks  *KeyedMutex
}

// NewNotificationStore creates a NotificationStore backed by the given client.
func NewNotificationStore(client *redis.Client) *NotificationStore {
	return &NotificationStore{client: client, locks: NewKeyedMutex(64)}
}

// Push prepends a notification to the user's inbox, trimming to the cap.
func (s *NotificationStore) Push(ctx context.Context, username string, n model.Notification) error {
	if s.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	// Poll rewrites entries by index under this lock; a push landing
	// mid-rewrite would shift them.
	unlock := s.locks.Lock("notify:" + username)
	defer unlock()

	key := fmt.Sprintf(notificationKey, username)
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, notificationCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

// Poll returns the user's notifications, newest first, and marks every
// unread entry as read.
func (s *NotificationStore) Poll(ctx context.Context, username string) ([]model.Notification, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	unlock := s.locks.Lock("notify:" + username)
	defer unlock()

	key := fmt.Sprintf(notificationKey, username)
	entries, err := s.client.LRange(ctx, key, 0, notificationCap-1).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]model.Notification, 0, len(entries))
	dirty := false
	for _, entry := range entries {
		var n model.Notification
		if err := json.Unmarshal([]byte(entry), &n); err != nil {
			continue
		}
		notifications = append(notifications, n)
		if !n.Read {
			dirty = true
		}
	}

	if dirty {
		pipe := s.client.Pipeline()
		for i, n := range notifications {
			n.Read = true
			data, err := json.Marshal(n)
			if err != nil {
				continue
			}
			pipe.LSet(ctx, key, int64(i), data)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}
	return notifications, nil
}

// UnreadCount returns how many notifications are unread.
func (s *NotificationStore) UnreadCount(ctx context.Context, username string) (int, error) {
	if s.client == nil {
		return 0, fmt.Errorf("redis client not initialized")
	}

	entries, err := s.client.LRange(ctx, fmt.Sprintf(notificationKey, username), 0, notificationCap-1).Result()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		var n model.Notification
		if err := json.Unmarshal([]byte(entry), &n); err != nil {
			continue
		}
		if !n.Read {
			count++
		}
	}
	return count, nil
}
