package notify

import (
	"context"
	"fmt"
	"time"

	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/store"
)

// Notifier delivers request-resolution messages to user inboxes.
type Notifier struct {
	store *store.NotificationStore
}

// NewNotifier creates a Notifier over the given store.
func NewNotifier(s *store.NotificationStore) *Notifier {
	return &Notifier{store: s}
}

// RequestResolved tells the requester how their request ended. Guests have
// no inbox, so resolutions addressed to them are dropped silently.
func (n *Notifier) RequestResolved(ctx context.Context, requester string, status model.RequestStatus, trackTitle string) error {
	if requester == "" || requester == model.GuestRequester {
		return nil
	}

	var message string
	switch status {
	case model.RequestStatusApproved:
		message = fmt.Sprintf("Your request %q was approved and added to the playlist.", trackTitle)
	case model.RequestStatusRejected:
		message = fmt.Sprintf("Your request %q was rejected by the host.", trackTitle)
	case model.RequestStatusDirectAdd:
		message = fmt.Sprintf("Your request %q was added to the playlist.", trackTitle)
	default:
		message = fmt.Sprintf("Your request %q is awaiting review.", trackTitle)
	}

	err := n.store.Push(ctx, requester, model.Notification{
		Type:      model.NotificationTypeRequest,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}

	logger.Debug("Notification delivered",
		logger.String("username", requester),
		logger.String("status", string(status)))
	return nil
}

// Poll returns the user's notifications and marks them read.
func (n *Notifier) Poll(ctx context.Context, username string) ([]model.Notification, error) {
	return n.store.Poll(ctx, username)
}

// UnreadCount returns the number of unread notifications.
func (n *Notifier) UnreadCount(ctx context.Context, username string) (int, error) {
	return n.store.UnreadCount(ctx, username)
}
