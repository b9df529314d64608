package model

import "time"

// Notification types.
const (
	NotificationTypeRequest = "track_request"
)

// Notification is a per-user message created when a request the user
// submitted is resolved. Read flags flip when the owner polls.
type Notification struct {
	Type      string        `json:"type"`
	Status    RequestStatus `json:"status"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Read      bool          `json:"read"`
}
