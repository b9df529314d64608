package model

import "time"

// RequestStatus is the lifecycle state of a track request. Transitions are
// monotone: pending may become approved or rejected; direct_add, approved and
// rejected are terminal.
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusDirectAdd RequestStatus = "direct_add" // moderation disabled, inserted immediately
)

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected || s == RequestStatusDirectAdd
}

// GuestRequester is the placeholder identity for anonymous requesters.
// Guests have no durable identity, so they are never notified and never
// charged (they hold no coin account).
const GuestRequester = "Guest"

// ModerationDecision records the scorer's verdict on a request. It is stored
// regardless of outcome so a host can review why the AI decided as it did.
type ModerationDecision struct {
	Score      int               `json:"score"`
	Approved   bool              `json:"approved"`
	Reasoning  string            `json:"reasoning,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// TrackRequest is a guest-submitted track moving through moderation toward
// the room playlist. A request belongs to exactly one room and contributes to
// at most one playlist insertion.
type TrackRequest struct {
	ID         string              `json:"id"`
	RoomName   string              `json:"roomName"`
	Requester  string              `json:"requester"`
	Track      Track               `json:"track"`
	Status     RequestStatus       `json:"status"`
	Express    bool                `json:"express"`
	PricePaid  int                 `json:"pricePaid"`
	CreatedAt  time.Time           `json:"createdAt"`
	ApprovedAt *time.Time          `json:"approvedAt,omitempty"`
	RejectedAt *time.Time          `json:"rejectedAt,omitempty"`
	Moderation *ModerationDecision `json:"moderation,omitempty"`
}
