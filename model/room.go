package model

import "time"

// HostInfo identifies the host of a room.
type HostInfo struct {
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AIModerationSettings configures automatic scoring of guest requests.
type AIModerationSettings struct {
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"` // host's description of what fits the room
	Strictness  string `json:"strictness,omitempty"`  // strict, medium, easy
}

// RoomSettings holds host-tunable room behavior.
type RoomSettings struct {
	Prompt            string               `json:"prompt,omitempty"`
	Genre             string               `json:"genre,omitempty"`
	Occasion          string               `json:"occasion,omitempty"`
	SongCount         int                  `json:"songCount,omitempty"`
	ModerationEnabled bool                 `json:"moderationEnabled"`
	AIModeration      AIModerationSettings `json:"aiModeration"`
	RequestPrice      int                  `json:"requestPrice"`
	PinPrice          int                  `json:"pinPrice"`
}

// Room is a named playlist session with one host and zero or more guests.
// The playlist itself lives under its own key; see store.RoomStore.
type Room struct {
	Name         string       `json:"name"`
	Host         HostInfo     `json:"host"`
	Settings     RoomSettings `json:"settings"`
	Introduction string       `json:"introduction,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// IsHost reports whether username is this room's host.
func (r *Room) IsHost(username string) bool {
	return username != "" && r.Host.Username == username
}

// RoomPlaybackState is the per-room player state fanned out to subscribers.
// StateVersion guards against stale concurrent writes: a write with a version
// at or below the stored one is rejected.
type RoomPlaybackState struct {
	CurrentIndex int     `json:"currentIndex"`
	Position     float64 `json:"position"` // seconds into the current track
	IsPlaying    bool    `json:"isPlaying"`
	UpdatedAt    int64   `json:"updatedAt"` // unix millis
	UpdatedBy    string  `json:"updatedBy"`
	StateVersion int64   `json:"stateVersion"`
}

// Moderation strictness levels and their score thresholds.
const (
	StrictnessStrict = "strict"
	StrictnessMedium = "medium"
	StrictnessEasy   = "easy"
)
