package model

import "strings"

// Track is a resolved, playable song. Tracks are value types: once merged
// into a room playlist they carry no owner and are copied, not referenced.
type Track struct {
	SongID      string        `json:"songId,omitempty"` // resolver-assigned identity
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	URL         string        `json:"url,omitempty"`
	CoverImage  string        `json:"coverImage,omitempty"`
	Duration    int           `json:"duration,omitempty"` // seconds
	Status      RequestStatus `json:"status,omitempty"`   // set only on request-originated tracks
	RequestedBy string        `json:"requestedBy,omitempty"`
	Express     bool          `json:"express,omitempty"`
	PricePaid   int           `json:"pricePaid,omitempty"`
}

// DedupKey identifies a track for deduplication: the resolver's song ID when
// present, otherwise normalized title+artist. The same key is used at write
// time and at read time.
func (t Track) DedupKey() string {
	if t.SongID != "" {
		return t.SongID
	}
	return strings.ToLower(strings.TrimSpace(t.Title)) + "|" + strings.ToLower(strings.TrimSpace(t.Artist))
}

// Suggestion is an unresolved (title, artist) pair returned by the song
// suggester before it passes through the track resolver.
type Suggestion struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}
