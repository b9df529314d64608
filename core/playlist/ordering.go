package playlist

import (
	"context"
	"errors"
	"fmt"

	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/store"
)

// ErrIndexOutOfRange is returned when a pin targets an invalid position.
var ErrIndexOutOfRange = errors.New("playlist index out of range")

// ErrTrackNotFound is returned when a removal finds no matching track.
var ErrTrackNotFound = errors.New("track not found in playlist")

// Append returns the playlist with track added at the end.
func Append(tracks []model.Track, track model.Track) []model.Track {
	return append(tracks, track)
}

// InsertAfterCurrent places track directly after the currently playing
// position. When currentIndex does not address a track, the insertion
// lands at position 1 in a non-empty playlist, or at 0 in an empty one.
func InsertAfterCurrent(tracks []model.Track, track model.Track, currentIndex int) []model.Track {
	pos := 0
	if currentIndex >= 0 && currentIndex < len(tracks) {
		pos = currentIndex + 1
	} else if len(tracks) > 0 {
		pos = 1
	}

	out := make([]model.Track, 0, len(tracks)+1)
	out = append(out, tracks[:pos]...)
	out = append(out, track)
	out = append(out, tracks[pos:]...)
	return out
}

// Pin moves the track at selectedIndex to the slot after the currently
// playing one. Removing a track above the playing position shifts that
// position down, so the insertion index is recomputed accordingly.
func Pin(tracks []model.Track, selectedIndex, currentIndex int) ([]model.Track, error) {
	if selectedIndex < 0 || selectedIndex >= len(tracks) {
		return nil, fmt.Errorf("pin index %d of %d: %w", selectedIndex, len(tracks), ErrIndexOutOfRange)
	}

	track := tracks[selectedIndex]
	rest := make([]model.Track, 0, len(tracks)-1)
	rest = append(rest, tracks[:selectedIndex]...)
	rest = append(rest, tracks[selectedIndex+1:]...)

	if selectedIndex < currentIndex {
		currentIndex--
	}
	return InsertAfterCurrent(rest, track, currentIndex), nil
}

// Remove deletes the first track whose identity matches target.
func Remove(tracks []model.Track, target model.Track) ([]model.Track, error) {
	key := target.DedupKey()
	for i, tr := range tracks {
		if tr.DedupKey() == key {
			out := make([]model.Track, 0, len(tracks)-1)
			out = append(out, tracks[:i]...)
			out = append(out, tracks[i+1:]...)
			return out, nil
		}
	}
	return nil, ErrTrackNotFound
}

// Dedup removes later occurrences of tracks sharing an identity key,
// preserving first-seen order. It returns the deduplicated playlist and
// the number of entries dropped.
func Dedup(tracks []model.Track) ([]model.Track, int) {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]model.Track, 0, len(tracks))
	for _, tr := range tracks {
		key := tr.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tr)
	}
	return out, len(tracks) - len(out)
}

// MergeAppend appends candidates that are not already present, matching
// on track identity. It returns the merged playlist, the net-new tracks
// and the number of duplicates skipped.
func MergeAppend(existing, candidates []model.Track) ([]model.Track, []model.Track, int) {
	seen := make(map[string]struct{}, len(existing)+len(candidates))
	for _, tr := range existing {
		seen[tr.DedupKey()] = struct{}{}
	}

	merged := make([]model.Track, len(existing), len(existing)+len(candidates))
	copy(merged, existing)

	added := make([]model.Track, 0, len(candidates))
	skipped := 0
	for _, tr := range candidates {
		key := tr.DedupKey()
		if _, ok := seen[key]; ok {
			skipped++
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, tr)
		added = append(added, tr)
	}
	return merged, added, skipped
}

// Ordering applies playlist mutations to a room's stored playlist.
type Ordering struct {
	rooms *store.RoomStore
}

// NewOrdering creates an Ordering over the given room store.
func NewOrdering(rooms *store.RoomStore) *Ordering {
	return &Ordering{rooms: rooms}
}

// Playlist returns the room's playlist, deduplicated on read. A write-back
// only happens when duplicates were actually found; it re-reads and dedups
// under the room's playlist lock so concurrent mutations are not clobbered.
func (o *Ordering) Playlist(ctx context.Context, roomName string) ([]model.Track, error) {
	tracks, err := o.rooms.GetPlaylist(ctx, roomName)
	if err != nil {
		return nil, err
	}

	deduped, dropped := Dedup(tracks)
	if dropped == 0 {
		return deduped, nil
	}

	logger.Warn("Dropped duplicate playlist entries",
		logger.String("room", roomName),
		logger.Int("dropped", dropped))
	return o.rooms.UpdatePlaylist(ctx, roomName, func(tracks []model.Track) ([]model.Track, error) {
		cleaned, _ := Dedup(tracks)
		return cleaned, nil
	})
}

// Append adds a track to the end of the room's playlist.
func (o *Ordering) Append(ctx context.Context, roomName string, track model.Track) ([]model.Track, error) {
	return o.rooms.UpdatePlaylist(ctx, roomName, func(tracks []model.Track) ([]model.Track, error) {
		return Append(tracks, track), nil
	})
}

// InsertAfterCurrent inserts a track after the room's playing position.
func (o *Ordering) InsertAfterCurrent(ctx context.Context, roomName string, track model.Track) ([]model.Track, error) {
	state, err := o.rooms.GetPlaybackState(ctx, roomName)
	if err != nil {
		return nil, err
	}
	return o.rooms.UpdatePlaylist(ctx, roomName, func(tracks []model.Track) ([]model.Track, error) {
		return InsertAfterCurrent(tracks, track, state.CurrentIndex), nil
	})
}

// Pin moves the track at selectedIndex right after the playing position.
func (o *Ordering) Pin(ctx context.Context, roomName string, selectedIndex int) ([]model.Track, error) {
	state, err := o.rooms.GetPlaybackState(ctx, roomName)
	if err != nil {
		return nil, err
	}
	return o.rooms.UpdatePlaylist(ctx, roomName, func(tracks []model.Track) ([]model.Track, error) {
		return Pin(tracks, selectedIndex, state.CurrentIndex)
	})
}

// Remove deletes the first playlist entry matching track's identity.
func (o *Ordering) Remove(ctx context.Context, roomName string, track model.Track) ([]model.Track, error) {
	return o.rooms.UpdatePlaylist(ctx, roomName, func(tracks []model.Track) ([]model.Track, error) {
		return Remove(tracks, track)
	})
}
