package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"RoomFM/model"

	"github.com/redis/go-redis/v9"
)

const (
	roomInfoKey     = "room:%s:info"     // String: Room JSON
	roomPlaylistKey = "room:%s:playlist" // String: []model.Track JSON
	roomPlaybackKey = "room:%s:playback" // String: RoomPlaybackState JSON
	roomIndexKey    = "rooms"            // Set: all room names
)

// ErrRoomNotFound is returned when a room does not exist.
var ErrRoomNotFound = errors.New("room not found")

// ErrStaleState is returned when a playback update carries an older
// StateVersion than the one stored.
var ErrStaleState = errors.New("stale playback state")

// RoomStore persists rooms, their playlists and playback state in Redis.
type RoomStore struct {
	client *redis.Client
	locks  *KeyedMutex
}

// NewRoomStore creates a RoomStore backed by the given client.
func NewRoomStore(client *redis.Client) *RoomStore {
	return &RoomStore{client: client, locks: NewKeyedMutex(64)}
}

// ========== Room records ==========

// SaveRoom writes the room record and registers it in the room index.
func (s *RoomStore) SaveRoom(ctx context.Context, room *model.Room) error {
	if s.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(roomInfoKey, room.Name), data, 0)
	pipe.SAdd(ctx, roomIndexKey, room.Name)
	_, err = pipe.Exec(ctx)
	return err
}

// GetRoom loads a room record. Returns ErrRoomNotFound if it does not exist.
func (s *RoomStore) GetRoom(ctx context.Context, roomName string) (*model.Room, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	data, err := s.client.Get(ctx, fmt.Sprintf(roomInfoKey, roomName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}
	return &room, nil
}

// ListRooms returns the names of all registered rooms.
func (s *RoomStore) ListRooms(ctx context.Context) ([]string, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}
	return s.client.SMembers(ctx, roomIndexKey).Result()
}

// DeleteRoom removes the room record, its playlist and playback state.
func (s *RoomStore) DeleteRoom(ctx context.Context, roomName string) error {
	if s.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, fmt.Sprintf(roomInfoKey, roomName))
	pipe.Del(ctx, fmt.Sprintf(roomPlaylistKey, roomName))
	pipe.Del(ctx, fmt.Sprintf(roomPlaybackKey, roomName))
	pipe.SRem(ctx, roomIndexKey, roomName)
	_, err := pipe.Exec(ctx)
	return err
}

// UpdateRoom loads the room, applies fn and writes it back under the
// room's lock. fn may return an error to abort without writing.
func (s *RoomStore) UpdateRoom(ctx context.Context, roomName string, fn func(*model.Room) error) (*model.Room, error) {
	unlock := s.locks.Lock("room:" + roomName)
	defer unlock()

	room, err := s.GetRoom(ctx, roomName)
	if err != nil {
		return nil, err
	}
	if err := fn(room); err != nil {
		return nil, err
	}
	if err := s.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ========== Playlist ==========

// GetPlaylist returns the room's playlist. A missing key yields an empty list.
func (s *RoomStore) GetPlaylist(ctx context.Context, roomName string) ([]model.Track, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	data, err := s.client.Get(ctx, fmt.Sprintf(roomPlaylistKey, roomName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.Track{}, nil
		}
		return nil, err
	}

	var tracks []model.Track
	if err := json.Unmarshal([]byte(data), &tracks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal playlist: %w", err)
	}
	return tracks, nil
}

// SetPlaylist overwrites the room's playlist.
func (s *RoomStore) SetPlaylist(ctx context.Context, roomName string, tracks []model.Track) error {
	if s.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	data, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("failed to marshal playlist: %w", err)
	}
	return s.client.Set(ctx, fmt.Sprintf(roomPlaylistKey, roomName), data, 0).Err()
}

// UpdatePlaylist loads the playlist, applies fn and writes the result
// back under the playlist's lock.
func (s *RoomStore) UpdatePlaylist(ctx context.Context, roomName string, fn func([]model.Track) ([]model.Track, error)) ([]model.Track, error) {
	unlock := s.locks.Lock("playlist:" + roomName)
	defer unlock()

	tracks, err := s.GetPlaylist(ctx, roomName)
	if err != nil {
		return nil, err
	}
	updated, err := fn(tracks)
	if err != nil {
		return nil, err
	}
	if err := s.SetPlaylist(ctx, roomName, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// ========== Playback state ==========

// GetPlaybackState returns the room's playback state, or a zero state
// when none has been stored yet.
func (s *RoomStore) GetPlaybackState(ctx context.Context, roomName string) (*model.RoomPlaybackState, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	data, err := s.client.Get(ctx, fmt.Sprintf(roomPlaybackKey, roomName)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &model.RoomPlaybackState{}, nil
		}
		return nil, err
	}

	var state model.RoomPlaybackState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal playback state: %w", err)
	}
	return &state, nil
}

// SetPlaybackState stores the playback state if its StateVersion is
// newer than the stored one. Stale writes return ErrStaleState.
func (s *RoomStore) SetPlaybackState(ctx context.Context, roomName string, state *model.RoomPlaybackState) error {
	unlock := s.locks.Lock("playback:" + roomName)
	defer unlock()

	current, err := s.GetPlaybackState(ctx, roomName)
	if err != nil {
		return err
	}
	if state.StateVersion <= current.StateVersion && current.StateVersion != 0 {
		return ErrStaleState
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal playback state: %w", err)
	}
	return s.client.Set(ctx, fmt.Sprintf(roomPlaybackKey, roomName), data, 0).Err()
}
