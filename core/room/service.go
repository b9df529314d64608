package room

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"RoomFM/config"
	"RoomFM/core/playlist"
	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/store"
)

// ErrNotHost is returned when a non-host changes room configuration.
var ErrNotHost = errors.New("only the room host may do this")

// ErrRoomExists is returned when a room name is already taken.
var ErrRoomExists = errors.New("room already exists")

// ErrInvalidPrice is returned for prices below one coin.
var ErrInvalidPrice = errors.New("price must be at least 1")

// CreateParams describes a new room.
type CreateParams struct {
	Name       string
	Host       model.HostInfo
	Prompt     string
	Genre      string
	Occasion   string
	SongCount  int
	Moderation bool
	AI         model.AIModerationSettings
}

// Service manages the room directory and room-scoped playlist builds.
type Service struct {
	rooms    *store.RoomStore
	builder  *playlist.Builder
	ordering *playlist.Ordering

	defaultsMu          sync.RWMutex
	defaultRequestPrice int
	defaultPinPrice     int
}

// NewService wires the room service. Price defaults come from cfg and can be
// refreshed later with SetDefaultPrices.
func NewService(rooms *store.RoomStore, builder *playlist.Builder, ordering *playlist.Ordering, cfg *config.Config) *Service {
	return &Service{
		rooms:               rooms,
		builder:             builder,
		ordering:            ordering,
		defaultRequestPrice: cfg.DefaultRequestPrice,
		defaultPinPrice:     cfg.DefaultPinPrice,
	}
}

// SetDefaultPrices updates the defaults applied to newly created rooms.
// Existing rooms keep their own prices.
func (s *Service) SetDefaultPrices(requestPrice, pinPrice int) {
	s.defaultsMu.Lock()
	s.defaultRequestPrice = requestPrice
	s.defaultPinPrice = pinPrice
	s.defaultsMu.Unlock()
}

func (s *Service) defaultPrices() (int, int) {
	s.defaultsMu.RLock()
	defer s.defaultsMu.RUnlock()
	return s.defaultRequestPrice, s.defaultPinPrice
}

// Create registers the room and generates its opening playlist from the
// host's theme. Prices start at the configured defaults.
func (s *Service) Create(ctx context.Context, params CreateParams) (*model.Room, []model.Track, error) {
	if _, err := s.rooms.GetRoom(ctx, params.Name); err == nil {
		return nil, nil, fmt.Errorf("%s: %w", params.Name, ErrRoomExists)
	} else if !errors.Is(err, store.ErrRoomNotFound) {
		return nil, nil, err
	}

	result, err := s.builder.Build(ctx, playlist.BuildRequest{
		Prompt:      params.Prompt,
		Genre:       params.Genre,
		Occasion:    params.Occasion,
		TargetCount: params.SongCount,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build opening playlist: %w", err)
	}

	requestPrice, pinPrice := s.defaultPrices()
	room := &model.Room{
		Name: params.Name,
		Host: params.Host,
		Settings: model.RoomSettings{
			Prompt:            params.Prompt,
			Genre:             params.Genre,
			Occasion:          params.Occasion,
			SongCount:         params.SongCount,
			ModerationEnabled: params.Moderation,
			AIModeration:      params.AI,
			RequestPrice:      requestPrice,
			PinPrice:          pinPrice,
		},
		Introduction: result.Introduction,
		CreatedAt:    time.Now(),
	}

	if err := s.rooms.SaveRoom(ctx, room); err != nil {
		return nil, nil, err
	}
	if err := s.rooms.SetPlaylist(ctx, params.Name, result.Tracks); err != nil {
		return nil, nil, err
	}

	logger.Info("Room created",
		logger.String("room", params.Name),
		logger.String("host", params.Host.Username),
		logger.Int("tracks", len(result.Tracks)))
	return room, result.Tracks, nil
}

// Get loads one room.
func (s *Service) Get(ctx context.Context, roomName string) (*model.Room, error) {
	return s.rooms.GetRoom(ctx, roomName)
}

// List returns every room with its host info.
func (s *Service) List(ctx context.Context) ([]model.Room, error) {
	names, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, err
	}

	rooms := make([]model.Room, 0, len(names))
	for _, name := range names {
		room, err := s.rooms.GetRoom(ctx, name)
		if err != nil {
			if errors.Is(err, store.ErrRoomNotFound) {
				continue
			}
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, nil
}

// UpdateSettings replaces the host-tunable settings. Host only. Prices are
// managed by SetPrices and survive the update.
func (s *Service) UpdateSettings(ctx context.Context, roomName, actor string, settings model.RoomSettings) (*model.Room, error) {
	return s.rooms.UpdateRoom(ctx, roomName, func(room *model.Room) error {
		if !room.IsHost(actor) {
			return ErrNotHost
		}
		settings.RequestPrice = room.Settings.RequestPrice
		settings.PinPrice = room.Settings.PinPrice
		room.Settings = settings
		return nil
	})
}

// SetPrices updates the room's request and pin prices. Host only, and both
// prices must stay at or above one coin. A zero argument keeps the current
// value.
func (s *Service) SetPrices(ctx context.Context, roomName, actor string, requestPrice, pinPrice int) (*model.Room, error) {
	return s.rooms.UpdateRoom(ctx, roomName, func(room *model.Room) error {
		if !room.IsHost(actor) {
			return ErrNotHost
		}
		if requestPrice != 0 {
			if requestPrice < 1 {
				return fmt.Errorf("request price %d: %w", requestPrice, ErrInvalidPrice)
			}
			room.Settings.RequestPrice = requestPrice
		}
		if pinPrice != 0 {
			if pinPrice < 1 {
				return fmt.Errorf("pin price %d: %w", pinPrice, ErrInvalidPrice)
			}
			room.Settings.PinPrice = pinPrice
		}
		return nil
	})
}

// ExtendPlaylist generates count more tracks for the room's theme and
// appends the ones not already in the playlist. It returns the merged
// playlist, the net-new tracks and how many duplicates were dropped.
func (s *Service) ExtendPlaylist(ctx context.Context, roomName, actor string, count int) ([]model.Track, []model.Track, int, error) {
	room, err := s.rooms.GetRoom(ctx, roomName)
	if err != nil {
		return nil, nil, 0, err
	}
	if !room.IsHost(actor) {
		return nil, nil, 0, ErrNotHost
	}

	existing, err := s.ordering.Playlist(ctx, roomName)
	if err != nil {
		return nil, nil, 0, err
	}
	existingTitles := make([]string, len(existing))
	for i, tr := range existing {
		existingTitles[i] = tr.Title
	}

	result, err := s.builder.Build(ctx, playlist.BuildRequest{
		Prompt:        room.Settings.Prompt,
		Genre:         room.Settings.Genre,
		Occasion:      room.Settings.Occasion,
		TargetCount:   count,
		ExcludeTitles: existingTitles,
	})
	if err != nil {
		return nil, nil, 0, err
	}

	var added []model.Track
	var skipped int
	merged, err := s.rooms.UpdatePlaylist(ctx, roomName, func(tracks []model.Track) ([]model.Track, error) {
		var out []model.Track
		out, added, skipped = playlist.MergeAppend(tracks, result.Tracks)
		return out, nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	logger.Info("Playlist extended",
		logger.String("room", roomName),
		logger.Int("added", len(added)),
		logger.Int("duplicatesRemoved", skipped))
	return merged, added, skipped, nil
}

// Delete removes the room and everything stored under it. Host only.
func (s *Service) Delete(ctx context.Context, roomName, actor string) error {
	room, err := s.rooms.GetRoom(ctx, roomName)
	if err != nil {
		return err
	}
	if !room.IsHost(actor) {
		return ErrNotHost
	}
	return s.rooms.DeleteRoom(ctx, roomName)
}
