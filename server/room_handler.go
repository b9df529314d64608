package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"RoomFM/core/room"
	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/store"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// CreateRoomRequest represents the room creation body.
type CreateRoomRequest struct {
	Name       string                     `json:"name"`
	Prompt     string                     `json:"prompt"`
	Genre      string                     `json:"genre,omitempty"`
	Occasion   string                     `json:"occasion,omitempty"`
	SongCount  int                        `json:"songCount"`
	Moderation bool                       `json:"moderation"`
	AI         model.AIModerationSettings `json:"aiModeration"`
}

// CreateRoomHandler creates a room with a generated opening playlist.
func (h *APIHandler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Prompt == "" {
		respondError(w, http.StatusBadRequest, "name and prompt are required")
		return
	}
	if req.SongCount <= 0 {
		req.SongCount = 10
	}

	created, tracks, err := h.rooms.Create(r.Context(), room.CreateParams{
		Name: req.Name,
		Host: model.HostInfo{
			Username:  UsernameFromContext(r.Context()),
			CreatedAt: time.Now(),
		},
		Prompt:     req.Prompt,
		Genre:      req.Genre,
		Occasion:   req.Occasion,
		SongCount:  req.SongCount,
		Moderation: req.Moderation,
		AI:         req.AI,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomExists) {
			respondError(w, http.StatusConflict, "room already exists")
			return
		}
		logger.Error("Failed to create room", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"room":     created,
		"playlist": tracks,
	})
}

// ListRoomsHandler lists all rooms.
func (h *APIHandler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.List(r.Context())
	if err != nil {
		logger.Error("Failed to list rooms", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	respondJSON(w, http.StatusOK, rooms)
}

// GetRoomHandler returns one room, its playlist and playback state.
func (h *APIHandler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	loaded, err := h.rooms.Get(r.Context(), roomName)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			respondError(w, http.StatusNotFound, "room not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load room")
		return
	}

	tracks, err := h.ordering.Playlist(r.Context(), roomName)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load playlist")
		return
	}
	playback, err := h.roomStore.GetPlaybackState(r.Context(), roomName)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load playback state")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"room":     loaded,
		"playlist": tracks,
		"playback": playback,
	})
}

// UpdateRoomSettingsHandler replaces the room's settings. Host only.
func (h *APIHandler) UpdateRoomSettingsHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	var settings model.RoomSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.rooms.UpdateSettings(r.Context(), roomName, UsernameFromContext(r.Context()), settings)
	if err != nil {
		h.respondRoomError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// SetPricesRequest represents the price update body.
type SetPricesRequest struct {
	RequestPrice int `json:"requestPrice"`
	PinPrice     int `json:"pinPrice"`
}

// SetPricesHandler updates the room's request and pin prices. Host only.
func (h *APIHandler) SetPricesHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	var req SetPricesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.rooms.SetPrices(r.Context(), roomName, UsernameFromContext(r.Context()), req.RequestPrice, req.PinPrice)
	if err != nil {
		if errors.Is(err, room.ErrInvalidPrice) {
			respondError(w, http.StatusBadRequest, "price must be at least 1")
			return
		}
		h.respondRoomError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// ExtendPlaylistHandler generates more tracks for the room's theme. Host only.
func (h *APIHandler) ExtendPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	count := 5
	if v := r.URL.Query().Get("count"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		count = parsed
	}

	merged, added, skipped, err := h.rooms.ExtendPlaylist(r.Context(), roomName, UsernameFromContext(r.Context()), count)
	if err != nil {
		h.respondRoomError(w, err)
		return
	}

	h.hub.BroadcastPlaylist(roomName, merged)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"playlist":          merged,
		"added":             added,
		"duplicatesRemoved": skipped,
	})
}

// DeleteRoomHandler removes the room. Host only.
func (h *APIHandler) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	if err := h.rooms.Delete(r.Context(), roomName, UsernameFromContext(r.Context())); err != nil {
		h.respondRoomError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RoomWSHandler upgrades the connection and subscribes it to room updates.
// Auth comes from the token query parameter since websocket clients cannot
// set headers.
func (h *APIHandler) RoomWSHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	username := model.GuestRequester
	isHost := false
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := h.claimsFromToken(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		username = claims.Username
	}

	loaded, err := h.rooms.Get(r.Context(), roomName)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			respondError(w, http.StatusNotFound, "room not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load room")
		return
	}
	isHost = loaded.IsHost(username)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", logger.ErrorField(err))
		return
	}
	h.hub.Subscribe(conn, roomName, username, isHost)
}

func (h *APIHandler) respondRoomError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		respondError(w, http.StatusNotFound, "room not found")
	case errors.Is(err, room.ErrNotHost):
		respondError(w, http.StatusForbidden, "only the room host may do this")
	default:
		logger.Error("Room operation failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
