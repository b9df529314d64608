package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"RoomFM/core/playlist"
	"RoomFM/logger"
	"RoomFM/model"

	"github.com/gorilla/mux"
)

// PlaylistHandler returns the room's current playlist.
func (h *APIHandler) PlaylistHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	// A missing playlist key reads as an empty list, so check the room first.
	if _, err := h.roomStore.GetRoom(r.Context(), roomName); err != nil {
		h.respondRoomError(w, err)
		return
	}

	tracks, err := h.ordering.Playlist(r.Context(), roomName)
	if err != nil {
		h.respondRoomError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// PinTrackRequest names the playlist slot to move behind the playing track.
type PinTrackRequest struct {
	SelectedIndex int `json:"selectedIndex"`
}

// PinTrackHandler moves a track to play right after the current one. Host only.
func (h *APIHandler) PinTrackHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	var req PinTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.requireHost(w, r, roomName) {
		return
	}

	tracks, err := h.ordering.Pin(r.Context(), roomName, req.SelectedIndex)
	if err != nil {
		if errors.Is(err, playlist.ErrIndexOutOfRange) {
			respondError(w, http.StatusBadRequest, "index out of range")
			return
		}
		h.respondRoomError(w, err)
		return
	}

	h.hub.BroadcastPlaylist(roomName, tracks)
	respondJSON(w, http.StatusOK, tracks)
}

// RemoveTrackRequest identifies the track to drop from the playlist.
type RemoveTrackRequest struct {
	Track model.Track `json:"track"`
}

// RemoveTrackHandler removes a track from the playlist. Host only.
func (h *APIHandler) RemoveTrackHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	var req RemoveTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.requireHost(w, r, roomName) {
		return
	}

	tracks, err := h.ordering.Remove(r.Context(), roomName, req.Track)
	if err != nil {
		if errors.Is(err, playlist.ErrTrackNotFound) {
			respondError(w, http.StatusNotFound, "track not found in playlist")
			return
		}
		h.respondRoomError(w, err)
		return
	}

	h.hub.BroadcastPlaylist(roomName, tracks)
	respondJSON(w, http.StatusOK, tracks)
}

// PlaybackStateHandler returns the room's last reported playback position.
func (h *APIHandler) PlaybackStateHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	state, err := h.roomStore.GetPlaybackState(r.Context(), roomName)
	if err != nil {
		logger.Error("Failed to load playback state", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load playback state")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// requireHost loads the room and rejects callers other than its host.
func (h *APIHandler) requireHost(w http.ResponseWriter, r *http.Request, roomName string) bool {
	loaded, err := h.roomStore.GetRoom(r.Context(), roomName)
	if err != nil {
		h.respondRoomError(w, err)
		return false
	}
	if !loaded.IsHost(UsernameFromContext(r.Context())) {
		respondError(w, http.StatusForbidden, "only the room host may modify the playlist")
		return false
	}
	return true
}
