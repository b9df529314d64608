package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"RoomFM/core/coin"
	"RoomFM/core/request"
	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/store"

	"github.com/gorilla/mux"
)

// SubmitRequestRequest represents a guest track request body.
type SubmitRequestRequest struct {
	Track   model.Track `json:"track"`
	Express bool        `json:"express"`
}

// SubmitRequestHandler charges the requester and runs the request through
// moderation. Unauthenticated callers submit as guests.
func (h *APIHandler) SubmitRequestHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	var req SubmitRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Track.Title == "" {
		respondError(w, http.StatusBadRequest, "track title is required")
		return
	}

	requester := model.GuestRequester
	if claims, err := h.claimsFromRequest(r); err == nil {
		requester = claims.Username
	}

	submitted, err := h.requests.Submit(r.Context(), roomName, requester, req.Track, req.Express)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRoomNotFound):
			respondError(w, http.StatusNotFound, "room not found")
		case errors.Is(err, coin.ErrInsufficientFunds):
			respondError(w, http.StatusPaymentRequired, "insufficient coins")
		default:
			logger.Error("Failed to submit request", logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "failed to submit request")
		}
		return
	}

	if submitted.Status.Terminal() && submitted.Status != model.RequestStatusRejected {
		if tracks, err := h.ordering.Playlist(r.Context(), roomName); err == nil {
			h.hub.BroadcastPlaylist(roomName, tracks)
		}
	}
	respondJSON(w, http.StatusCreated, submitted)
}

// PendingRequestsHandler lists unresolved requests. Host only.
func (h *APIHandler) PendingRequestsHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	pending, err := h.requests.Pending(r.Context(), roomName, UsernameFromContext(r.Context()))
	if err != nil {
		h.respondRequestError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, pending)
}

// RequestHistoryHandler lists the room's request history.
func (h *APIHandler) RequestHistoryHandler(w http.ResponseWriter, r *http.Request) {
	roomName := mux.Vars(r)["room"]

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	history, err := h.requests.History(r.Context(), roomName, limit)
	if err != nil {
		logger.Error("Failed to load request history", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// ApproveRequestHandler approves a pending request. Host only.
func (h *APIHandler) ApproveRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, true)
}

// RejectRequestHandler rejects a pending request. Host only.
func (h *APIHandler) RejectRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveRequest(w, r, false)
}

func (h *APIHandler) resolveRequest(w http.ResponseWriter, r *http.Request, approve bool) {
	requestID := mux.Vars(r)["id"]
	actor := UsernameFromContext(r.Context())

	var resolved *model.TrackRequest
	var err error
	if approve {
		resolved, err = h.requests.Approve(r.Context(), requestID, actor)
	} else {
		resolved, err = h.requests.Reject(r.Context(), requestID, actor)
	}
	if err != nil {
		h.respondRequestError(w, err)
		return
	}

	if approve {
		if tracks, err := h.ordering.Playlist(r.Context(), resolved.RoomName); err == nil {
			h.hub.BroadcastPlaylist(resolved.RoomName, tracks)
		}
	}
	respondJSON(w, http.StatusOK, resolved)
}

func (h *APIHandler) respondRequestError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, request.ErrNotFound):
		respondError(w, http.StatusNotFound, "request not found")
	case errors.Is(err, store.ErrRoomNotFound):
		respondError(w, http.StatusNotFound, "room not found")
	case errors.Is(err, request.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "only the room host may moderate requests")
	case errors.Is(err, request.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "request already resolved")
	default:
		logger.Error("Request operation failed", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
