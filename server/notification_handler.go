package server

import (
	"net/http"

	"RoomFM/logger"
)

// NotificationsHandler returns the caller's notifications, newest first,
// marking unread ones as read.
func (h *APIHandler) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	username := UsernameFromContext(r.Context())

	notifications, err := h.notifier.Poll(r.Context(), username)
	if err != nil {
		logger.Error("Failed to load notifications", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load notifications")
		return
	}
	respondJSON(w, http.StatusOK, notifications)
}

// UnreadCountHandler returns the caller's unread notification count.
func (h *APIHandler) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	username := UsernameFromContext(r.Context())

	count, err := h.notifier.UnreadCount(r.Context(), username)
	if err != nil {
		logger.Error("Failed to count notifications", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"unread": count})
}
