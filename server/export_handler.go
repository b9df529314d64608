package server

import (
	"net/http"

	"RoomFM/logger"
)

// ExportHandler builds a zip archive of room and request data, uploads it to
// object storage and returns a presigned download link. Admin only.
func (h *APIHandler) ExportHandler(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		respondError(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}

	object, url, err := h.exporter.Export(r.Context())
	if err != nil {
		logger.Error("Failed to export dataset", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to export dataset")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"object": object,
		"url":    url,
	})
}
