package server

import (
	"encoding/json"
	"net/http"

	"RoomFM/logger"
	"RoomFM/model"

	"github.com/gorilla/mux"
)

// UpdateRoleRequest is the admin role-grant body.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UpdateRoleHandler grants or revokes the admin role. Admin only.
func (h *APIHandler) UpdateRoleHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role != model.RoleUser && req.Role != model.RoleAdmin {
		respondError(w, http.StatusBadRequest, "role must be user or admin")
		return
	}

	user, err := h.userRepo.GetUserByUsername(username)
	if err != nil {
		logger.Error("Failed to load user", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}

	if err := h.userRepo.UpdateRole(user.ID, req.Role); err != nil {
		logger.Error("Failed to update role", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to update role")
		return
	}
	user.Role = req.Role

	logger.Info("Role updated",
		logger.String("username", username),
		logger.String("role", req.Role),
		logger.String("by", UsernameFromContext(r.Context())))
	respondJSON(w, http.StatusOK, user)
}
