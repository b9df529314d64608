package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"RoomFM/core/auth"
	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/repository"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

// RegisterHandler handles user registration requests.
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	if req.Username == model.GuestRequester {
		respondError(w, http.StatusBadRequest, "username is reserved")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("Failed to hash password", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	id, err := h.userRepo.CreateUser(user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			respondError(w, http.StatusConflict, "username or email already exists")
			return
		}
		logger.Error("Failed to create user", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	user.ID = id

	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, user.Username, user.Role)
	if err != nil {
		logger.Error("Failed to generate token", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Info("User registered", logger.String("username", user.Username))
	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// LoginRequest represents the login request body.
type LoginRequest struct {
	Username string `json:"username"` // username or email
	Password string `json:"password"`
}

// LoginHandler handles user login requests.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	var user *model.User
	var err error
	if strings.Contains(req.Username, "@") {
		user, err = h.userRepo.GetUserByEmail(req.Username)
	} else {
		user, err = h.userRepo.GetUserByUsername(req.Username)
	}
	if err != nil {
		logger.Error("Failed to query user", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	token, err := auth.GenerateToken(h.cfg.JWTSecret, user.ID, user.Username, user.Role)
	if err != nil {
		logger.Error("Failed to generate token", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Info("User logged in", logger.String("username", user.Username))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}
