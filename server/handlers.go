package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"RoomFM/config"
	"RoomFM/core/auth"
	"RoomFM/core/coin"
	"RoomFM/core/notify"
	"RoomFM/core/playlist"
	"RoomFM/core/request"
	"RoomFM/core/room"
	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/repository"
	"RoomFM/storage"
	"RoomFM/store"
)

type contextKey string

const (
	ctxUserID   contextKey = "userID"
	ctxUsername contextKey = "username"
	ctxRole     contextKey = "role"
)

// APIHandler handles all API requests.
type APIHandler struct {
	userRepo  repository.UserRepository
	rooms     *room.Service
	requests  *request.Service
	ledger    *coin.Ledger
	purchases *coin.PurchaseService
	ordering  *playlist.Ordering
	notifier  *notify.Notifier
	exporter  *storage.Exporter
	hub       *room.Hub
	roomStore *store.RoomStore
	cfg       *config.Config
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	userRepo repository.UserRepository,
	rooms *room.Service,
	requests *request.Service,
	ledger *coin.Ledger,
	purchases *coin.PurchaseService,
	ordering *playlist.Ordering,
	notifier *notify.Notifier,
	exporter *storage.Exporter,
	hub *room.Hub,
	roomStore *store.RoomStore,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		userRepo:  userRepo,
		rooms:     rooms,
		requests:  requests,
		ledger:    ledger,
		purchases: purchases,
		ordering:  ordering,
		notifier:  notifier,
		exporter:  exporter,
		hub:       hub,
		roomStore: roomStore,
		cfg:       cfg,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Error("Failed to encode response", logger.ErrorField(err))
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// AuthMiddleware checks for a valid JWT token.
func (h *APIHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.claimsFromRequest(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, claims.UserID)
		ctx = context.WithValue(ctx, ctxUsername, claims.Username)
		ctx = context.WithValue(ctx, ctxRole, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// AdminMiddleware restricts a handler to admin users.
func (h *APIHandler) AdminMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		if RoleFromContext(r.Context()) != model.RoleAdmin {
			respondError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *APIHandler) claimsFromRequest(r *http.Request) (*auth.TokenClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, fmt.Errorf("invalid authorization header format")
	}

	return h.claimsFromToken(parts[1])
}

func (h *APIHandler) claimsFromToken(token string) (*auth.TokenClaims, error) {
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// UsernameFromContext extracts the authenticated username.
func UsernameFromContext(ctx context.Context) string {
	username, _ := ctx.Value(ctxUsername).(string)
	return username
}

// RoleFromContext extracts the authenticated role.
func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(ctxRole).(string)
	return role
}

// UserIDFromContext extracts the authenticated user ID.
func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(ctxUserID).(int64)
	return id
}
