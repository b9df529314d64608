package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"RoomFM/core/coin"
	"RoomFM/logger"

	"github.com/gorilla/mux"
)

// BalanceHandler returns the caller's coin balance.
func (h *APIHandler) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	username := UsernameFromContext(r.Context())

	balance, err := h.ledger.GetBalance(r.Context(), username)
	if err != nil {
		logger.Error("Failed to load balance", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load balance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"balance":  balance,
	})
}

// CoinActivityHandler returns the caller's recent coin activity.
func (h *APIHandler) CoinActivityHandler(w http.ResponseWriter, r *http.Request) {
	username := UsernameFromContext(r.Context())

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	activity, err := h.ledger.Activity(r.Context(), username, limit)
	if err != nil {
		logger.Error("Failed to load coin activity", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load activity")
		return
	}
	respondJSON(w, http.StatusOK, activity)
}

// SetBalanceRequest is the admin balance override body.
type SetBalanceRequest struct {
	Balance int `json:"balance"`
}

// SetBalanceHandler sets a user's balance directly. Admin only.
func (h *APIHandler) SetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	var req SetBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.ledger.SetBalance(r.Context(), username, req.Balance, "admin adjustment"); err != nil {
		if errors.Is(err, coin.ErrNegativeAmount) {
			respondError(w, http.StatusBadRequest, "balance cannot be negative")
			return
		}
		logger.Error("Failed to set balance", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to set balance")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"username": username,
		"balance":  req.Balance,
	})
}

// PurchaseHistoryHandler returns the caller's completed coin purchases.
func (h *APIHandler) PurchaseHistoryHandler(w http.ResponseWriter, r *http.Request) {
	username := UsernameFromContext(r.Context())

	history, err := h.purchases.History(username, 50)
	if err != nil {
		logger.Error("Failed to load purchase history", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to load purchases")
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// PaymentWebhookHandler receives checkout notifications from the payment
// provider. The raw body is authenticated with an HMAC-SHA256 signature
// before any field is trusted. Replayed deliveries are acknowledged without
// crediting twice.
func (h *APIHandler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	if !h.verifyWebhookSignature(body, r.Header.Get("X-Webhook-Signature")) {
		respondError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event coin.CheckoutEvent
	if err := json.Unmarshal(body, &event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	purchase, err := h.purchases.HandleCheckout(r.Context(), event)
	if err != nil {
		if errors.Is(err, coin.ErrUnknownPackage) {
			respondError(w, http.StatusBadRequest, "unknown coin package")
			return
		}
		logger.Error("Failed to process checkout", logger.ErrorField(err),
			logger.String("payment_id", event.PaymentID))
		respondError(w, http.StatusInternalServerError, "failed to process checkout")
		return
	}
	respondJSON(w, http.StatusOK, purchase)
}

func (h *APIHandler) verifyWebhookSignature(body []byte, signature string) bool {
	if h.cfg.PaymentWebhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.cfg.PaymentWebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
