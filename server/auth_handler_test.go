package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{
			name:           "Success",
			body:           RegisterRequest{Username: "alice", Password: "password123", Email: "alice@example.com"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Missing Fields",
			body:           RegisterRequest{Username: "bob"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Reserved Username",
			body:           RegisterRequest{Username: "Guest", Password: "password123", Email: "guest@example.com"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Invalid JSON",
			body:           "not-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := newTestHandler(t)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, tt.body))
			rr := httptest.NewRecorder()
			th.h.RegisterHandler(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusCreated {
				var resp map[string]interface{}
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp["token"])
			}
		})
	}
}

func TestRegisterHandler_Duplicate(t *testing.T) {
	th := newTestHandler(t)
	body := RegisterRequest{Username: "alice", Password: "password123", Email: "alice@example.com"}

	rr := httptest.NewRecorder()
	th.h.RegisterHandler(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, body)))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	th.h.RegisterHandler(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, body)))
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestLoginHandler(t *testing.T) {
	th := newTestHandler(t)

	register := RegisterRequest{Username: "alice", Password: "password123", Email: "alice@example.com"}
	rr := httptest.NewRecorder()
	th.h.RegisterHandler(rr, httptest.NewRequest(http.MethodPost, "/api/auth/register", jsonBody(t, register)))
	require.Equal(t, http.StatusCreated, rr.Code)

	tests := []struct {
		name           string
		body           LoginRequest
		expectedStatus int
	}{
		{"By Username", LoginRequest{Username: "alice", Password: "password123"}, http.StatusOK},
		{"By Email", LoginRequest{Username: "alice@example.com", Password: "password123"}, http.StatusOK},
		{"Wrong Password", LoginRequest{Username: "alice", Password: "nope"}, http.StatusUnauthorized},
		{"Unknown User", LoginRequest{Username: "mallory", Password: "password123"}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			th.h.LoginHandler(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", jsonBody(t, tt.body)))

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp map[string]interface{}
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp["token"])
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	th := newTestHandler(t)

	var sawUsername string
	protected := th.h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		sawUsername = UsernameFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("No Token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		protected(rr, httptest.NewRequest(http.MethodGet, "/api/coins/balance", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Garbage Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/coins/balance", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rr := httptest.NewRecorder()
		protected(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/coins/balance", nil)
		req.Header.Set("Authorization", "Bearer "+th.tokenFor(t, "alice", "user"))
		rr := httptest.NewRecorder()
		protected(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "alice", sawUsername)
	})
}

func TestAdminMiddleware(t *testing.T) {
	th := newTestHandler(t)

	guarded := th.h.AuthMiddleware(th.h.AdminMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("Regular User Forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/export", nil)
		req.Header.Set("Authorization", "Bearer "+th.tokenFor(t, "alice", "user"))
		rr := httptest.NewRecorder()
		guarded(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Admin Allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/export", nil)
		req.Header.Set("Authorization", "Bearer "+th.tokenFor(t, "root", "admin"))
		rr := httptest.NewRecorder()
		guarded(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}
