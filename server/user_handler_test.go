package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"RoomFM/model"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateRoleHandler(t *testing.T) {
	th := newTestHandler(t)

	_, err := th.userRepo.CreateUser(&model.User{Username: "alice", Email: "alice@example.com", Role: model.RoleUser})
	require.NoError(t, err)

	call := func(username, role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/admin/users/"+username+"/role", jsonBody(t, UpdateRoleRequest{Role: role}))
		req = mux.SetURLVars(req, map[string]string{"username": username})
		req.Header.Set("Authorization", "Bearer "+th.tokenFor(t, "root", "admin"))
		rr := httptest.NewRecorder()
		th.h.AuthMiddleware(th.h.AdminMiddleware(th.h.UpdateRoleHandler))(rr, req)
		return rr
	}

	t.Run("Grants Admin", func(t *testing.T) {
		rr := call("alice", "admin")
		require.Equal(t, http.StatusOK, rr.Code)

		user, err := th.userRepo.GetUserByUsername("alice")
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, user.Role)
	})

	t.Run("Revokes Admin", func(t *testing.T) {
		rr := call("alice", "user")
		require.Equal(t, http.StatusOK, rr.Code)

		user, err := th.userRepo.GetUserByUsername("alice")
		require.NoError(t, err)
		assert.Equal(t, model.RoleUser, user.Role)
	})

	t.Run("Unknown Role", func(t *testing.T) {
		rr := call("alice", "superuser")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Unknown User", func(t *testing.T) {
		rr := call("mallory", "admin")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
