package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"RoomFM/model"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (th *testHandler) submitRequest(t *testing.T, roomName, token string, body SubmitRequestRequest) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/"+roomName+"/requests", jsonBody(t, body))
	req = mux.SetURLVars(req, map[string]string{"room": roomName})
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	th.h.SubmitRequestHandler(rr, req)
	return rr
}

func TestSubmitRequestHandler(t *testing.T) {
	track := model.Track{SongID: "s-1", Title: "Blue in Green", Artist: "Miles Davis"}

	t.Run("Guest Submits Free", func(t *testing.T) {
		th := newTestHandler(t)
		th.seedRoom(t, "lounge", "host")

		rr := th.submitRequest(t, "lounge", "", SubmitRequestRequest{Track: track})
		require.Equal(t, http.StatusCreated, rr.Code)

		var resp model.TrackRequest
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, model.GuestRequester, resp.Requester)
		assert.Equal(t, model.RequestStatusDirectAdd, resp.Status)
	})

	t.Run("Authenticated User Is Charged", func(t *testing.T) {
		th := newTestHandler(t)
		th.seedRoom(t, "lounge", "host")
		require.NoError(t, th.ledger.SetBalance(context.Background(), "alice", 100, "test"))

		rr := th.submitRequest(t, "lounge", th.tokenFor(t, "alice", "user"), SubmitRequestRequest{Track: track})
		require.Equal(t, http.StatusCreated, rr.Code)

		balance, err := th.ledger.GetBalance(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, 70, balance)
	})

	t.Run("Insufficient Funds", func(t *testing.T) {
		th := newTestHandler(t)
		th.seedRoom(t, "lounge", "host")
		require.NoError(t, th.ledger.SetBalance(context.Background(), "alice", 5, "test"))

		rr := th.submitRequest(t, "lounge", th.tokenFor(t, "alice", "user"), SubmitRequestRequest{Track: track})
		assert.Equal(t, http.StatusPaymentRequired, rr.Code)
	})

	t.Run("Unknown Room", func(t *testing.T) {
		th := newTestHandler(t)

		rr := th.submitRequest(t, "nowhere", "", SubmitRequestRequest{Track: track})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Missing Title", func(t *testing.T) {
		th := newTestHandler(t)
		th.seedRoom(t, "lounge", "host")

		rr := th.submitRequest(t, "lounge", "", SubmitRequestRequest{Track: model.Track{Artist: "nobody"}})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestPinTrackHandler_HostOnly(t *testing.T) {
	th := newTestHandler(t)
	th.seedRoom(t, "lounge", "host")

	req := httptest.NewRequest(http.MethodPost, "/api/rooms/lounge/playlist/pin", jsonBody(t, PinTrackRequest{SelectedIndex: 1}))
	req = mux.SetURLVars(req, map[string]string{"room": "lounge"})
	req.Header.Set("Authorization", "Bearer "+th.tokenFor(t, "alice", "user"))
	rr := httptest.NewRecorder()
	th.h.AuthMiddleware(th.h.PinTrackHandler)(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}
