package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"RoomFM/model"

	"github.com/redis/go-redis/v9"
)

const (
	requestKey     = "request:%s"              // String: TrackRequest JSON
	roomPendingKey = "room:%s:requests:pending" // Set: request IDs awaiting review
	roomHistoryKey = "room:%s:requests:history" // List: request IDs, newest first
)

// ErrRequestNotFound is returned when a request ID does not exist.
var ErrRequestNotFound = errors.New("request not found")

// RequestStore persists track requests and per-room pending queues.
type RequestStore struct {
	client *redis.Client
	locks  *KeyedMutex
}

// NewRequestStore creates a RequestStore backed by the given client.
func NewRequestStore(client *redis.Client) *RequestStore {
	return &RequestStore{client: client, locks: NewKeyedMutex(64)}
}

// SaveRequest writes the request record and links it into the room's queues.
// Pending requests are added to the pending set; terminal ones are removed.
func (s *RequestStore) SaveRequest(ctx context.Context, req *model.TrackRequest) error {
	if s.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(requestKey, req.ID), data, 0)
	if req.Status == model.RequestStatusPending {
		pipe.SAdd(ctx, fmt.Sprintf(roomPendingKey, req.RoomName), req.ID)
	} else {
		pipe.SRem(ctx, fmt.Sprintf(roomPendingKey, req.RoomName), req.ID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// RecordHistory appends the request to the room's history list.
func (s *RequestStore) RecordHistory(ctx context.Context, req *model.TrackRequest) error {
	if s.client == nil {
		return fmt.Errorf("redis client not initialized")
	}
	return s.client.LPush(ctx, fmt.Sprintf(roomHistoryKey, req.RoomName), req.ID).Err()
}

// GetRequest loads a request record by ID.
func (s *RequestStore) GetRequest(ctx context.Context, id string) (*model.TrackRequest, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	data, err := s.client.Get(ctx, fmt.Sprintf(requestKey, id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	var req model.TrackRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &req, nil
}

// PendingRequests returns every pending request in the room.
func (s *RequestStore) PendingRequests(ctx context.Context, roomName string) ([]model.TrackRequest, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}

	ids, err := s.client.SMembers(ctx, fmt.Sprintf(roomPendingKey, roomName)).Result()
	if err != nil {
		return nil, err
	}

	requests := make([]model.TrackRequest, 0, len(ids))
	for _, id := range ids {
		req, err := s.GetRequest(ctx, id)
		if err != nil {
			if errors.Is(err, ErrRequestNotFound) {
				// Dangling set member, drop it.
				s.client.SRem(ctx, fmt.Sprintf(roomPendingKey, roomName), id)
				continue
			}
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, nil
}

// HistoryRequests returns up to limit resolved and pending requests for the
// room, newest first.
func (s *RequestStore) HistoryRequests(ctx context.Context, roomName string, limit int) ([]model.TrackRequest, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}
	if limit <= 0 {
		limit = 200
	}

	ids, err := s.client.LRange(ctx, fmt.Sprintf(roomHistoryKey, roomName), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	requests := make([]model.TrackRequest, 0, len(ids))
	for _, id := range ids {
		req, err := s.GetRequest(ctx, id)
		if err != nil {
			if errors.Is(err, ErrRequestNotFound) {
				continue
			}
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, nil
}

// UpdateRequest loads the request, applies fn and writes it back under
// the request's lock. fn may return an error to abort without writing.
func (s *RequestStore) UpdateRequest(ctx context.Context, id string, fn func(*model.TrackRequest) error) (*model.TrackRequest, error) {
	unlock := s.locks.Lock("request:" + id)
	defer unlock()

	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(req); err != nil {
		return nil, err
	}
	if err := s.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}
