package request

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RoomFM/core/coin"
	"RoomFM/core/moderation"
	"RoomFM/core/notify"
	"RoomFM/core/playlist"
	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/store"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a request ID does not exist.
var ErrNotFound = store.ErrRequestNotFound

// ErrUnauthorized is returned when a non-host tries to moderate.
var ErrUnauthorized = errors.New("only the room host may moderate requests")

// ErrInvalidTransition is returned when a resolved request is moderated again.
var ErrInvalidTransition = errors.New("request already resolved")

// Service runs the track request lifecycle: pricing, moderation and
// playlist insertion.
type Service struct {
	rooms     *store.RoomStore
	requests  *store.RequestStore
	ledger    *coin.Ledger
	ordering  *playlist.Ordering
	moderator *moderation.Moderator
	notifier  *notify.Notifier
}

// NewService wires the request service.
func NewService(
	rooms *store.RoomStore,
	requests *store.RequestStore,
	ledger *coin.Ledger,
	ordering *playlist.Ordering,
	moderator *moderation.Moderator,
	notifier *notify.Notifier,
) *Service {
	return &Service{
		rooms:     rooms,
		requests:  requests,
		ledger:    ledger,
		ordering:  ordering,
		moderator: moderator,
		notifier:  notifier,
	}
}

// Price returns what a request in the room costs. Express requests add the
// pin price on top of the request price.
func Price(settings model.RoomSettings, express bool) int {
	price := settings.RequestPrice
	if express {
		price += settings.PinPrice
	}
	return price
}

// Submit charges the requester, runs moderation per the room's settings and
// either inserts the track or leaves the request pending. The debit happens
// first: when it fails no request record exists and nobody is notified.
func (s *Service) Submit(ctx context.Context, roomName, requester string, track model.Track, express bool) (*model.TrackRequest, error) {
	room, err := s.rooms.GetRoom(ctx, roomName)
	if err != nil {
		return nil, err
	}

	price := Price(room.Settings, express)
	charged := requester != "" && requester != model.GuestRequester
	if charged && price > 0 {
		if _, err := s.ledger.UseBalance(ctx, requester, price, fmt.Sprintf("track request in %s", roomName)); err != nil {
			return nil, err
		}
	}

	// The host earns the fee, but not from their own requests.
	if charged && price > 0 && requester != room.Host.Username {
		if _, err := s.ledger.AddBalance(ctx, room.Host.Username, price, fmt.Sprintf("request fee in %s", roomName)); err != nil {
			logger.Error("Failed to credit host for request fee",
				logger.String("room", roomName),
				logger.String("host", room.Host.Username),
				logger.ErrorField(err))
		}
	}

	track.RequestedBy = requester
	track.Express = express
	track.PricePaid = price

	req := &model.TrackRequest{
		ID:        uuid.New().String(),
		RoomName:  roomName,
		Requester: requester,
		Express:   express,
		PricePaid: price,
		CreatedAt: time.Now(),
	}

	switch {
	case !room.Settings.ModerationEnabled:
		req.Status = model.RequestStatusDirectAdd
		track.Status = model.RequestStatusDirectAdd
		req.Track = track
		if err := s.insertTrack(ctx, roomName, track, express); err != nil {
			return nil, err
		}

	case room.Settings.AIModeration.Enabled:
		decision := s.moderator.Assess(ctx, track, room.Settings.AIModeration)
		req.Moderation = decision
		if decision.Approved {
			now := time.Now()
			req.Status = model.RequestStatusApproved
			req.ApprovedAt = &now
			track.Status = model.RequestStatusApproved
			req.Track = track
			if err := s.insertTrack(ctx, roomName, track, express); err != nil {
				return nil, err
			}
		} else {
			req.Status = model.RequestStatusPending
			track.Status = model.RequestStatusPending
			req.Track = track
		}

	default:
		req.Status = model.RequestStatusPending
		track.Status = model.RequestStatusPending
		req.Track = track
	}

	if err := s.requests.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	if err := s.requests.RecordHistory(ctx, req); err != nil {
		logger.Warn("Failed to record request history", logger.ErrorField(err))
	}

	if req.Status.Terminal() {
		if err := s.notifier.RequestResolved(ctx, requester, req.Status, track.Title); err != nil {
			logger.Warn("Failed to notify requester", logger.ErrorField(err))
		}
	}

	logger.Info("Track request submitted",
		logger.String("room", roomName),
		logger.String("requester", requester),
		logger.String("title", track.Title),
		logger.String("status", string(req.Status)),
		logger.Bool("express", express),
		logger.Int("price", price))
	return req, nil
}

// Approve resolves a pending request in the requester's favor. Host only.
func (s *Service) Approve(ctx context.Context, requestID, actor string) (*model.TrackRequest, error) {
	return s.resolve(ctx, requestID, actor, model.RequestStatusApproved)
}

// Reject resolves a pending request against the requester. Host only. The
// fee is not refunded.
func (s *Service) Reject(ctx context.Context, requestID, actor string) (*model.TrackRequest, error) {
	return s.resolve(ctx, requestID, actor, model.RequestStatusRejected)
}

func (s *Service) resolve(ctx context.Context, requestID, actor string, outcome model.RequestStatus) (*model.TrackRequest, error) {
	req, err := s.requests.UpdateRequest(ctx, requestID, func(r *model.TrackRequest) error {
		room, err := s.rooms.GetRoom(ctx, r.RoomName)
		if err != nil {
			return err
		}
		if !room.IsHost(actor) {
			return ErrUnauthorized
		}
		if r.Status.Terminal() {
			return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, r.ID, r.Status)
		}

		now := time.Now()
		r.Status = outcome
		r.Track.Status = outcome
		if outcome == model.RequestStatusApproved {
			r.ApprovedAt = &now
		} else {
			r.RejectedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome == model.RequestStatusApproved {
		if err := s.insertTrack(ctx, req.RoomName, req.Track, req.Express); err != nil {
			return nil, err
		}
	}

	if err := s.notifier.RequestResolved(ctx, req.Requester, outcome, req.Track.Title); err != nil {
		logger.Warn("Failed to notify requester", logger.ErrorField(err))
	}

	logger.Info("Track request resolved",
		logger.String("request", requestID),
		logger.String("actor", actor),
		logger.String("status", string(outcome)))
	return req, nil
}

// Pending lists the room's unresolved requests. Host only.
func (s *Service) Pending(ctx context.Context, roomName, actor string) ([]model.TrackRequest, error) {
	room, err := s.rooms.GetRoom(ctx, roomName)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(actor) {
		return nil, ErrUnauthorized
	}
	return s.requests.PendingRequests(ctx, roomName)
}

// History lists the room's request history, newest first.
func (s *Service) History(ctx context.Context, roomName string, limit int) ([]model.TrackRequest, error) {
	return s.requests.HistoryRequests(ctx, roomName, limit)
}

// Get loads one request by ID.
func (s *Service) Get(ctx context.Context, requestID string) (*model.TrackRequest, error) {
	return s.requests.GetRequest(ctx, requestID)
}

func (s *Service) insertTrack(ctx context.Context, roomName string, track model.Track, express bool) error {
	var err error
	if express {
		_, err = s.ordering.InsertAfterCurrent(ctx, roomName, track)
	} else {
		_, err = s.ordering.Append(ctx, roomName, track)
	}
	return err
}
