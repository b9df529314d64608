package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"RoomFM/config"
	"RoomFM/core/auth"
	"RoomFM/core/coin"
	"RoomFM/core/moderation"
	"RoomFM/core/notify"
	"RoomFM/core/playlist"
	"RoomFM/core/request"
	"RoomFM/core/room"
	"RoomFM/model"
	"RoomFM/repository"
	"RoomFM/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// memUserRepo is an in-memory UserRepository for handler tests.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]*model.User)}
}

func (r *memUserRepo) CreateUser(user *model.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return 0, repository.ErrDuplicateUser
		}
	}
	r.nextID++
	stored := *user
	stored.ID = r.nextID
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	r.users[stored.ID] = &stored
	return stored.ID, nil
}

func (r *memUserRepo) GetUserByID(id int64) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *memUserRepo) GetUserByUsername(username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) GetUserByEmail(email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) UpdateRole(userID int64, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		u.Role = role
	}
	return nil
}

// memPurchaseRepo is an in-memory PurchaseRepository.
type memPurchaseRepo struct {
	mu        sync.Mutex
	purchases []model.CoinPurchase
}

func (r *memPurchaseRepo) Create(p *model.CoinPurchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purchases = append(r.purchases, *p)
	return nil
}

func (r *memPurchaseRepo) GetByPaymentID(paymentID string) (*model.CoinPurchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.purchases {
		if r.purchases[i].PaymentID == paymentID {
			copied := r.purchases[i]
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memPurchaseRepo) ListByUsername(username string, limit int) ([]model.CoinPurchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CoinPurchase
	for i := range r.purchases {
		if r.purchases[i].Username == username {
			out = append(out, r.purchases[i])
		}
	}
	return out, nil
}

// testHandler wires a full APIHandler over miniredis.
type testHandler struct {
	h         *APIHandler
	rooms     *store.RoomStore
	ledger    *coin.Ledger
	userRepo  *memUserRepo
	purchases *memPurchaseRepo
	cfg       *config.Config
}

func newTestHandler(t *testing.T) *testHandler {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		JWTSecret:            "test-secret",
		DefaultRequestPrice:  30,
		DefaultPinPrice:      10,
		PaymentWebhookSecret: "hook-secret",
	}

	roomStore := store.NewRoomStore(client)
	coinStore := store.NewCoinStore(client)
	requestStore := store.NewRequestStore(client)
	notificationStore := store.NewNotificationStore(client)

	ordering := playlist.NewOrdering(roomStore)
	ledger := coin.NewLedger(coinStore)
	userRepo := newMemUserRepo()
	purchaseRepo := &memPurchaseRepo{}
	purchases := coin.NewPurchaseService(ledger, purchaseRepo)
	notifier := notify.NewNotifier(notificationStore)
	moderator := moderation.NewModerator(nil)
	requestService := request.NewService(roomStore, requestStore, ledger, ordering, moderator, notifier)
	roomService := room.NewService(roomStore, playlist.NewBuilder(nil, nil), ordering, cfg)
	hub := room.NewHub(roomStore)

	h := NewAPIHandler(userRepo, roomService, requestService, ledger, purchases,
		ordering, notifier, nil, hub, roomStore, cfg)

	return &testHandler{
		h:         h,
		rooms:     roomStore,
		ledger:    ledger,
		userRepo:  userRepo,
		purchases: purchaseRepo,
		cfg:       cfg,
	}
}

func (th *testHandler) tokenFor(t *testing.T, username, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(th.cfg.JWTSecret, 1, username, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

// seedRoom stores a room without moderation so request tests add tracks
// directly.
func (th *testHandler) seedRoom(t *testing.T, name, host string) {
	t.Helper()
	r := &model.Room{
		Name: name,
		Host: model.HostInfo{Username: host, CreatedAt: time.Now()},
		Settings: model.RoomSettings{
			RequestPrice: 30,
			PinPrice:     10,
		},
		CreatedAt: time.Now(),
	}
	if err := th.rooms.SaveRoom(context.Background(), r); err != nil {
		t.Fatalf("seed room: %v", err)
	}
}
