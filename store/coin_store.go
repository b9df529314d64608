package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"RoomFM/model"

	"github.com/redis/go-redis/v9"
)

const (
	coinBalanceKey  = "coins:%s"          // String: integer balance
	coinActivityKey = "coins:%s:activity" // List: CoinActivity JSON, newest first
	coinActivityCap = 100
)

// CoinStore is the single authoritative store for coin balances.
type CoinStore struct {
	client *redis.Client
	locks  *KeyedMutex
}

// NewCoinStore creates a CoinStore backed by the given client.
func NewCoinStore(client *redis.Client) *CoinStore {
	return &CoinStore{client: client, locks: NewKeyedMutex(64)}
}

// GetBalance returns the user's balance. Unknown users have balance 0.
func (s *CoinStore) GetBalance(ctx context.Context, username string) (int, error) {
	if s.client == nil {
		return 0, fmt.Errorf("redis client not initialized")
	}

	data, err := s.client.Get(ctx, fmt.Sprintf(coinBalanceKey, username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	balance, err := strconv.Atoi(data)
	if err != nil {
		return 0, fmt.Errorf("corrupt balance for %s: %w", username, err)
	}
	return balance, nil
}

// SetBalance writes the balance and records the change with a reason.
func (s *CoinStore) SetBalance(ctx context.Context, username string, balance int, reason string) error {
	unlock := s.locks.Lock("coins:" + username)
	defer unlock()
	return s.setLocked(ctx, username, balance, reason)
}

// Update loads the balance, applies fn and writes the result back under
// the user's lock. fn returns the new balance and the activity reason;
// it may return an error to abort without writing.
func (s *CoinStore) Update(ctx context.Context, username string, fn func(current int) (int, string, error)) (int, error) {
	unlock := s.locks.Lock("coins:" + username)
	defer unlock()

	current, err := s.GetBalance(ctx, username)
	if err != nil {
		return 0, err
	}
	next, reason, err := fn(current)
	if err != nil {
		return current, err
	}
	if err := s.setLocked(ctx, username, next, reason); err != nil {
		return current, err
	}
	return next, nil
}

// Activity returns the most recent balance changes, newest first.
func (s *CoinStore) Activity(ctx context.Context, username string, limit int) ([]model.CoinActivity, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis client not initialized")
	}
	if limit <= 0 || limit > coinActivityCap {
		limit = coinActivityCap
	}

	entries, err := s.client.LRange(ctx, fmt.Sprintf(coinActivityKey, username), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	activity := make([]model.CoinActivity, 0, len(entries))
	for _, entry := range entries {
		var a model.CoinActivity
		if err := json.Unmarshal([]byte(entry), &a); err == nil {
			activity = append(activity, a)
		}
	}
	return activity, nil
}

func (s *CoinStore) setLocked(ctx context.Context, username string, balance int, reason string) error {
	if s.client == nil {
		return fmt.Errorf("redis client not initialized")
	}

	previous, err := s.GetBalance(ctx, username)
	if err != nil {
		return err
	}

	entry, err := json.Marshal(model.NewCoinActivity(previous, balance, reason))
	if err != nil {
		return fmt.Errorf("failed to marshal coin activity: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(coinBalanceKey, username), strconv.Itoa(balance), 0)
	pipe.LPush(ctx, fmt.Sprintf(coinActivityKey, username), entry)
	pipe.LTrim(ctx, fmt.Sprintf(coinActivityKey, username), 0, coinActivityCap-1)
	_, err = pipe.Exec(ctx)
	return err
}
