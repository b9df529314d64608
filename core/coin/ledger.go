package coin

import (
	"context"
	"errors"
	"fmt"

	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/store"
)

// ErrInsufficientFunds is returned when a debit exceeds the balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrNegativeAmount is returned for negative balance or amount arguments.
var ErrNegativeAmount = errors.New("amount must not be negative")

// Ledger is the single source of truth for user coin balances. Every
// mutation is atomic per user and recorded in the activity log.
type Ledger struct {
	coins *store.CoinStore
}

// NewLedger creates a ledger over the given coin store.
func NewLedger(coins *store.CoinStore) *Ledger {
	return &Ledger{coins: coins}
}

// GetBalance returns the user's balance. Users without a record have 0.
func (l *Ledger) GetBalance(ctx context.Context, username string) (int, error) {
	return l.coins.GetBalance(ctx, username)
}

// SetBalance overwrites the user's balance. Negative balances are rejected.
func (l *Ledger) SetBalance(ctx context.Context, username string, balance int, reason string) error {
	if balance < 0 {
		return fmt.Errorf("set balance for %s: %w", username, ErrNegativeAmount)
	}
	if err := l.coins.SetBalance(ctx, username, balance, reason); err != nil {
		return err
	}
	logger.Info("Balance set",
		logger.String("username", username),
		logger.Int("balance", balance),
		logger.String("reason", reason))
	return nil
}

// AddBalance credits amount to the user and returns the new balance.
// Amount must be non-negative.
func (l *Ledger) AddBalance(ctx context.Context, username string, amount int, reason string) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("add balance for %s: %w", username, ErrNegativeAmount)
	}

	balance, err := l.coins.Update(ctx, username, func(current int) (int, string, error) {
		return current + amount, reason, nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Balance credited",
		logger.String("username", username),
		logger.Int("amount", amount),
		logger.Int("balance", balance),
		logger.String("reason", reason))
	return balance, nil
}

// UseBalance debits amount from the user. When the balance is too low the
// debit fails with ErrInsufficientFunds, the balance is left untouched and
// the current balance is returned alongside the error.
func (l *Ledger) UseBalance(ctx context.Context, username string, amount int, reason string) (int, error) {
	if amount < 0 {
		return 0, fmt.Errorf("use balance for %s: %w", username, ErrNegativeAmount)
	}

	balance, err := l.coins.Update(ctx, username, func(current int) (int, string, error) {
		if current < amount {
			return 0, "", ErrInsufficientFunds
		}
		return current - amount, reason, nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			// Update returns the unchanged balance on abort.
			return balance, ErrInsufficientFunds
		}
		return 0, err
	}

	logger.Info("Balance debited",
		logger.String("username", username),
		logger.Int("amount", amount),
		logger.Int("balance", balance),
		logger.String("reason", reason))
	return balance, nil
}

// Activity returns the most recent balance changes, newest first.
func (l *Ledger) Activity(ctx context.Context, username string, limit int) ([]model.CoinActivity, error) {
	return l.coins.Activity(ctx, username, limit)
}
