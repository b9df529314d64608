package coin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RoomFM/logger"
	"RoomFM/model"
	"RoomFM/repository"

	"github.com/google/uuid"
)

// ErrUnknownPackage is returned for webhook events naming no known package.
var ErrUnknownPackage = errors.New("unknown coin package")

// coinPackages maps provider package IDs to the coins they grant.
var coinPackages = map[string]int{
	"starter": 100,
	"regular": 550,
	"jumbo":   1200,
}

// PackageCoins returns the coin amount of a package.
func PackageCoins(packageID string) (int, bool) {
	coins, ok := coinPackages[packageID]
	return coins, ok
}

// CheckoutEvent is a completed checkout reported by the payment provider.
type CheckoutEvent struct {
	PaymentID string `json:"paymentId"`
	Username  string `json:"username"`
	PackageID string `json:"packageId"`
}

// PurchaseService credits coins for completed checkouts and archives each
// purchase. Replayed webhook deliveries are detected by payment ID and
// credited only once.
type PurchaseService struct {
	ledger    *Ledger
	purchases repository.PurchaseRepository
}

// NewPurchaseService wires the purchase service.
func NewPurchaseService(ledger *Ledger, purchases repository.PurchaseRepository) *PurchaseService {
	return &PurchaseService{ledger: ledger, purchases: purchases}
}

// HandleCheckout credits the purchased coins and archives the purchase.
// Returns the purchase record, or the existing one for a replayed event.
func (s *PurchaseService) HandleCheckout(ctx context.Context, event CheckoutEvent) (*model.CoinPurchase, error) {
	if event.PaymentID == "" || event.Username == "" {
		return nil, fmt.Errorf("checkout event missing payment ID or username")
	}

	coins, ok := PackageCoins(event.PackageID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPackage, event.PackageID)
	}

	existing, err := s.purchases.GetByPaymentID(event.PaymentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Warn("Replayed checkout event, skipping credit",
			logger.String("paymentId", event.PaymentID),
			logger.String("username", event.Username))
		return existing, nil
	}

	balance, err := s.ledger.AddBalance(ctx, event.Username, coins,
		fmt.Sprintf("purchase %s (%s)", event.PackageID, event.PaymentID))
	if err != nil {
		return nil, err
	}

	purchase := &model.CoinPurchase{
		ID:        uuid.New().String(),
		Username:  event.Username,
		Coins:     coins,
		PackageID: event.PackageID,
		PaymentID: event.PaymentID,
		CreatedAt: time.Now(),
	}
	if err := s.purchases.Create(purchase); err != nil {
		// The credit already happened; the archive row is best effort.
		logger.Error("Failed to archive purchase",
			logger.String("paymentId", event.PaymentID),
			logger.ErrorField(err))
	}

	logger.Info("Checkout credited",
		logger.String("username", event.Username),
		logger.String("package", event.PackageID),
		logger.Int("coins", coins),
		logger.Int("balance", balance))
	return purchase, nil
}

// History lists a user's archived purchases, newest first.
func (s *PurchaseService) History(username string, limit int) ([]model.CoinPurchase, error) {
	return s.purchases.ListByUsername(username, limit)
}
