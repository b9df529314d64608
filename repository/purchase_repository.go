package repository

import (
	"fmt"

	"RoomFM/model"

	"gorm.io/gorm"
)

// PurchaseRepository archives completed coin purchases.
type PurchaseRepository interface {
	Create(purchase *model.CoinPurchase) error
	GetByPaymentID(paymentID string) (*model.CoinPurchase, error)
	ListByUsername(username string, limit int) ([]model.CoinPurchase, error)
}

type gormPurchaseRepository struct {
	db *gorm.DB
}

// NewGormPurchaseRepository creates a PurchaseRepository backed by GORM.
func NewGormPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &gormPurchaseRepository{db: db}
}

func (r *gormPurchaseRepository) Create(purchase *model.CoinPurchase) error {
	if err := r.db.Create(purchase).Error; err != nil {
		return fmt.Errorf("failed to archive purchase: %w", err)
	}
	return nil
}

// GetByPaymentID looks up a purchase by the provider's payment ID. Used to
// detect replayed webhook deliveries. A miss returns (nil, nil).
func (r *gormPurchaseRepository) GetByPaymentID(paymentID string) (*model.CoinPurchase, error) {
	var purchase model.CoinPurchase
	err := r.db.Where("payment_id = ?", paymentID).First(&purchase).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query purchase: %w", err)
	}
	return &purchase, nil
}

func (r *gormPurchaseRepository) ListByUsername(username string, limit int) ([]model.CoinPurchase, error) {
	if limit <= 0 {
		limit = 50
	}
	var purchases []model.CoinPurchase
	err := r.db.Where("username = ?", username).Order("created_at DESC").Limit(limit).Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}
