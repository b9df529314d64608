package model

import "time"

// CoinActivity is one entry of the per-user balance mutation log. The log is
// advisory, not a cryptographic audit trail.
type CoinActivity struct {
	Previous int       `json:"previous"`
	New      int       `json:"new"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

// NewCoinActivity stamps a balance change with the current time.
func NewCoinActivity(previous, next int, reason string) CoinActivity {
	return CoinActivity{Previous: previous, New: next, Reason: reason, At: time.Now()}
}

// CoinPurchase archives a completed payment-provider checkout that credited
// coins to a user. Persisted to MySQL via GORM.
type CoinPurchase struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Username  string    `json:"username" gorm:"size:64;index;not null"`
	Coins     int       `json:"coins" gorm:"not null"`
	PackageID string    `json:"packageId" gorm:"size:32"`
	PaymentID string    `json:"paymentId" gorm:"size:128"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName sets the table name for GORM.
func (CoinPurchase) TableName() string {
	return "coin_purchases"
}
