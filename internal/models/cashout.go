package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashoutRequest is created once per request. Status transitions belong to
// the settlement process.
type CashoutRequest struct {
	ID             uint            `gorm:"primaryKey"`
	Reference      string          `gorm:"type:varchar(40);uniqueIndex;not null"`
	UserID         uint            `gorm:"not null;index"`
	USDValue       decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	RequestedCoins int64           `gorm:"not null"`
	PayoutMethod   string          `gorm:"type:varchar(30);not null"`
	PayoutDetails  string          `gorm:"type:text"`
	Status         string          `gorm:"type:varchar(20);not null;index"`
	Eligible       bool            `gorm:"not null"`
	HoldUntil      time.Time       `gorm:"not null"`
	RejectedReason string          `gorm:"type:text"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index"`
}

// Cash-out status constants
const (
	CashoutStatusPending    = "pending"
	CashoutStatusProcessing = "processing"
	CashoutStatusPaid       = "paid"
	CashoutStatusCompleted  = "completed"
	CashoutStatusRejected   = "rejected"
)

// IsSettled reports whether money has left the platform for this request.
func (c *CashoutRequest) IsSettled() bool {
	return c.Status == CashoutStatusPaid || c.Status == CashoutStatusCompleted
}

func (CashoutRequest) TableName() string {
	return "cashout_requests"
}
