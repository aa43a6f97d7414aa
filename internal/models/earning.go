package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BroadcasterEarning records the broadcaster share of one paid gift.
type BroadcasterEarning struct {
	ID            uint            `gorm:"primaryKey"`
	BroadcasterID uint            `gorm:"not null;index"`
	CoinsEarned   int64           `gorm:"not null"`
	USDValue      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	SourceType    string          `gorm:"type:varchar(30);not null"`
	SourceID      string          `gorm:"type:varchar(64);not null;index"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index"`
}

const EarningSourceGift = "gift"

func (BroadcasterEarning) TableName() string {
	return "broadcaster_earnings"
}

// OfficerEarning is the commission derived from one officer action.
type OfficerEarning struct {
	ID              uint            `gorm:"primaryKey"`
	OfficerID       uint            `gorm:"not null;index"`
	ActionID        uint            `gorm:"not null;uniqueIndex"`
	CommissionCoins int64           `gorm:"not null"`
	USDValue        decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index"`
}

func (OfficerEarning) TableName() string {
	return "officer_earnings"
}
