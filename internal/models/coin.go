package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CoinTransaction is an immutable ledger row. For every user the sum of
// Amount per CoinType equals the matching counter on User.
type CoinTransaction struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       uint      `gorm:"not null;index:idx_tx_user_coin"`
	Amount       int64     `gorm:"not null"`
	CoinType     string    `gorm:"type:varchar(10);not null;index:idx_tx_user_coin"`
	Kind         string    `gorm:"type:varchar(50);not null;index"`
	Source       string    `gorm:"type:varchar(50);not null"`
	Description  string    `gorm:"type:text"`
	Metadata     JSONMap   `gorm:"type:text"`
	ExternalRef  *string   `gorm:"type:varchar(100);uniqueIndex"`
	BalanceAfter int64     `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index"`
}

// Coin type constants
const (
	CoinTypePaid = "paid"
	CoinTypeFree = "free"
)

// Transaction kind constants
const (
	TxKindPurchase        = "purchase"
	TxKindGiftSent        = "gift_sent"
	TxKindGiftReceived    = "gift_received"
	TxKindPlatformRevenue = "platform_revenue"
	TxKindKickFee         = "kick_fee"
	TxKindBanFee          = "ban_fee"
	TxKindOfficerPayment  = "officer_payment"
	TxKindCashout         = "cashout"
	TxKindWheelSpin       = "wheel_spin"
	TxKindWheelPrize      = "wheel_prize"
	TxKindReward          = "reward"
	TxKindRefund          = "refund"
	TxKindAdminAdjustment = "admin_adjustment"
)

// Transaction source constants
const (
	TxSourceGift                 = "gift"
	TxSourceModeration           = "moderation"
	TxSourceModerationCommission = "moderation_commission"
	TxSourcePaymentProvider      = "payment_provider"
	TxSourceSystem               = "system"
)

func IsValidCoinType(coinType string) bool {
	return coinType == CoinTypePaid || coinType == CoinTypeFree
}

func (CoinTransaction) TableName() string {
	return "coin_transactions"
}

// JSONMap stores opaque key/value metadata as a JSON text column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}

	out := JSONMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// Int64 reads a numeric metadata value regardless of how it was decoded.
func (m JSONMap) Int64(key string) int64 {
	switch v := m[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// Bool reads a boolean metadata value.
func (m JSONMap) Bool(key string) bool {
	v, _ := m[key].(bool)
	return v
}

// String reads a string metadata value.
func (m JSONMap) String(key string) string {
	v, _ := m[key].(string)
	return v
}
