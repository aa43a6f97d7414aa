package models

import (
	"time"

	"gorm.io/gorm"
)

// User carries the two coin counters and the creator profile fields the
// cash-out rules read. Balances change only through the coin ledger.
type User struct {
	ID               uint       `gorm:"primaryKey"`
	Username         string     `gorm:"type:varchar(64);uniqueIndex;not null"`
	Role             string     `gorm:"type:varchar(20);not null"`
	PaidCoins        int64      `gorm:"not null;default:0"`
	FreeCoins        int64      `gorm:"not null;default:0"`
	TotalStreamHours float64    `gorm:"not null;default:0"`
	TaxFormStatus    string     `gorm:"type:varchar(20);not null"`
	LastActiveAt     *time.Time `gorm:"index"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

// User role constants
const (
	RoleUser        = "user"
	RoleBroadcaster = "broadcaster"
	RoleOfficer     = "officer"
	RoleAdmin       = "admin"
)

// Tax form status constants
const (
	TaxFormNone    = "none"
	TaxFormPending = "pending"
	TaxFormOnFile  = "on_file"
)

// Balance returns the counter for the given coin type.
func (u *User) Balance(coinType string) int64 {
	if coinType == CoinTypeFree {
		return u.FreeCoins
	}
	return u.PaidCoins
}

// BeforeSave hook for validation
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.TaxFormStatus == "" {
		u.TaxFormStatus = TaxFormNone
	}

	validRoles := map[string]bool{
		RoleUser:        true,
		RoleBroadcaster: true,
		RoleOfficer:     true,
		RoleAdmin:       true,
	}
	if !validRoles[u.Role] {
		return gorm.ErrInvalidData
	}

	validTaxStatuses := map[string]bool{
		TaxFormNone:    true,
		TaxFormPending: true,
		TaxFormOnFile:  true,
	}
	if !validTaxStatuses[u.TaxFormStatus] {
		return gorm.ErrInvalidData
	}

	if u.PaidCoins < 0 || u.FreeCoins < 0 || u.TotalStreamHours < 0 {
		return gorm.ErrInvalidData
	}

	return nil
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}
