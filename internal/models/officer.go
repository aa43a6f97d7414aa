package models

import (
	"time"
)

// OfficerAction is the audit row for one kick or ban.
type OfficerAction struct {
	ID              uint      `gorm:"primaryKey"`
	OfficerID       uint      `gorm:"not null;index"`
	TargetUserID    uint      `gorm:"not null;index"`
	ActionType      string    `gorm:"type:varchar(10);not null;index"`
	Reason          string    `gorm:"type:text"`
	RelatedStreamID string    `gorm:"type:varchar(64)"`
	FeeCoins        int64     `gorm:"not null"`
	FeePaidCoins    int64     `gorm:"not null"`
	FeeFreeCoins    int64     `gorm:"not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index"`
}

// Officer action type constants
const (
	ActionTypeKick = "kick"
	ActionTypeBan  = "ban"
)

func IsValidActionType(actionType string) bool {
	return actionType == ActionTypeKick || actionType == ActionTypeBan
}

// FeeKind returns the ledger kind used for the fee charged by this action type.
func FeeKind(actionType string) string {
	if actionType == ActionTypeBan {
		return TxKindBanFee
	}
	return TxKindKickFee
}

func (OfficerAction) TableName() string {
	return "officer_actions"
}
