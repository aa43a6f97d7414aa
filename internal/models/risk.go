package models

import (
	"time"
)

// FreezeThreshold is the aggregate risk score at which an account freezes.
const FreezeThreshold int64 = 20

const FreezeReasonRiskThreshold = "risk score threshold reached; account frozen for review"

// Risk event type constants
const (
	RiskEventSelfGiftAttempt = "self_gift_attempt"
	RiskEventGiftVelocity    = "gift_velocity"
)

// RiskEvent is append-only; each row adds Severity to the user's score.
type RiskEvent struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index"`
	EventType string    `gorm:"type:varchar(50);not null;index"`
	Severity  int64     `gorm:"not null"`
	Details   JSONMap   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (RiskEvent) TableName() string {
	return "risk_events"
}

// UserRiskProfile holds the running score. IsFrozen never flips back to
// false inside this module.
type UserRiskProfile struct {
	UserID       uint      `gorm:"primaryKey;autoIncrement:false"`
	RiskScore    int64     `gorm:"not null;index"`
	LastEventAt  time.Time `gorm:"not null"`
	IsFrozen     bool      `gorm:"not null;index"`
	FreezeReason string    `gorm:"type:text"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (UserRiskProfile) TableName() string {
	return "user_risk_profiles"
}
