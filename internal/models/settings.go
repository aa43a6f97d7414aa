package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RevenueSettingsID is the fixed primary key of the settings singleton.
const RevenueSettingsID uint = 1

// RevenueSettings holds the tunable economic parameters. Callers read it at
// the start of each calculation; an absent row means DefaultRevenueSettings.
type RevenueSettings struct {
	ID                       uint            `gorm:"primaryKey;autoIncrement:false"`
	PlatformCutPct           int             `gorm:"not null"`
	BroadcasterCutPct        int             `gorm:"not null"`
	OfficerCutPct            int             `gorm:"not null"`
	MinCashoutUSD            decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	MinStreamHoursForCashout float64         `gorm:"not null"`
	CashoutHoldDays          int             `gorm:"not null"`
	TaxFormRequired          bool            `gorm:"not null"`
	CoinUSDRate              decimal.Decimal `gorm:"type:numeric(18,8);not null"`
	UpdatedAt                time.Time       `gorm:"autoUpdateTime"`
}

// DefaultCoinUSDRate is 10,000 coins per dollar.
var DefaultCoinUSDRate = decimal.New(1, -4)

// DefaultRevenueSettings returns the values used when no settings row exists.
func DefaultRevenueSettings() RevenueSettings {
	return RevenueSettings{
		ID:                       RevenueSettingsID,
		PlatformCutPct:           40,
		BroadcasterCutPct:        60,
		OfficerCutPct:            30,
		MinCashoutUSD:            decimal.NewFromInt(21),
		MinStreamHoursForCashout: 5,
		CashoutHoldDays:          0,
		TaxFormRequired:          true,
		CoinUSDRate:              DefaultCoinUSDRate,
	}
}

// Validate checks the invariants an operator-supplied settings row must hold.
func (s RevenueSettings) Validate() error {
	for name, pct := range map[string]int{
		"platform_cut_pct":    s.PlatformCutPct,
		"broadcaster_cut_pct": s.BroadcasterCutPct,
		"officer_cut_pct":     s.OfficerCutPct,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %d", name, pct)
		}
	}
	if s.PlatformCutPct+s.BroadcasterCutPct != 100 {
		return fmt.Errorf("platform_cut_pct and broadcaster_cut_pct must sum to 100, got %d",
			s.PlatformCutPct+s.BroadcasterCutPct)
	}
	if s.MinCashoutUSD.IsNegative() {
		return fmt.Errorf("min_cashout_usd must not be negative")
	}
	if s.MinStreamHoursForCashout < 0 {
		return fmt.Errorf("min_stream_hours_for_cashout must not be negative")
	}
	if s.CashoutHoldDays < 0 {
		return fmt.Errorf("cashout_hold_days must not be negative")
	}
	if !s.CoinUSDRate.IsPositive() {
		return fmt.Errorf("coin_usd_rate must be positive")
	}
	return nil
}

// OfficerCommissionRate returns OfficerCutPct as a fraction (30 -> 0.3).
func (s RevenueSettings) OfficerCommissionRate() decimal.Decimal {
	return decimal.NewFromInt(int64(s.OfficerCutPct)).Div(decimal.NewFromInt(100))
}

func (RevenueSettings) TableName() string {
	return "revenue_settings"
}
