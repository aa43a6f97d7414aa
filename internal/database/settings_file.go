package database

import (
	"fmt"
	"io"
	"os"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// settingsFile mirrors the YAML representation of the revenue settings.
// Omitted keys keep their default value.
type settingsFile struct {
	PlatformCutPct           *int     `yaml:"platform_cut_pct"`
	BroadcasterCutPct        *int     `yaml:"broadcaster_cut_pct"`
	OfficerCutPct            *int     `yaml:"officer_cut_pct"`
	MinCashoutUSD            *string  `yaml:"min_cashout_usd"`
	MinStreamHoursForCashout *float64 `yaml:"min_stream_hours_for_cashout"`
	CashoutHoldDays          *int     `yaml:"cashout_hold_days"`
	TaxFormRequired          *bool    `yaml:"tax_form_required"`
	CoinUSDRate              *string  `yaml:"coin_usd_rate"`
}

// LoadRevenueSettingsFile reads revenue settings from a YAML file on disk.
func LoadRevenueSettingsFile(path string) (models.RevenueSettings, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.RevenueSettings{}, fmt.Errorf("open settings: %w", err)
	}
	defer file.Close()
	return DecodeRevenueSettings(file)
}

// DecodeRevenueSettings decodes and validates a YAML settings document.
func DecodeRevenueSettings(r io.Reader) (models.RevenueSettings, error) {
	var entry settingsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&entry); err != nil {
		return models.RevenueSettings{}, fmt.Errorf("decode settings: %w", err)
	}

	s := models.DefaultRevenueSettings()
	if entry.PlatformCutPct != nil {
		s.PlatformCutPct = *entry.PlatformCutPct
	}
	if entry.BroadcasterCutPct != nil {
		s.BroadcasterCutPct = *entry.BroadcasterCutPct
	}
	if entry.OfficerCutPct != nil {
		s.OfficerCutPct = *entry.OfficerCutPct
	}
	if entry.MinCashoutUSD != nil {
		v, err := decimal.NewFromString(*entry.MinCashoutUSD)
		if err != nil {
			return models.RevenueSettings{}, fmt.Errorf("min_cashout_usd: %w", err)
		}
		s.MinCashoutUSD = v
	}
	if entry.MinStreamHoursForCashout != nil {
		s.MinStreamHoursForCashout = *entry.MinStreamHoursForCashout
	}
	if entry.CashoutHoldDays != nil {
		s.CashoutHoldDays = *entry.CashoutHoldDays
	}
	if entry.TaxFormRequired != nil {
		s.TaxFormRequired = *entry.TaxFormRequired
	}
	if entry.CoinUSDRate != nil {
		v, err := decimal.NewFromString(*entry.CoinUSDRate)
		if err != nil {
			return models.RevenueSettings{}, fmt.Errorf("coin_usd_rate: %w", err)
		}
		s.CoinUSDRate = v
	}

	if err := s.Validate(); err != nil {
		return models.RevenueSettings{}, err
	}
	return s, nil
}
