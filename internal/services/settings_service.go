package services

import (
	"context"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/internal/repositories"
	"github.com/mroshb/coin_economy/pkg/logger"
)

// SettingsService hands every calculation a fresh copy of the revenue
// settings. It never fails: a missing, unreadable or invalid row yields the
// defaults.
type SettingsService struct {
	repo *repositories.SettingsRepository
}

func NewSettingsService(repo *repositories.SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Current returns the settings to use for one operation
func (s *SettingsService) Current(ctx context.Context) models.RevenueSettings {
	settings, err := s.repo.GetRevenueSettings(ctx)
	if err != nil {
		logger.Error("Failed to read revenue settings, using defaults", "error", err)
		return models.DefaultRevenueSettings()
	}
	if settings == nil {
		return models.DefaultRevenueSettings()
	}
	if err := settings.Validate(); err != nil {
		logger.Error("Stored revenue settings are invalid, using defaults", "error", err)
		return models.DefaultRevenueSettings()
	}
	return *settings
}
