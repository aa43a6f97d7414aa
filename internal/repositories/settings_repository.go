package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/pkg/errors"
	"gorm.io/gorm"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetRevenueSettings returns the settings singleton, or nil when no row exists.
func (r *SettingsRepository) GetRevenueSettings(ctx context.Context) (*models.RevenueSettings, error) {
	var settings models.RevenueSettings
	result := r.db.WithContext(ctx).First(&settings, models.RevenueSettingsID)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get revenue settings")
	}

	return &settings, nil
}
