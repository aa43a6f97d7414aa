package repositories

import (
	"context"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/pkg/errors"
	"gorm.io/gorm"
)

type EarningRepository struct {
	db *gorm.DB
}

func NewEarningRepository(db *gorm.DB) *EarningRepository {
	return &EarningRepository{db: db}
}

// CreateBroadcasterEarning inserts the broadcaster share of a gift
func (r *EarningRepository) CreateBroadcasterEarning(ctx context.Context, earning *models.BroadcasterEarning) error {
	if err := r.db.WithContext(ctx).Create(earning).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create broadcaster earning")
	}
	return nil
}

// CreateOfficerEarning inserts the commission row for an officer action
func (r *EarningRepository) CreateOfficerEarning(ctx context.Context, earning *models.OfficerEarning) error {
	if err := r.db.WithContext(ctx).Create(earning).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create officer earning")
	}
	return nil
}

// GetBroadcasterEarnings lists a broadcaster's earnings, newest first
func (r *EarningRepository) GetBroadcasterEarnings(ctx context.Context, broadcasterID uint, limit int) ([]models.BroadcasterEarning, error) {
	var earnings []models.BroadcasterEarning
	result := r.db.WithContext(ctx).Where("broadcaster_id = ?", broadcasterID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&earnings)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get broadcaster earnings")
	}
	return earnings, nil
}

// GetOfficerEarnings lists an officer's commissions, newest first
func (r *EarningRepository) GetOfficerEarnings(ctx context.Context, officerID uint) ([]models.OfficerEarning, error) {
	var earnings []models.OfficerEarning
	result := r.db.WithContext(ctx).Where("officer_id = ?", officerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&earnings)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get officer earnings")
	}
	return earnings, nil
}
