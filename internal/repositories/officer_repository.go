package repositories

import (
	"context"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/pkg/errors"
	"gorm.io/gorm"
)

type OfficerRepository struct {
	db *gorm.DB
}

func NewOfficerRepository(db *gorm.DB) *OfficerRepository {
	return &OfficerRepository{db: db}
}

// CreateAction inserts the audit row for a moderation action
func (r *OfficerRepository) CreateAction(ctx context.Context, action *models.OfficerAction) error {
	if err := r.db.WithContext(ctx).Create(action).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to log officer action")
	}
	return nil
}

// GetOfficerActions lists actions taken by an officer. An empty actionType
// matches every type; limit <= 0 means no limit.
func (r *OfficerRepository) GetOfficerActions(ctx context.Context, officerID uint, actionType string, limit int) ([]models.OfficerAction, error) {
	query := r.db.WithContext(ctx).Where("officer_id = ?", officerID)
	if actionType != "" {
		query = query.Where("action_type = ?", actionType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var actions []models.OfficerAction
	if err := query.Order("created_at DESC").Order("id DESC").Find(&actions).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get officer actions")
	}
	return actions, nil
}

// GetActionsAgainst lists moderation actions taken against a user
func (r *OfficerRepository) GetActionsAgainst(ctx context.Context, targetUserID uint) ([]models.OfficerAction, error) {
	var actions []models.OfficerAction
	result := r.db.WithContext(ctx).Where("target_user_id = ?", targetUserID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&actions)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get moderation history")
	}
	return actions, nil
}
