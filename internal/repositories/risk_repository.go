package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RiskRepository struct {
	db *gorm.DB
}

func NewRiskRepository(db *gorm.DB) *RiskRepository {
	return &RiskRepository{db: db}
}

// RecordEvent appends the event and adds its severity to the user's profile
// in one store transaction. The score increment is a single upsert, so
// concurrent events for the same user never lose an update. Crossing
// threshold sets IsFrozen; newlyFrozen reports whether this call did it.
func (r *RiskRepository) RecordEvent(ctx context.Context, event *models.RiskEvent, threshold int64, freezeReason string) (profile *models.UserRiskProfile, newlyFrozen bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}

		now := event.CreatedAt
		if now.IsZero() {
			now = time.Now().UTC()
		}

		initial := &models.UserRiskProfile{
			UserID:      event.UserID,
			RiskScore:   event.Severity,
			LastEventAt: now,
		}
		upsert := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"risk_score":    gorm.Expr("user_risk_profiles.risk_score + ?", event.Severity),
				"last_event_at": now,
				"updated_at":    now,
			}),
		}).Create(initial)
		if upsert.Error != nil {
			return upsert.Error
		}

		freeze := tx.Model(&models.UserRiskProfile{}).
			Where("user_id = ? AND risk_score >= ? AND is_frozen = ?", event.UserID, threshold, false).
			Updates(map[string]interface{}{
				"is_frozen":     true,
				"freeze_reason": freezeReason,
			})
		if freeze.Error != nil {
			return freeze.Error
		}
		newlyFrozen = freeze.RowsAffected > 0

		var current models.UserRiskProfile
		if err := tx.First(&current, "user_id = ?", event.UserID).Error; err != nil {
			return err
		}
		profile = &current
		return nil
	})
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeInternalError, "failed to record risk event")
	}
	return profile, newlyFrozen, nil
}

// GetProfile returns the user's risk profile, or nil when none exists.
func (r *RiskRepository) GetProfile(ctx context.Context, userID uint) (*models.UserRiskProfile, error) {
	var profile models.UserRiskProfile
	result := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get risk profile")
	}
	return &profile, nil
}

// GetEvents lists a user's risk events, newest first
func (r *RiskRepository) GetEvents(ctx context.Context, userID uint) ([]models.RiskEvent, error) {
	var events []models.RiskEvent
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get risk events")
	}
	return events, nil
}

// CountFrozen returns how many accounts are frozen
func (r *RiskRepository) CountFrozen(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.UserRiskProfile{}).Where("is_frozen = ?", true).Count(&count)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to count frozen users")
	}
	return count, nil
}

// GetTopByScore lists the highest risk profiles
func (r *RiskRepository) GetTopByScore(ctx context.Context, limit int) ([]models.UserRiskProfile, error) {
	var profiles []models.UserRiskProfile
	result := r.db.WithContext(ctx).
		Where("risk_score > ?", 0).
		Order("risk_score DESC").
		Order("user_id ASC").
		Limit(limit).
		Find(&profiles)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get top risk profiles")
	}
	return profiles, nil
}
