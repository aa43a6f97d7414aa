package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser creates a new user with empty balances
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	if user.PaidCoins != 0 || user.FreeCoins != 0 {
		return errors.New(errors.ErrCodeValidation, "balances start at zero and change through the ledger")
	}

	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to create user")
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, id)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "user not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get user")
	}

	return &user, nil
}

// AddStreamHours increments the user's lifetime streamed hours
func (r *UserRepository) AddStreamHours(ctx context.Context, userID uint, hours float64) error {
	if hours <= 0 {
		return errors.New(errors.ErrCodeValidation, "stream hours must be positive")
	}

	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("total_stream_hours", gorm.Expr("total_stream_hours + ?", hours))
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update stream hours")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "user not found")
	}
	return nil
}

// SetTaxFormStatus records the user's tax form state
func (r *UserRepository) SetTaxFormStatus(ctx context.Context, userID uint, status string) error {
	switch status {
	case models.TaxFormNone, models.TaxFormPending, models.TaxFormOnFile:
	default:
		return errors.New(errors.ErrCodeValidation, "unknown tax form status")
	}

	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("tax_form_status", status)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update tax form status")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "user not found")
	}
	return nil
}

// TouchLastActive updates the user's last activity timestamp
func (r *UserRepository) TouchLastActive(ctx context.Context, userID uint, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).UpdateColumn("last_active_at", at)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update last activity")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "user not found")
	}
	return nil
}
