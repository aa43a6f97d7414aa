package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/pkg/errors"
	"gorm.io/gorm"
)

type CashoutRepository struct {
	db *gorm.DB
}

func NewCashoutRepository(db *gorm.DB) *CashoutRepository {
	return &CashoutRepository{db: db}
}

// CreateRequest inserts a cash-out request row
func (r *CashoutRepository) CreateRequest(ctx context.Context, request *models.CashoutRequest) error {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create cashout request")
	}
	return nil
}

// GetByReference looks a request up by its public reference
func (r *CashoutRepository) GetByReference(ctx context.Context, reference string) (*models.CashoutRequest, error) {
	var request models.CashoutRequest
	result := r.db.WithContext(ctx).Where("reference = ?", reference).First(&request)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "cashout request not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get cashout request")
	}
	return &request, nil
}

// GetUserRequests lists a user's cash-out requests, newest first
func (r *CashoutRepository) GetUserRequests(ctx context.Context, userID uint) ([]models.CashoutRequest, error) {
	var requests []models.CashoutRequest
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&requests)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get cashout requests")
	}
	return requests, nil
}
