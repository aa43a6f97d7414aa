package repositories

import (
	"context"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportRepository runs the read-only aggregations behind the economy
// dashboard. A table that does not exist aggregates to zero.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// PaidCoinFlows holds paid-coin totals across all users.
type PaidCoinFlows struct {
	Purchased    int64
	OtherCredits int64
	Spent        int64
}

// USDTotal is a coin and dollar pair.
type USDTotal struct {
	Coins int64
	USD   decimal.Decimal
}

// WheelActivity aggregates wheel spin transactions.
type WheelActivity struct {
	Spins        int64
	CoinsSpent   int64
	CoinsAwarded int64
	Jackpots     int64
}

func (r *ReportRepository) hasTable(ctx context.Context, model interface{}) bool {
	return r.db.WithContext(ctx).Migrator().HasTable(model)
}

// GetPaidCoinFlows sums paid transactions by direction
func (r *ReportRepository) GetPaidCoinFlows(ctx context.Context) (PaidCoinFlows, error) {
	var flows PaidCoinFlows
	if !r.hasTable(ctx, &models.CoinTransaction{}) {
		return flows, nil
	}

	row := r.db.WithContext(ctx).Model(&models.CoinTransaction{}).
		Select(
			"COALESCE(SUM(CASE WHEN amount > 0 AND kind = ? THEN amount ELSE 0 END), 0), "+
				"COALESCE(SUM(CASE WHEN amount > 0 AND kind <> ? THEN amount ELSE 0 END), 0), "+
				"COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0)",
			models.TxKindPurchase, models.TxKindPurchase,
		).
		Where("coin_type = ?", models.CoinTypePaid).
		Row()
	if err := row.Scan(&flows.Purchased, &flows.OtherCredits, &flows.Spent); err != nil {
		return PaidCoinFlows{}, errors.Wrap(err, errors.ErrCodeInternalError, "failed to aggregate paid coins")
	}
	return flows, nil
}

// GetBroadcasterTotals sums every broadcaster earning
func (r *ReportRepository) GetBroadcasterTotals(ctx context.Context) (USDTotal, error) {
	return r.sumEarnings(ctx, &models.BroadcasterEarning{}, "coins_earned")
}

// GetOfficerTotals sums every officer commission
func (r *ReportRepository) GetOfficerTotals(ctx context.Context) (USDTotal, error) {
	return r.sumEarnings(ctx, &models.OfficerEarning{}, "commission_coins")
}

func (r *ReportRepository) sumEarnings(ctx context.Context, model interface{}, coinColumn string) (USDTotal, error) {
	total := USDTotal{USD: decimal.Zero}
	if !r.hasTable(ctx, model) {
		return total, nil
	}

	row := r.db.WithContext(ctx).Model(model).
		Select("COALESCE(SUM(" + coinColumn + "), 0), COALESCE(SUM(usd_value), 0)").
		Row()
	if err := row.Scan(&total.Coins, &total.USD); err != nil {
		return USDTotal{USD: decimal.Zero}, errors.Wrap(err, errors.ErrCodeInternalError, "failed to aggregate earnings")
	}
	total.USD = total.USD.Round(2)
	return total, nil
}

// GetCashoutUSDByStatus sums requested dollars per request status
func (r *ReportRepository) GetCashoutUSDByStatus(ctx context.Context) (map[string]decimal.Decimal, error) {
	totals := map[string]decimal.Decimal{}
	if !r.hasTable(ctx, &models.CashoutRequest{}) {
		return totals, nil
	}

	var rows []struct {
		Status string
		Total  decimal.Decimal
	}
	result := r.db.WithContext(ctx).Model(&models.CashoutRequest{}).
		Select("status, COALESCE(SUM(usd_value), 0) AS total").
		Group("status").
		Scan(&rows)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to aggregate cashouts")
	}

	for _, row := range rows {
		totals[row.Status] = row.Total.Round(2)
	}
	return totals, nil
}

// GetWheelActivity aggregates wheel spins. Prize and jackpot details live
// in the spin transaction metadata.
func (r *ReportRepository) GetWheelActivity(ctx context.Context) (WheelActivity, error) {
	var activity WheelActivity
	if !r.hasTable(ctx, &models.CoinTransaction{}) {
		return activity, nil
	}

	var spins []models.CoinTransaction
	result := r.db.WithContext(ctx).
		Select("id", "amount", "metadata").
		Where("kind = ?", models.TxKindWheelSpin).
		FindInBatches(&spins, 500, func(tx *gorm.DB, batch int) error {
			for _, spin := range spins {
				activity.Spins++
				if spin.Amount < 0 {
					activity.CoinsSpent += -spin.Amount
				}
				activity.CoinsAwarded += spin.Metadata.Int64("coins_awarded")
				if spin.Metadata.Bool("is_jackpot") {
					activity.Jackpots++
				}
			}
			return nil
		})
	if result.Error != nil {
		return WheelActivity{}, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to aggregate wheel activity")
	}
	return activity, nil
}
