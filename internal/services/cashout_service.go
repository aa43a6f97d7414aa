package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mroshb/coin_economy/internal/metrics"
	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/internal/repositories"
	"github.com/mroshb/coin_economy/internal/security"
	"github.com/mroshb/coin_economy/pkg/errors"
	"github.com/mroshb/coin_economy/pkg/logger"
	"github.com/mroshb/coin_economy/pkg/utils"
	"github.com/shopspring/decimal"
)

// CashoutEligibility carries a reason whenever Eligible is false.
type CashoutEligibility struct {
	Eligible bool
	Reason   string
}

// CashoutInput is a creator's request to be paid out. RequestedCoins of zero
// is derived from USDValue at the configured rate.
type CashoutInput struct {
	UserID         uint
	USDValue       decimal.Decimal
	RequestedCoins int64
	PayoutMethod   string
	PayoutDetails  string
}

type CashoutService struct {
	cashoutRepo *repositories.CashoutRepository
	userRepo    *repositories.UserRepository
	settings    *SettingsService
	risk        *RiskService
	metrics     *metrics.EconomyMetrics
	now         func() time.Time
}

func NewCashoutService(
	cashoutRepo *repositories.CashoutRepository,
	userRepo *repositories.UserRepository,
	settings *SettingsService,
	risk *RiskService,
	m *metrics.EconomyMetrics,
) *CashoutService {
	return &CashoutService{
		cashoutRepo: cashoutRepo,
		userRepo:    userRepo,
		settings:    settings,
		risk:        risk,
		metrics:     m,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// EvaluateCashoutEligibility applies the cash-out rules in order and stops at
// the first failure. It never returns an error.
func (s *CashoutService) EvaluateCashoutEligibility(ctx context.Context, userID uint, usdValue decimal.Decimal) CashoutEligibility {
	return s.evaluate(ctx, s.settings.Current(ctx), userID, usdValue)
}

func (s *CashoutService) evaluate(ctx context.Context, settings models.RevenueSettings, userID uint, usdValue decimal.Decimal) CashoutEligibility {
	if usdValue.LessThan(settings.MinCashoutUSD) {
		return CashoutEligibility{Reason: fmt.Sprintf("minimum cashout is $%s", settings.MinCashoutUSD.StringFixed(2))}
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, errors.ErrCodeNotFound) {
			logger.Error("Failed to load creator profile for cashout", "error", err, "user_id", userID)
		}
		return CashoutEligibility{Reason: "creator profile not found"}
	}

	if user.TotalStreamHours < settings.MinStreamHoursForCashout {
		return CashoutEligibility{Reason: fmt.Sprintf(
			"at least %s streamed hours required to cash out, %s more needed",
			formatHours(settings.MinStreamHoursForCashout),
			hoursShortfall(settings.MinStreamHoursForCashout, user.TotalStreamHours),
		)}
	}

	if settings.TaxFormRequired && user.TaxFormStatus != models.TaxFormOnFile {
		return CashoutEligibility{Reason: "a tax form on file is required to cash out"}
	}

	return CashoutEligibility{Eligible: true}
}

func formatHours(hours float64) string {
	return decimal.NewFromFloat(hours).Round(1).String()
}

// hoursShortfall rounds up to a tenth of an hour so a rejected creator is
// never told that nothing more is needed.
func hoursShortfall(required, streamed float64) string {
	return decimal.NewFromFloat(required).Sub(decimal.NewFromFloat(streamed)).RoundCeil(1).String()
}

// CreateCashoutRequest re-checks eligibility and stores a pending request
// held for the configured number of days. Balances are not touched here;
// settlement debits them through the ledger later.
func (s *CashoutService) CreateCashoutRequest(ctx context.Context, input CashoutInput) (request *models.CashoutRequest, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "create_cashout_request", start, err) }()

	if input.UserID == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "user is required")
	}
	if !input.USDValue.IsPositive() {
		return nil, errors.New(errors.ErrCodeValidation, "cashout amount must be positive")
	}
	if !input.USDValue.Equal(input.USDValue.Truncate(2)) {
		return nil, errors.New(errors.ErrCodeValidation, "cashout amount must be in whole cents")
	}
	if input.RequestedCoins < 0 {
		return nil, errors.New(errors.ErrCodeValidation, "requested coins must not be negative")
	}
	method := security.SanitizeString(input.PayoutMethod)
	if method == "" {
		return nil, errors.New(errors.ErrCodeValidation, "payout method is required")
	}

	if err := s.risk.RequireNotFrozen(ctx, input.UserID); err != nil {
		return nil, err
	}

	settings := s.settings.Current(ctx)
	usd := input.USDValue

	eligibility := s.evaluate(ctx, settings, input.UserID, usd)
	if !eligibility.Eligible {
		logger.Info("Cashout request rejected", "user_id", input.UserID, "usd_value", usd.StringFixed(2), "reason", eligibility.Reason)
		return nil, errors.New(errors.ErrCodeNotEligible, eligibility.Reason)
	}

	coins := input.RequestedCoins
	if coins == 0 {
		coins = usd.Div(settings.CoinUSDRate).Ceil().IntPart()
	}

	now := s.now()
	request = &models.CashoutRequest{
		Reference:      utils.NewReference("co"),
		UserID:         input.UserID,
		USDValue:       usd,
		RequestedCoins: coins,
		PayoutMethod:   method,
		PayoutDetails:  security.SanitizeText(input.PayoutDetails),
		Status:         models.CashoutStatusPending,
		Eligible:       true,
		HoldUntil:      now.AddDate(0, 0, settings.CashoutHoldDays),
	}
	if err := s.cashoutRepo.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	logger.Info("Cashout request created",
		"reference", request.Reference,
		"user_id", input.UserID,
		"usd_value", usd.StringFixed(2),
		"hold_until", request.HoldUntil,
	)
	return request, nil
}

// RecordStreamHours adds finished stream time to a creator's total
func (s *CashoutService) RecordStreamHours(ctx context.Context, userID uint, hours float64) error {
	if err := s.userRepo.AddStreamHours(ctx, userID, hours); err != nil {
		return err
	}
	logger.Debug("Stream hours recorded", "user_id", userID, "hours", hours)
	return nil
}

// SetTaxFormStatus records where a creator's tax form stands
func (s *CashoutService) SetTaxFormStatus(ctx context.Context, userID uint, status string) error {
	if err := s.userRepo.SetTaxFormStatus(ctx, userID, status); err != nil {
		return err
	}
	logger.Info("Tax form status updated", "user_id", userID, "status", status)
	return nil
}

// UserCashouts lists a user's cash-out requests, newest first
func (s *CashoutService) UserCashouts(ctx context.Context, userID uint) ([]models.CashoutRequest, error) {
	return s.cashoutRepo.GetUserRequests(ctx, userID)
}
