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
	"github.com/shopspring/decimal"
)

// OfficerActionRequest describes one kick or ban. A nil CommissionRate uses
// the configured officer cut.
type OfficerActionRequest struct {
	OfficerID       uint
	TargetUserID    uint
	ActionType      string
	Reason          string
	RelatedStreamID string
	FeeCoins        int64
	CommissionRate  *decimal.Decimal
}

type OfficerActionResult struct {
	FeeTransactions       []models.CoinTransaction
	Action                *models.OfficerAction
	OfficerEarning        *models.OfficerEarning
	CommissionTransaction *models.CoinTransaction
}

// OfficerEarningsSummary totals an officer's commissions.
type OfficerEarningsSummary struct {
	OfficerID  uint
	TotalCoins int64
	TotalUSD   decimal.Decimal
	Earnings   []models.OfficerEarning
}

type ModerationService struct {
	coinRepo    *repositories.CoinRepository
	officerRepo *repositories.OfficerRepository
	earningRepo *repositories.EarningRepository
	userRepo    *repositories.UserRepository
	settings    *SettingsService
	alerter     Alerter
	metrics     *metrics.EconomyMetrics
}

func NewModerationService(
	coinRepo *repositories.CoinRepository,
	officerRepo *repositories.OfficerRepository,
	earningRepo *repositories.EarningRepository,
	userRepo *repositories.UserRepository,
	settings *SettingsService,
	alerter Alerter,
	m *metrics.EconomyMetrics,
) *ModerationService {
	if alerter == nil {
		alerter = NopAlerter{}
	}
	return &ModerationService{
		coinRepo:    coinRepo,
		officerRepo: officerRepo,
		earningRepo: earningRepo,
		userRepo:    userRepo,
		settings:    settings,
		alerter:     alerter,
		metrics:     m,
	}
}

// CommissionCoins returns round(fee * rate), half up.
func CommissionCoins(feeCoins int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(feeCoins).Mul(rate).Round(0).IntPart()
}

// ApplyOfficerActionFee charges the target, logs the action and pays the
// officer, in that order. A target who cannot pay blocks the action and
// nothing is written. A failure after the fee moved is logged and alerted
// for reconciliation and the remaining steps are skipped.
func (s *ModerationService) ApplyOfficerActionFee(ctx context.Context, req OfficerActionRequest) (result *OfficerActionResult, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "apply_officer_action_fee", start, err) }()

	if err := validateOfficerAction(req); err != nil {
		return nil, err
	}

	settings := s.settings.Current(ctx)
	rate := settings.OfficerCommissionRate()
	if req.CommissionRate != nil {
		rate = *req.CommissionRate
	}

	reason := security.SanitizeText(req.Reason)
	result = &OfficerActionResult{}
	action := &models.OfficerAction{
		OfficerID:       req.OfficerID,
		TargetUserID:    req.TargetUserID,
		ActionType:      req.ActionType,
		Reason:          reason,
		RelatedStreamID: security.SanitizeString(req.RelatedStreamID),
		FeeCoins:        req.FeeCoins,
	}

	// Step 1: fee, paid coins first
	if req.FeeCoins > 0 {
		description := fmt.Sprintf("%s fee", req.ActionType)
		if reason != "" {
			description = fmt.Sprintf("%s fee - %s", req.ActionType, reason)
		}
		txs, err := s.coinRepo.DebitPreferPaid(ctx, repositories.LedgerEntry{
			UserID:      req.TargetUserID,
			Amount:      req.FeeCoins,
			Kind:        models.FeeKind(req.ActionType),
			Source:      models.TxSourceModeration,
			Description: description,
			Metadata: models.JSONMap{
				"officer_id":  req.OfficerID,
				"action_type": req.ActionType,
				"stream_id":   action.RelatedStreamID,
			},
		})
		if err != nil {
			if errors.Is(err, errors.ErrCodeInsufficientFunds) {
				logger.Warn("Moderation fee not payable, action blocked",
					"officer_id", req.OfficerID,
					"target_user_id", req.TargetUserID,
					"fee_coins", req.FeeCoins,
				)
			}
			return nil, err
		}
		result.FeeTransactions = txs
		for _, tx := range txs {
			s.metrics.RecordCoins(tx.CoinType, tx.Kind, tx.Amount)
			if tx.CoinType == models.CoinTypePaid {
				action.FeePaidCoins = -tx.Amount
			} else {
				action.FeeFreeCoins = -tx.Amount
			}
		}
	}

	fields := map[string]interface{}{
		"officer_id":     req.OfficerID,
		"target_user_id": req.TargetUserID,
		"action_type":    req.ActionType,
		"fee_coins":      req.FeeCoins,
	}

	// Step 2: audit row
	if err := s.officerRepo.CreateAction(ctx, action); err != nil {
		if req.FeeCoins == 0 {
			return nil, err
		}
		reportPartialFailure(ctx, s.alerter, s.metrics, "apply_officer_action_fee", "officer_action", err, fields)
		return nil, err
	}
	result.Action = action
	fields["action_id"] = action.ID

	s.touchOfficer(ctx, req.OfficerID)

	if req.FeeCoins == 0 {
		logger.Info("Officer action logged without fee", "action_id", action.ID, "officer_id", req.OfficerID)
		return result, nil
	}

	// Steps 3 and 4: commission and its earning row
	commission := CommissionCoins(req.FeeCoins, rate)
	earning := &models.OfficerEarning{
		OfficerID:       req.OfficerID,
		ActionID:        action.ID,
		CommissionCoins: commission,
		USDValue:        CoinsToUSD(commission, settings.CoinUSDRate),
	}
	if err := s.earningRepo.CreateOfficerEarning(ctx, earning); err != nil {
		reportPartialFailure(ctx, s.alerter, s.metrics, "apply_officer_action_fee", "officer_earning", err, fields)
		return nil, err
	}
	result.OfficerEarning = earning

	// Step 5: pay the officer
	if commission > 0 {
		tx, err := s.coinRepo.Record(ctx, repositories.LedgerEntry{
			UserID:      req.OfficerID,
			Amount:      commission,
			CoinType:    models.CoinTypePaid,
			Kind:        models.TxKindOfficerPayment,
			Source:      models.TxSourceModerationCommission,
			Description: fmt.Sprintf("Officer commission - %s fee", req.ActionType),
			Metadata: models.JSONMap{
				"action_id":       action.ID,
				"earning_id":      earning.ID,
				"target_user_id":  req.TargetUserID,
				"original_fee":    req.FeeCoins,
				"commission_rate": rate.String(),
			},
		})
		if err != nil {
			reportPartialFailure(ctx, s.alerter, s.metrics, "apply_officer_action_fee", "officer_payment", err, fields)
			return nil, err
		}
		s.metrics.RecordCoins(tx.CoinType, tx.Kind, tx.Amount)
		result.CommissionTransaction = tx
	}

	logger.Info("Officer action fee applied",
		"action_id", action.ID,
		"officer_id", req.OfficerID,
		"target_user_id", req.TargetUserID,
		"fee_coins", req.FeeCoins,
		"commission_coins", commission,
	)
	return result, nil
}

func validateOfficerAction(req OfficerActionRequest) error {
	if req.OfficerID == 0 || req.TargetUserID == 0 {
		return errors.New(errors.ErrCodeValidation, "officer and target are required")
	}
	if req.OfficerID == req.TargetUserID {
		return errors.New(errors.ErrCodeValidation, "officers cannot moderate themselves")
	}
	if !models.IsValidActionType(req.ActionType) {
		return errors.New(errors.ErrCodeValidation, "action type must be kick or ban")
	}
	if req.FeeCoins < 0 {
		return errors.New(errors.ErrCodeValidation, "fee must not be negative")
	}
	if req.CommissionRate != nil && (req.CommissionRate.IsNegative() || req.CommissionRate.GreaterThan(decimal.NewFromInt(1))) {
		return errors.New(errors.ErrCodeValidation, "commission rate must be between 0 and 1")
	}
	return nil
}

// touchOfficer refreshes the officer's last activity. Failures are logged only.
func (s *ModerationService) touchOfficer(ctx context.Context, officerID uint) {
	if err := s.userRepo.TouchLastActive(ctx, officerID, time.Now().UTC()); err != nil {
		logger.Warn("Failed to refresh officer activity", "error", err, "officer_id", officerID)
	}
}

// ListOfficerActions lists an officer's actions, newest first. An empty
// actionType lists every type.
func (s *ModerationService) ListOfficerActions(ctx context.Context, officerID uint, actionType string, limit int) ([]models.OfficerAction, error) {
	if actionType != "" && !models.IsValidActionType(actionType) {
		return nil, errors.New(errors.ErrCodeValidation, "action type must be kick or ban")
	}
	return s.officerRepo.GetOfficerActions(ctx, officerID, actionType, limit)
}

// OfficerEarningsSummary totals an officer's commissions
func (s *ModerationService) OfficerEarningsSummary(ctx context.Context, officerID uint) (*OfficerEarningsSummary, error) {
	earnings, err := s.earningRepo.GetOfficerEarnings(ctx, officerID)
	if err != nil {
		return nil, err
	}

	summary := &OfficerEarningsSummary{
		OfficerID: officerID,
		TotalUSD:  decimal.Zero,
		Earnings:  earnings,
	}
	for _, e := range earnings {
		summary.TotalCoins += e.CommissionCoins
		summary.TotalUSD = summary.TotalUSD.Add(e.USDValue)
	}
	summary.TotalUSD = summary.TotalUSD.Round(2)
	return summary, nil
}

// UserModerationHistory lists actions taken against a user
func (s *ModerationService) UserModerationHistory(ctx context.Context, targetUserID uint) ([]models.OfficerAction, error) {
	return s.officerRepo.GetActionsAgainst(ctx, targetUserID)
}
