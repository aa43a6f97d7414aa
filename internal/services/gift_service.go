package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mroshb/coin_economy/internal/metrics"
	"github.com/mroshb/coin_economy/internal/middleware"
	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/internal/repositories"
	"github.com/mroshb/coin_economy/pkg/errors"
	"github.com/mroshb/coin_economy/pkg/logger"
	"github.com/mroshb/coin_economy/pkg/utils"
	"github.com/shopspring/decimal"
)

// PaidGift is a gift whose coins already moved from sender to broadcaster.
type PaidGift struct {
	SenderID      uint
	BroadcasterID uint
	Coins         int64
	GiftID        string
}

// GiftSplit is how one gift divides between broadcaster and platform.
// BroadcasterCoins + PlatformCoins always equals the gift's coins.
type GiftSplit struct {
	BroadcasterCoins int64
	PlatformCoins    int64
	USDValue         decimal.Decimal
	PlatformUSD      decimal.Decimal
}

// GiftResult is the outcome of SendGift.
type GiftResult struct {
	GiftID       string
	Split        GiftSplit
	Transactions []models.CoinTransaction
}

type GiftService struct {
	coinRepo    *repositories.CoinRepository
	earningRepo *repositories.EarningRepository
	settings    *SettingsService
	risk        *RiskService
	limiter     *middleware.RateLimiter
	alerter     Alerter
	metrics     *metrics.EconomyMetrics
}

func NewGiftService(
	coinRepo *repositories.CoinRepository,
	earningRepo *repositories.EarningRepository,
	settings *SettingsService,
	risk *RiskService,
	limiter *middleware.RateLimiter,
	alerter Alerter,
	m *metrics.EconomyMetrics,
) *GiftService {
	if alerter == nil {
		alerter = NopAlerter{}
	}
	return &GiftService{
		coinRepo:    coinRepo,
		earningRepo: earningRepo,
		settings:    settings,
		risk:        risk,
		limiter:     limiter,
		alerter:     alerter,
		metrics:     m,
	}
}

// SplitGift divides coins by the broadcaster cut. The broadcaster share is
// rounded half up and the platform takes the remainder.
func SplitGift(coins int64, broadcasterCutPct int) (broadcasterCoins, platformCoins int64) {
	broadcasterCoins = decimal.NewFromInt(coins).
		Mul(decimal.NewFromInt(int64(broadcasterCutPct))).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
	return broadcasterCoins, coins - broadcasterCoins
}

// HandlePaidGift records the split of a gift whose coins the caller already
// moved through the ledger. The self-gift check must have passed.
func (s *GiftService) HandlePaidGift(ctx context.Context, gift PaidGift) (split *GiftSplit, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "handle_paid_gift", start, err) }()

	if err := validatePaidGift(gift); err != nil {
		return nil, err
	}
	return s.recordSplit(ctx, gift, s.settings.Current(ctx))
}

func validatePaidGift(gift PaidGift) error {
	if gift.SenderID == 0 || gift.BroadcasterID == 0 {
		return errors.New(errors.ErrCodeValidation, "sender and broadcaster are required")
	}
	if gift.Coins <= 0 {
		return errors.New(errors.ErrCodeValidation, "gift amount must be positive")
	}
	if gift.GiftID == "" {
		return errors.New(errors.ErrCodeValidation, "gift id is required")
	}
	return nil
}

func computeSplit(coins int64, settings models.RevenueSettings) GiftSplit {
	broadcasterCoins, platformCoins := SplitGift(coins, settings.BroadcasterCutPct)
	return GiftSplit{
		BroadcasterCoins: broadcasterCoins,
		PlatformCoins:    platformCoins,
		USDValue:         CoinsToUSD(broadcasterCoins, settings.CoinUSDRate),
		PlatformUSD:      CoinsToUSD(platformCoins, settings.CoinUSDRate),
	}
}

func (s *GiftService) recordSplit(ctx context.Context, gift PaidGift, settings models.RevenueSettings) (*GiftSplit, error) {
	split := computeSplit(gift.Coins, settings)
	broadcasterCoins, platformCoins := split.BroadcasterCoins, split.PlatformCoins

	earning := &models.BroadcasterEarning{
		BroadcasterID: gift.BroadcasterID,
		CoinsEarned:   broadcasterCoins,
		USDValue:      split.USDValue,
		SourceType:    models.EarningSourceGift,
		SourceID:      gift.GiftID,
	}
	if err := s.earningRepo.CreateBroadcasterEarning(ctx, earning); err != nil {
		return nil, err
	}

	// The platform holds no balance; its share rides on a zero-amount memo
	_, err := s.coinRepo.AppendMemo(ctx, repositories.LedgerEntry{
		UserID:      gift.BroadcasterID,
		CoinType:    models.CoinTypePaid,
		Kind:        models.TxKindPlatformRevenue,
		Source:      models.TxSourceGift,
		Description: fmt.Sprintf("Platform share of gift %s", gift.GiftID),
		Metadata: models.JSONMap{
			"gift_id":        gift.GiftID,
			"sender_id":      gift.SenderID,
			"gift_coins":     gift.Coins,
			"platform_coins": platformCoins,
			"platform_usd":   split.PlatformUSD.StringFixed(2),
			"platform_cut":   settings.PlatformCutPct,
		},
	})
	if err != nil {
		logger.Error("Failed to record platform revenue",
			"error", err,
			"gift_id", gift.GiftID,
			"broadcaster_earning_id", earning.ID,
		)
		return nil, err
	}

	logger.Info("Gift split recorded",
		"gift_id", gift.GiftID,
		"broadcaster_id", gift.BroadcasterID,
		"broadcaster_coins", broadcasterCoins,
		"platform_coins", platformCoins,
		"usd_value", split.USDValue.StringFixed(2),
	)
	return &split, nil
}

// SendGift runs the whole gift flow: sender guards, the coin movement and
// the revenue split. Coins move atomically; a split failure afterwards is
// reported for reconciliation and does not fail the gift.
func (s *GiftService) SendGift(ctx context.Context, gift PaidGift) (result *GiftResult, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "send_gift", start, err) }()

	if gift.GiftID == "" {
		gift.GiftID = utils.NewReference("gift")
	}
	if gift.SenderID == 0 || gift.BroadcasterID == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "sender and broadcaster are required")
	}

	if err := s.risk.RequireNotFrozen(ctx, gift.SenderID); err != nil {
		return nil, err
	}
	if err := s.risk.ValidateGiftNotAbusive(ctx, gift.SenderID, gift.BroadcasterID, gift.Coins); err != nil {
		return nil, err
	}
	if s.limiter != nil && !s.limiter.Allow(gift.SenderID) {
		if _, riskErr := s.risk.AddRiskEvent(ctx, RiskEventRequest{
			UserID:    gift.SenderID,
			EventType: models.RiskEventGiftVelocity,
			Severity:  GiftVelocitySeverity,
			Details:   models.JSONMap{"broadcaster_id": gift.BroadcasterID, "coins": gift.Coins},
		}); riskErr != nil {
			logger.Error("Failed to record gift velocity event", "error", riskErr, "user_id", gift.SenderID)
		}
		return nil, errors.New(errors.ErrCodeRateLimitExceeded, "too many gifts, please slow down")
	}

	settings := s.settings.Current(ctx)
	broadcasterCoins := computeSplit(gift.Coins, settings).BroadcasterCoins

	entries := []repositories.LedgerEntry{{
		UserID:      gift.SenderID,
		Amount:      -gift.Coins,
		CoinType:    models.CoinTypePaid,
		Kind:        models.TxKindGiftSent,
		Source:      models.TxSourceGift,
		Description: fmt.Sprintf("Gift %s sent", gift.GiftID),
		Metadata:    models.JSONMap{"gift_id": gift.GiftID, "broadcaster_id": gift.BroadcasterID},
	}}
	if broadcasterCoins > 0 {
		entries = append(entries, repositories.LedgerEntry{
			UserID:      gift.BroadcasterID,
			Amount:      broadcasterCoins,
			CoinType:    models.CoinTypePaid,
			Kind:        models.TxKindGiftReceived,
			Source:      models.TxSourceGift,
			Description: fmt.Sprintf("Gift %s received", gift.GiftID),
			Metadata:    models.JSONMap{"gift_id": gift.GiftID, "sender_id": gift.SenderID, "gift_coins": gift.Coins},
		})
	}

	txs, err := s.coinRepo.RecordBatch(ctx, entries)
	if err != nil {
		// Only gifts that moved coins count toward the velocity limit
		if s.limiter != nil {
			s.limiter.Release(gift.SenderID)
		}
		return nil, err
	}
	for _, tx := range txs {
		s.metrics.RecordCoins(tx.CoinType, tx.Kind, tx.Amount)
	}

	result = &GiftResult{GiftID: gift.GiftID, Transactions: txs}

	split, splitErr := s.recordSplit(ctx, gift, settings)
	if splitErr != nil {
		reportPartialFailure(ctx, s.alerter, s.metrics, "send_gift", "revenue_split", splitErr, map[string]interface{}{
			"gift_id":        gift.GiftID,
			"sender_id":      gift.SenderID,
			"broadcaster_id": gift.BroadcasterID,
			"coins":          gift.Coins,
		})
		result.Split = computeSplit(gift.Coins, settings)
		return result, nil
	}

	result.Split = *split
	return result, nil
}

// BroadcasterEarnings lists a broadcaster's gift earnings, newest first
func (s *GiftService) BroadcasterEarnings(ctx context.Context, broadcasterID uint, limit int) ([]models.BroadcasterEarning, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.earningRepo.GetBroadcasterEarnings(ctx, broadcasterID, limit)
}
