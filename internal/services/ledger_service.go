package services

import (
	"context"
	"time"

	"github.com/mroshb/coin_economy/internal/metrics"
	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/internal/repositories"
	"github.com/mroshb/coin_economy/internal/security"
	"github.com/mroshb/coin_economy/pkg/errors"
	"github.com/mroshb/coin_economy/pkg/logger"
	"github.com/shopspring/decimal"
)

// TransactionRequest describes a balance change. Negative amounts are debits.
type TransactionRequest struct {
	UserID      uint
	Amount      int64
	CoinType    string
	Kind        string
	Source      string
	Description string
	Metadata    models.JSONMap
	ExternalRef string
}

// Reconciliation compares a user's counters with their transaction sums.
type Reconciliation struct {
	UserID      uint
	PaidBalance int64
	PaidLedger  int64
	FreeBalance int64
	FreeLedger  int64
	Consistent  bool
}

type LedgerService struct {
	coinRepo *repositories.CoinRepository
	settings *SettingsService
	metrics  *metrics.EconomyMetrics
}

func NewLedgerService(coinRepo *repositories.CoinRepository, settings *SettingsService, m *metrics.EconomyMetrics) *LedgerService {
	return &LedgerService{
		coinRepo: coinRepo,
		settings: settings,
		metrics:  m,
	}
}

// RecordTransaction applies one balance change and its transaction row
// atomically. A debit larger than the balance fails with INSUFFICIENT_FUNDS
// and writes nothing.
func (s *LedgerService) RecordTransaction(ctx context.Context, req TransactionRequest) (tx *models.CoinTransaction, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "record_transaction", start, err) }()

	if err := validateTransaction(req); err != nil {
		return nil, err
	}

	tx, err = s.coinRepo.Record(ctx, toEntry(req))
	if err != nil {
		if errors.Is(err, errors.ErrCodeInternalError) {
			logger.Error("Failed to record transaction", "error", err, "user_id", req.UserID, "kind", req.Kind, "amount", req.Amount)
		}
		return nil, err
	}

	s.metrics.RecordCoins(tx.CoinType, tx.Kind, tx.Amount)
	logger.Debug("Transaction recorded",
		"transaction_id", tx.ID,
		"user_id", tx.UserID,
		"amount", tx.Amount,
		"coin_type", tx.CoinType,
		"kind", tx.Kind,
		"balance_after", tx.BalanceAfter,
	)
	return tx, nil
}

func validateTransaction(req TransactionRequest) error {
	if req.UserID == 0 {
		return errors.New(errors.ErrCodeValidation, "user is required")
	}
	if req.Amount == 0 {
		return errors.New(errors.ErrCodeValidation, "amount must not be zero")
	}
	if !models.IsValidCoinType(req.CoinType) {
		return errors.New(errors.ErrCodeValidation, "coin type must be paid or free")
	}
	if req.Kind == "" {
		return errors.New(errors.ErrCodeValidation, "transaction kind is required")
	}
	return nil
}

func toEntry(req TransactionRequest) repositories.LedgerEntry {
	source := req.Source
	if source == "" {
		source = models.TxSourceSystem
	}
	return repositories.LedgerEntry{
		UserID:      req.UserID,
		Amount:      req.Amount,
		CoinType:    req.CoinType,
		Kind:        req.Kind,
		Source:      source,
		Description: security.SanitizeText(req.Description),
		Metadata:    req.Metadata,
		ExternalRef: req.ExternalRef,
	}
}

// CoinsToUSD converts coins at rate, rounded to cents. It is only used for
// reporting and eligibility math.
func CoinsToUSD(coins int64, rate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(coins).Mul(rate).Round(2)
}

// CoinsToUSD converts coins at the currently configured rate
func (s *LedgerService) CoinsToUSD(ctx context.Context, coins int64) decimal.Decimal {
	return CoinsToUSD(coins, s.settings.Current(ctx).CoinUSDRate)
}

// TransactionHistory lists a user's transactions, newest first
func (s *LedgerService) TransactionHistory(ctx context.Context, userID uint, limit int) ([]models.CoinTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.coinRepo.GetTransactionHistory(ctx, userID, limit)
}

// Reconcile checks that both balances equal the sum of the user's
// transactions of the same coin type.
func (s *LedgerService) Reconcile(ctx context.Context, userID uint) (*Reconciliation, error) {
	snap, err := s.coinRepo.GetLedgerSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	r := &Reconciliation{
		UserID:      userID,
		PaidBalance: snap.PaidBalance,
		PaidLedger:  snap.PaidLedger,
		FreeBalance: snap.FreeBalance,
		FreeLedger:  snap.FreeLedger,
	}
	r.Consistent = r.PaidBalance == r.PaidLedger && r.FreeBalance == r.FreeLedger

	if !r.Consistent {
		logger.Error("Ledger does not reconcile",
			"user_id", userID,
			"paid_balance", r.PaidBalance,
			"paid_ledger", r.PaidLedger,
			"free_balance", r.FreeBalance,
			"free_ledger", r.FreeLedger,
		)
	}
	return r, nil
}
