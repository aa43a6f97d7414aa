package services

import (
	"context"
	"fmt"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/internal/repositories"
	"github.com/mroshb/coin_economy/internal/security"
	"github.com/mroshb/coin_economy/pkg/errors"
	"github.com/mroshb/coin_economy/pkg/logger"
)

// ProviderNoticeService applies signed payment provider reports to the
// ledger. Each provider reference is applied at most once.
type ProviderNoticeService struct {
	ledger      *LedgerService
	cashoutRepo *repositories.CashoutRepository
	secret      string
}

func NewProviderNoticeService(ledger *LedgerService, cashoutRepo *repositories.CashoutRepository, secret string) *ProviderNoticeService {
	return &ProviderNoticeService{
		ledger:      ledger,
		cashoutRepo: cashoutRepo,
		secret:      secret,
	}
}

func settlementRef(cashoutReference string) string {
	return "cashout:" + cashoutReference
}

// ApplyNotice verifies token and records the coin movement it reports
func (s *ProviderNoticeService) ApplyNotice(ctx context.Context, token string) (*models.CoinTransaction, error) {
	if s.secret == "" {
		return nil, errors.New(errors.ErrCodeUnauthorized, "provider notices are not configured")
	}

	notice, err := security.ParseNotice(token, s.secret)
	if err != nil {
		logger.Warn("Rejected provider notice", "error", err)
		return nil, errors.Wrap(err, errors.ErrCodeUnauthorized, "invalid provider notice")
	}

	var req TransactionRequest
	switch notice.Kind {
	case security.NoticePurchase:
		req = TransactionRequest{
			UserID:      notice.UserID,
			Amount:      notice.Coins,
			CoinType:    models.CoinTypePaid,
			Kind:        models.TxKindPurchase,
			Source:      models.TxSourcePaymentProvider,
			Description: "Coin purchase",
			Metadata:    models.JSONMap{"provider_reference": notice.Reference},
			ExternalRef: notice.Reference,
		}
	case security.NoticeCashoutSettled:
		request, err := s.cashoutRepo.GetByReference(ctx, notice.CashoutReference)
		if err != nil {
			return nil, err
		}
		if request.UserID != notice.UserID {
			return nil, errors.New(errors.ErrCodeValidation, "cashout request belongs to another user")
		}
		if request.IsSettled() || request.Status == models.CashoutStatusRejected {
			return nil, errors.New(errors.ErrCodeValidation, fmt.Sprintf("cashout request is already %s", request.Status))
		}
		if notice.Coins != request.RequestedCoins {
			return nil, errors.New(errors.ErrCodeValidation, fmt.Sprintf(
				"settlement of %d coins does not match the %d coins requested", notice.Coins, request.RequestedCoins))
		}
		req = TransactionRequest{
			UserID:      notice.UserID,
			Amount:      -notice.Coins,
			CoinType:    models.CoinTypePaid,
			Kind:        models.TxKindCashout,
			Source:      models.TxSourcePaymentProvider,
			Description: fmt.Sprintf("Cashout %s settled", request.Reference),
			Metadata: models.JSONMap{
				"provider_reference": notice.Reference,
				"cashout_reference":  request.Reference,
				"usd_value":          request.USDValue.StringFixed(2),
			},
			// One settlement per request, whatever the provider reference
			ExternalRef: settlementRef(request.Reference),
		}
	}

	tx, err := s.ledger.RecordTransaction(ctx, req)
	if err != nil {
		if errors.Is(err, errors.ErrCodeAlreadyExists) {
			logger.Info("Provider notice already applied", "reference", notice.Reference)
		}
		return nil, err
	}

	logger.Info("Provider notice applied",
		"kind", notice.Kind,
		"reference", notice.Reference,
		"user_id", notice.UserID,
		"coins", notice.Coins,
		"transaction_id", tx.ID,
	)
	return tx, nil
}
