package repositories

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/pkg/errors"
	"gorm.io/gorm"
)

// LedgerEntry describes one balance-affecting coin movement.
type LedgerEntry struct {
	UserID      uint
	Amount      int64
	CoinType    string
	Kind        string
	Source      string
	Description string
	Metadata    models.JSONMap
	ExternalRef string
}

type CoinRepository struct {
	db *gorm.DB
}

func NewCoinRepository(db *gorm.DB) *CoinRepository {
	return &CoinRepository{db: db}
}

func balanceColumn(coinType string) string {
	if coinType == models.CoinTypeFree {
		return "free_coins"
	}
	return "paid_coins"
}

func insufficientMessage(coinType string) string {
	if coinType == models.CoinTypeFree {
		return "insufficient free coins"
	}
	return "insufficient purchased coins"
}

// Record applies one entry: the balance counter and the transaction row are
// written in a single store transaction, or neither is.
func (r *CoinRepository) Record(ctx context.Context, entry LedgerEntry) (*models.CoinTransaction, error) {
	var created *models.CoinTransaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := applyEntry(tx, entry)
		if err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to record transaction")
	}
	return created, nil
}

// RecordBatch applies all entries atomically, in order.
func (r *CoinRepository) RecordBatch(ctx context.Context, entries []LedgerEntry) ([]models.CoinTransaction, error) {
	created := make([]models.CoinTransaction, 0, len(entries))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			t, err := applyEntry(tx, entry)
			if err != nil {
				return err
			}
			created = append(created, *t)
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to record transactions")
	}
	return created, nil
}

// DebitPreferPaid takes amount from the paid counter first and the rest from
// the free counter, writing one transaction per coin type touched.
func (r *CoinRepository) DebitPreferPaid(ctx context.Context, entry LedgerEntry) ([]models.CoinTransaction, error) {
	if entry.Amount <= 0 {
		return nil, errors.New(errors.ErrCodeValidation, "debit amount must be positive")
	}

	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		paid, free, err := r.GetBalances(ctx, entry.UserID)
		if err != nil {
			return nil, err
		}
		if paid+free < entry.Amount {
			return nil, errors.New(errors.ErrCodeInsufficientFunds,
				fmt.Sprintf("insufficient coins: have %d, need %d", paid+free, entry.Amount))
		}

		paidDebit := entry.Amount
		if paidDebit > paid {
			paidDebit = paid
		}
		freeDebit := entry.Amount - paidDebit

		var entries []LedgerEntry
		for _, part := range []struct {
			coinType string
			amount   int64
		}{{models.CoinTypePaid, paidDebit}, {models.CoinTypeFree, freeDebit}} {
			if part.amount == 0 {
				continue
			}
			e := entry
			e.CoinType = part.coinType
			e.Amount = -part.amount
			e.Metadata = copyMetadata(entry.Metadata)
			e.Metadata["paid_debit"] = paidDebit
			e.Metadata["free_debit"] = freeDebit
			if len(entries) > 0 {
				e.ExternalRef = ""
			}
			entries = append(entries, e)
		}

		created, err := r.RecordBatch(ctx, entries)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, errors.ErrCodeInsufficientFunds) {
			return nil, err
		}
		// A concurrent debit moved the counters between read and write
		lastErr = err
	}
	return nil, lastErr
}

// AppendMemo writes a zero-amount transaction that carries information in
// its metadata without touching any balance.
func (r *CoinRepository) AppendMemo(ctx context.Context, entry LedgerEntry) (*models.CoinTransaction, error) {
	if entry.Amount != 0 {
		return nil, errors.New(errors.ErrCodeValidation, "memo transactions carry no amount")
	}

	var created *models.CoinTransaction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var balance int64
		row := tx.Model(&models.User{}).Select(balanceColumn(entry.CoinType)).Where("id = ?", entry.UserID).Row()
		if err := row.Scan(&balance); err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) || isNoRows(err) {
				return errors.New(errors.ErrCodeNotFound, "user not found")
			}
			return err
		}
		t := newTransaction(entry, balance)
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		created = t
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to record memo transaction")
	}
	return created, nil
}

func applyEntry(tx *gorm.DB, entry LedgerEntry) (*models.CoinTransaction, error) {
	column := balanceColumn(entry.CoinType)

	if entry.ExternalRef != "" {
		var count int64
		if err := tx.Model(&models.CoinTransaction{}).Where("external_ref = ?", entry.ExternalRef).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, errors.New(errors.ErrCodeAlreadyExists, "transaction already recorded for this reference")
		}
	}

	// Guarded update: the balance check and the write are one statement
	result := tx.Model(&models.User{}).
		Where(fmt.Sprintf("id = ? AND %s + ? >= 0", column), entry.UserID, entry.Amount).
		UpdateColumn(column, gorm.Expr(column+" + ?", entry.Amount))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", entry.UserID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, errors.New(errors.ErrCodeNotFound, "user not found")
		}
		return nil, errors.New(errors.ErrCodeInsufficientFunds, insufficientMessage(entry.CoinType))
	}

	var balance int64
	if err := tx.Model(&models.User{}).Select(column).Where("id = ?", entry.UserID).Row().Scan(&balance); err != nil {
		return nil, err
	}

	t := newTransaction(entry, balance)
	if err := tx.Create(t).Error; err != nil {
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.New(errors.ErrCodeAlreadyExists, "transaction already recorded for this reference")
		}
		return nil, err
	}
	return t, nil
}

func newTransaction(entry LedgerEntry, balanceAfter int64) *models.CoinTransaction {
	t := &models.CoinTransaction{
		UserID:       entry.UserID,
		Amount:       entry.Amount,
		CoinType:     entry.CoinType,
		Kind:         entry.Kind,
		Source:       entry.Source,
		Description:  entry.Description,
		Metadata:     entry.Metadata,
		BalanceAfter: balanceAfter,
	}
	if entry.ExternalRef != "" {
		ref := entry.ExternalRef
		t.ExternalRef = &ref
	}
	return t
}

func copyMetadata(in models.JSONMap) models.JSONMap {
	out := make(models.JSONMap, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// GetBalances retrieves the user's paid and free counters
func (r *CoinRepository) GetBalances(ctx context.Context, userID uint) (paid, free int64, err error) {
	var user models.User
	result := r.db.WithContext(ctx).Select("id", "paid_coins", "free_coins").First(&user, userID)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, 0, errors.New(errors.ErrCodeNotFound, "user not found")
	}
	if result.Error != nil {
		return 0, 0, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get balance")
	}

	return user.PaidCoins, user.FreeCoins, nil
}

// GetTransactionHistory retrieves user's transaction history, newest first
func (r *CoinRepository) GetTransactionHistory(ctx context.Context, userID uint, limit int) ([]models.CoinTransaction, error) {
	var transactions []models.CoinTransaction
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&transactions)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get transaction history")
	}

	return transactions, nil
}

// LedgerSnapshot is a user's two counters next to the transaction sums they
// must equal.
type LedgerSnapshot struct {
	PaidBalance int64
	FreeBalance int64
	PaidLedger  int64
	FreeLedger  int64
}

// GetLedgerSnapshot reads both balances and both transaction sums in one
// statement, so a concurrent write is either fully in or fully out.
func (r *CoinRepository) GetLedgerSnapshot(ctx context.Context, userID uint) (LedgerSnapshot, error) {
	const ledgerSum = "COALESCE((SELECT SUM(t.amount) FROM coin_transactions t WHERE t.user_id = users.id AND t.coin_type = ?), 0)"

	var snap LedgerSnapshot
	row := r.db.WithContext(ctx).Model(&models.User{}).
		Select("users.paid_coins, users.free_coins, "+ledgerSum+", "+ledgerSum, models.CoinTypePaid, models.CoinTypeFree).
		Where("users.id = ?", userID).
		Row()
	if err := row.Scan(&snap.PaidBalance, &snap.FreeBalance, &snap.PaidLedger, &snap.FreeLedger); err != nil {
		if isNoRows(err) {
			return LedgerSnapshot{}, errors.New(errors.ErrCodeNotFound, "user not found")
		}
		return LedgerSnapshot{}, errors.Wrap(err, errors.ErrCodeInternalError, "failed to read ledger snapshot")
	}
	return snap, nil
}

// asAppError keeps business errors intact and wraps everything else as a
// store failure.
func asAppError(err error, message string) error {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.Wrap(err, errors.ErrCodeInternalError, message)
}
