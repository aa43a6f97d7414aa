package repositories

import (
	"context"
	"sync"
	"testing"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/internal/testutil"
	"github.com/mroshb/coin_economy/pkg/errors"
)

func TestCoinRepository_RecordCreditAndDebit(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCoinRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "alice", 0, 0)

	credit, err := repo.Record(ctx, LedgerEntry{
		UserID:   user.ID,
		Amount:   1000,
		CoinType: models.CoinTypePaid,
		Kind:     models.TxKindPurchase,
		Source:   models.TxSourcePaymentProvider,
	})
	if err != nil {
		t.Fatalf("Record(credit) error = %v", err)
	}
	if credit.BalanceAfter != 1000 {
		t.Errorf("BalanceAfter = %d, want 1000", credit.BalanceAfter)
	}

	debit, err := repo.Record(ctx, LedgerEntry{
		UserID:   user.ID,
		Amount:   -400,
		CoinType: models.CoinTypePaid,
		Kind:     models.TxKindGiftSent,
		Source:   models.TxSourceGift,
		Metadata: models.JSONMap{"gift_id": "rose"},
	})
	if err != nil {
		t.Fatalf("Record(debit) error = %v", err)
	}
	if debit.BalanceAfter != 600 {
		t.Errorf("BalanceAfter = %d, want 600", debit.BalanceAfter)
	}

	paid, free, err := repo.GetBalances(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetBalances() error = %v", err)
	}
	if paid != 600 || free != 0 {
		t.Errorf("balances = %d/%d, want 600/0", paid, free)
	}

	history, err := repo.GetTransactionHistory(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("GetTransactionHistory() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Metadata.String("gift_id") != "rose" {
		t.Errorf("newest transaction metadata = %v", history[0].Metadata)
	}
}

func TestCoinRepository_InsufficientFundsWritesNothing(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCoinRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "bob", 100, 50)

	_, err := repo.Record(ctx, LedgerEntry{
		UserID:   user.ID,
		Amount:   -101,
		CoinType: models.CoinTypePaid,
		Kind:     models.TxKindGiftSent,
		Source:   models.TxSourceGift,
	})
	if !errors.Is(err, errors.ErrCodeInsufficientFunds) {
		t.Fatalf("Record() error = %v, want INSUFFICIENT_FUNDS", err)
	}
	if errors.MessageOf(err) != "insufficient purchased coins" {
		t.Errorf("message = %q", errors.MessageOf(err))
	}

	var count int64
	db.Model(&models.CoinTransaction{}).Where("user_id = ? AND kind = ?", user.ID, models.TxKindGiftSent).Count(&count)
	if count != 0 {
		t.Errorf("transactions written = %d, want 0", count)
	}

	paid, free, _ := repo.GetBalances(ctx, user.ID)
	if paid != 100 || free != 50 {
		t.Errorf("balances = %d/%d, want 100/50", paid, free)
	}
}

func TestCoinRepository_UnknownUser(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCoinRepository(db)

	_, err := repo.Record(context.Background(), LedgerEntry{
		UserID:   9999,
		Amount:   10,
		CoinType: models.CoinTypeFree,
		Kind:     models.TxKindReward,
		Source:   models.TxSourceSystem,
	})
	if !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("Record() error = %v, want NOT_FOUND", err)
	}
}

func TestCoinRepository_RecordBatchIsAtomic(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCoinRepository(db)
	ctx := context.Background()
	sender := testutil.CreateUser(t, db, "sender", 100, 0)
	receiver := testutil.CreateUser(t, db, "receiver", 0, 0)

	_, err := repo.RecordBatch(ctx, []LedgerEntry{
		{UserID: receiver.ID, Amount: 500, CoinType: models.CoinTypePaid, Kind: models.TxKindGiftReceived, Source: models.TxSourceGift},
		{UserID: sender.ID, Amount: -500, CoinType: models.CoinTypePaid, Kind: models.TxKindGiftSent, Source: models.TxSourceGift},
	})
	if !errors.Is(err, errors.ErrCodeInsufficientFunds) {
		t.Fatalf("RecordBatch() error = %v, want INSUFFICIENT_FUNDS", err)
	}

	paid, _, _ := repo.GetBalances(ctx, receiver.ID)
	if paid != 0 {
		t.Errorf("receiver paid = %d, want 0 after rollback", paid)
	}
}

func TestCoinRepository_DebitPreferPaid(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCoinRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "target", 300, 400)

	created, err := repo.DebitPreferPaid(ctx, LedgerEntry{
		UserID: user.ID,
		Amount: 500,
		Kind:   models.TxKindKickFee,
		Source: models.TxSourceModeration,
	})
	if err != nil {
		t.Fatalf("DebitPreferPaid() error = %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("transactions = %d, want 2", len(created))
	}
	if created[0].CoinType != models.CoinTypePaid || created[0].Amount != -300 {
		t.Errorf("first debit = %s %d, want paid -300", created[0].CoinType, created[0].Amount)
	}
	if created[1].CoinType != models.CoinTypeFree || created[1].Amount != -200 {
		t.Errorf("second debit = %s %d, want free -200", created[1].CoinType, created[1].Amount)
	}

	paid, free, _ := repo.GetBalances(ctx, user.ID)
	if paid != 0 || free != 200 {
		t.Errorf("balances = %d/%d, want 0/200", paid, free)
	}

	_, err = repo.DebitPreferPaid(ctx, LedgerEntry{UserID: user.ID, Amount: 201, Kind: models.TxKindBanFee, Source: models.TxSourceModeration})
	if !errors.Is(err, errors.ErrCodeInsufficientFunds) {
		t.Errorf("DebitPreferPaid() error = %v, want INSUFFICIENT_FUNDS", err)
	}
}

func TestCoinRepository_ExternalRefIsUnique(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCoinRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "buyer", 0, 0)

	entry := LedgerEntry{
		UserID:      user.ID,
		Amount:      2500,
		CoinType:    models.CoinTypePaid,
		Kind:        models.TxKindPurchase,
		Source:      models.TxSourcePaymentProvider,
		ExternalRef: "pi_123",
	}
	if _, err := repo.Record(ctx, entry); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if _, err := repo.Record(ctx, entry); !errors.Is(err, errors.ErrCodeAlreadyExists) {
		t.Errorf("duplicate Record() error = %v, want ALREADY_EXISTS", err)
	}

	paid, _, _ := repo.GetBalances(ctx, user.ID)
	if paid != 2500 {
		t.Errorf("paid = %d, want 2500", paid)
	}
}

func TestCoinRepository_AppendMemo(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCoinRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "host", 70, 0)

	memo, err := repo.AppendMemo(ctx, LedgerEntry{
		UserID:   user.ID,
		CoinType: models.CoinTypePaid,
		Kind:     models.TxKindPlatformRevenue,
		Source:   models.TxSourceGift,
		Metadata: models.JSONMap{"platform_coins": 30},
	})
	if err != nil {
		t.Fatalf("AppendMemo() error = %v", err)
	}
	if memo.Amount != 0 || memo.BalanceAfter != 70 {
		t.Errorf("memo = amount %d balance %d, want 0 and 70", memo.Amount, memo.BalanceAfter)
	}

	if _, err := repo.AppendMemo(ctx, LedgerEntry{UserID: user.ID, Amount: 5, CoinType: models.CoinTypePaid}); !errors.Is(err, errors.ErrCodeValidation) {
		t.Errorf("AppendMemo(non-zero) error = %v, want VALIDATION_ERROR", err)
	}
	if _, err := repo.AppendMemo(ctx, LedgerEntry{UserID: 424242, CoinType: models.CoinTypePaid, Kind: models.TxKindPlatformRevenue}); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("AppendMemo(unknown user) error = %v, want NOT_FOUND", err)
	}
}

func TestCoinRepository_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCoinRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "racer", 1000, 0)

	const attempts = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Record(ctx, LedgerEntry{
				UserID:   user.ID,
				Amount:   -100,
				CoinType: models.CoinTypePaid,
				Kind:     models.TxKindGiftSent,
				Source:   models.TxSourceGift,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("successful debits = %d, want 10", succeeded)
	}

	paid, _, _ := repo.GetBalances(ctx, user.ID)
	if paid != 0 {
		t.Errorf("paid = %d, want 0", paid)
	}

	snap, err := repo.GetLedgerSnapshot(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetLedgerSnapshot() error = %v", err)
	}
	if snap.PaidLedger != paid {
		t.Errorf("paid sum = %d, balance = %d", snap.PaidLedger, paid)
	}
}

func TestCoinRepository_GetLedgerSnapshot(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCoinRepository(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "snap", 700, 300)
	other := testutil.CreateUser(t, db, "other", 50, 50)

	if _, err := repo.Record(ctx, LedgerEntry{UserID: user.ID, Amount: -200, CoinType: models.CoinTypePaid, Kind: models.TxKindGiftSent, Source: models.TxSourceGift}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	// Drift the free counter without a transaction
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).UpdateColumn("free_coins", 310).Error; err != nil {
		t.Fatalf("drift: %v", err)
	}

	snap, err := repo.GetLedgerSnapshot(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetLedgerSnapshot() error = %v", err)
	}
	want := LedgerSnapshot{PaidBalance: 500, FreeBalance: 310, PaidLedger: 500, FreeLedger: 300}
	if snap != want {
		t.Errorf("GetLedgerSnapshot() = %+v, want %+v", snap, want)
	}

	otherSnap, err := repo.GetLedgerSnapshot(ctx, other.ID)
	if err != nil {
		t.Fatalf("GetLedgerSnapshot(other) error = %v", err)
	}
	if otherSnap.PaidLedger != 50 || otherSnap.FreeLedger != 50 {
		t.Errorf("other snapshot = %+v, want ledgers 50/50", otherSnap)
	}

	empty := testutil.CreateUser(t, db, "empty", 0, 0)
	if snap, err := repo.GetLedgerSnapshot(ctx, empty.ID); err != nil || snap != (LedgerSnapshot{}) {
		t.Errorf("GetLedgerSnapshot(empty) = %+v, %v, want zero snapshot", snap, err)
	}

	if _, err := repo.GetLedgerSnapshot(ctx, 999); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("GetLedgerSnapshot(999) code = %q, want %q", errors.CodeOf(err), errors.ErrCodeNotFound)
	}
}
