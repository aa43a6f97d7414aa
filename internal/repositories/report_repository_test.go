package repositories

import (
	"context"
	"testing"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/internal/testutil"
	"github.com/shopspring/decimal"
)

func TestReportRepository_Aggregates(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	coins := NewCoinRepository(db)
	reports := NewReportRepository(db)

	viewer := testutil.CreateUser(t, db, "viewer", 0, 0)
	host := testutil.CreateUser(t, db, "host", 0, 0)

	mustRecord := func(entry LedgerEntry) {
		t.Helper()
		if _, err := coins.Record(ctx, entry); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}
	mustRecord(LedgerEntry{UserID: viewer.ID, Amount: 10000, CoinType: models.CoinTypePaid, Kind: models.TxKindPurchase, Source: models.TxSourcePaymentProvider})
	mustRecord(LedgerEntry{UserID: viewer.ID, Amount: -1000, CoinType: models.CoinTypePaid, Kind: models.TxKindGiftSent, Source: models.TxSourceGift})
	mustRecord(LedgerEntry{UserID: host.ID, Amount: 600, CoinType: models.CoinTypePaid, Kind: models.TxKindGiftReceived, Source: models.TxSourceGift})
	mustRecord(LedgerEntry{UserID: viewer.ID, Amount: 500, CoinType: models.CoinTypeFree, Kind: models.TxKindReward, Source: models.TxSourceSystem})
	mustRecord(LedgerEntry{
		UserID: viewer.ID, Amount: -200, CoinType: models.CoinTypeFree, Kind: models.TxKindWheelSpin, Source: models.TxSourceSystem,
		Metadata: models.JSONMap{"coins_awarded": 50, "is_jackpot": false},
	})
	mustRecord(LedgerEntry{
		UserID: viewer.ID, Amount: -200, CoinType: models.CoinTypeFree, Kind: models.TxKindWheelSpin, Source: models.TxSourceSystem,
		Metadata: models.JSONMap{"coins_awarded": 5000, "is_jackpot": true},
	})

	flows, err := reports.GetPaidCoinFlows(ctx)
	if err != nil {
		t.Fatalf("GetPaidCoinFlows() error = %v", err)
	}
	if flows.Purchased != 10000 || flows.OtherCredits != 600 || flows.Spent != 1000 {
		t.Errorf("flows = %+v", flows)
	}

	if err := db.Create(&models.BroadcasterEarning{BroadcasterID: host.ID, CoinsEarned: 600, USDValue: decimal.RequireFromString("0.06"), SourceType: models.EarningSourceGift, SourceID: "g1"}).Error; err != nil {
		t.Fatalf("create earning: %v", err)
	}
	totals, err := reports.GetBroadcasterTotals(ctx)
	if err != nil {
		t.Fatalf("GetBroadcasterTotals() error = %v", err)
	}
	if totals.Coins != 600 || !totals.USD.Equal(decimal.RequireFromString("0.06")) {
		t.Errorf("broadcaster totals = %d / %s", totals.Coins, totals.USD)
	}

	officer, err := reports.GetOfficerTotals(ctx)
	if err != nil {
		t.Fatalf("GetOfficerTotals() error = %v", err)
	}
	if officer.Coins != 0 || !officer.USD.IsZero() {
		t.Errorf("officer totals = %+v, want zero", officer)
	}

	wheel, err := reports.GetWheelActivity(ctx)
	if err != nil {
		t.Fatalf("GetWheelActivity() error = %v", err)
	}
	if wheel.Spins != 2 || wheel.CoinsSpent != 400 || wheel.CoinsAwarded != 5050 || wheel.Jackpots != 1 {
		t.Errorf("wheel = %+v", wheel)
	}
}

func TestReportRepository_MissingTablesAggregateToZero(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	reports := NewReportRepository(db)

	for _, model := range []interface{}{&models.OfficerEarning{}, &models.CashoutRequest{}, &models.CoinTransaction{}} {
		if err := db.Migrator().DropTable(model); err != nil {
			t.Fatalf("drop table: %v", err)
		}
	}

	if officer, err := reports.GetOfficerTotals(ctx); err != nil || officer.Coins != 0 {
		t.Errorf("GetOfficerTotals() = %+v, %v", officer, err)
	}
	if cashouts, err := reports.GetCashoutUSDByStatus(ctx); err != nil || len(cashouts) != 0 {
		t.Errorf("GetCashoutUSDByStatus() = %v, %v", cashouts, err)
	}
	if flows, err := reports.GetPaidCoinFlows(ctx); err != nil || flows != (PaidCoinFlows{}) {
		t.Errorf("GetPaidCoinFlows() = %+v, %v", flows, err)
	}
	if wheel, err := reports.GetWheelActivity(ctx); err != nil || wheel != (WheelActivity{}) {
		t.Errorf("GetWheelActivity() = %+v, %v", wheel, err)
	}
}
