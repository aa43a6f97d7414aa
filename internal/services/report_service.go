package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/internal/repositories"
	"github.com/mroshb/coin_economy/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// EconomySummary is a derived dashboard view. Any aggregate that could not
// be computed is zero and named in Warnings.
type EconomySummary struct {
	GeneratedAt time.Time

	PaidCoinsPurchased    int64
	PaidCoinsOtherCredits int64
	PaidCoinsSpent        int64
	OutstandingPaidCoins  int64
	OutstandingLiability  decimal.Decimal

	BroadcasterCoins int64
	BroadcasterUSD   decimal.Decimal
	OfficerCoins     int64
	OfficerUSD       decimal.Decimal

	CashoutPendingUSD  decimal.Decimal
	CashoutPaidUSD     decimal.Decimal
	CashoutRejectedUSD decimal.Decimal
	CashoutByStatus    map[string]decimal.Decimal

	Wheel       repositories.WheelActivity
	FrozenUsers int64

	Warnings []string
}

type ReportService struct {
	reportRepo *repositories.ReportRepository
	riskRepo   *repositories.RiskRepository
	settings   *SettingsService
}

func NewReportService(reportRepo *repositories.ReportRepository, riskRepo *repositories.RiskRepository, settings *SettingsService) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		riskRepo:   riskRepo,
		settings:   settings,
	}
}

// EconomySummary aggregates the ledger, earnings, cash-outs and risk tables.
// It never fails as a whole.
func (s *ReportService) EconomySummary(ctx context.Context) *EconomySummary {
	settings := s.settings.Current(ctx)
	summary := &EconomySummary{
		GeneratedAt:          time.Now().UTC(),
		OutstandingLiability: decimal.Zero,
		BroadcasterUSD:       decimal.Zero,
		OfficerUSD:           decimal.Zero,
		CashoutPendingUSD:    decimal.Zero,
		CashoutPaidUSD:       decimal.Zero,
		CashoutRejectedUSD:   decimal.Zero,
		CashoutByStatus:      map[string]decimal.Decimal{},
	}
	warn := func(section string, err error) {
		logger.Warn("Economy report section unavailable", "section", section, "error", err)
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s unavailable", section))
	}

	if flows, err := s.reportRepo.GetPaidCoinFlows(ctx); err != nil {
		warn("paid coin liability", err)
	} else {
		summary.PaidCoinsPurchased = flows.Purchased
		summary.PaidCoinsOtherCredits = flows.OtherCredits
		summary.PaidCoinsSpent = flows.Spent
		summary.OutstandingPaidCoins = flows.Purchased + flows.OtherCredits - flows.Spent
		summary.OutstandingLiability = CoinsToUSD(summary.OutstandingPaidCoins, settings.CoinUSDRate)
	}

	if totals, err := s.reportRepo.GetBroadcasterTotals(ctx); err != nil {
		warn("broadcaster earnings", err)
	} else {
		summary.BroadcasterCoins = totals.Coins
		summary.BroadcasterUSD = totals.USD
	}

	if totals, err := s.reportRepo.GetOfficerTotals(ctx); err != nil {
		warn("officer earnings", err)
	} else {
		summary.OfficerCoins = totals.Coins
		summary.OfficerUSD = totals.USD
	}

	if byStatus, err := s.reportRepo.GetCashoutUSDByStatus(ctx); err != nil {
		warn("cashouts", err)
	} else {
		summary.CashoutByStatus = byStatus
		for status, usd := range byStatus {
			switch status {
			case models.CashoutStatusPending, models.CashoutStatusProcessing:
				summary.CashoutPendingUSD = summary.CashoutPendingUSD.Add(usd)
			case models.CashoutStatusPaid, models.CashoutStatusCompleted:
				summary.CashoutPaidUSD = summary.CashoutPaidUSD.Add(usd)
			case models.CashoutStatusRejected:
				summary.CashoutRejectedUSD = summary.CashoutRejectedUSD.Add(usd)
			}
		}
	}

	if wheel, err := s.reportRepo.GetWheelActivity(ctx); err != nil {
		warn("wheel activity", err)
	} else {
		summary.Wheel = wheel
	}

	if frozen, err := s.riskRepo.CountFrozen(ctx); err != nil {
		warn("frozen accounts", err)
	} else {
		summary.FrozenUsers = frozen
	}

	return summary
}

// ExportXLSX writes the summary as a one-sheet workbook
func ExportXLSX(summary *EconomySummary, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Summary"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Generated at", summary.GeneratedAt.Format(time.RFC3339)},
		{"Paid coins purchased", summary.PaidCoinsPurchased},
		{"Paid coins other credits", summary.PaidCoinsOtherCredits},
		{"Paid coins spent", summary.PaidCoinsSpent},
		{"Outstanding paid coins", summary.OutstandingPaidCoins},
		{"Outstanding liability USD", summary.OutstandingLiability.StringFixed(2)},
		{"Broadcaster coins earned", summary.BroadcasterCoins},
		{"Broadcaster USD owed", summary.BroadcasterUSD.StringFixed(2)},
		{"Officer commission coins", summary.OfficerCoins},
		{"Officer USD paid", summary.OfficerUSD.StringFixed(2)},
		{"Cashout pending USD", summary.CashoutPendingUSD.StringFixed(2)},
		{"Cashout paid USD", summary.CashoutPaidUSD.StringFixed(2)},
		{"Cashout rejected USD", summary.CashoutRejectedUSD.StringFixed(2)},
		{"Wheel spins", summary.Wheel.Spins},
		{"Wheel coins spent", summary.Wheel.CoinsSpent},
		{"Wheel coins awarded", summary.Wheel.CoinsAwarded},
		{"Wheel jackpots", summary.Wheel.Jackpots},
		{"Frozen accounts", summary.FrozenUsers},
	}

	statuses := make([]string, 0, len(summary.CashoutByStatus))
	for status := range summary.CashoutByStatus {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		rows = append(rows, []interface{}{"Cashout " + status + " USD", summary.CashoutByStatus[status].StringFixed(2)})
	}
	for _, warning := range summary.Warnings {
		rows = append(rows, []interface{}{"Warning", warning})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	return f.Write(w)
}
