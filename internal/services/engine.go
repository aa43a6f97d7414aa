package services

import (
	"github.com/mroshb/coin_economy/internal/config"
	"github.com/mroshb/coin_economy/internal/metrics"
	"github.com/mroshb/coin_economy/internal/middleware"
	"github.com/mroshb/coin_economy/internal/repositories"
	"gorm.io/gorm"
)

// Engine wires every economy service over one database.
type Engine struct {
	Settings   *SettingsService
	Ledger     *LedgerService
	Risk       *RiskService
	Gifts      *GiftService
	Moderation *ModerationService
	Cashouts   *CashoutService
	Reports    *ReportService
	Notices    *ProviderNoticeService

	limiter *middleware.RateLimiter
}

// NewEngine builds the services. alerter may be nil.
func NewEngine(db *gorm.DB, cfg *config.Config, alerter Alerter) *Engine {
	if alerter == nil {
		alerter = NopAlerter{}
	}
	m := metrics.Economy()

	userRepo := repositories.NewUserRepository(db)
	coinRepo := repositories.NewCoinRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	earningRepo := repositories.NewEarningRepository(db)
	officerRepo := repositories.NewOfficerRepository(db)
	riskRepo := repositories.NewRiskRepository(db)
	cashoutRepo := repositories.NewCashoutRepository(db)
	reportRepo := repositories.NewReportRepository(db)

	policy := TreatAsNotFrozen
	if !cfg.FrozenCheckFailOpen {
		policy = TreatAsFrozen
	}
	limiter := middleware.NewRateLimiter(cfg.GiftRateLimit, cfg.GetGiftRateWindow())

	settings := NewSettingsService(settingsRepo)
	ledger := NewLedgerService(coinRepo, settings, m)
	risk := NewRiskService(riskRepo, alerter, m, policy)

	return &Engine{
		Settings:   settings,
		Ledger:     ledger,
		Risk:       risk,
		Gifts:      NewGiftService(coinRepo, earningRepo, settings, risk, limiter, alerter, m),
		Moderation: NewModerationService(coinRepo, officerRepo, earningRepo, userRepo, settings, alerter, m),
		Cashouts:   NewCashoutService(cashoutRepo, userRepo, settings, risk, m),
		Reports:    NewReportService(reportRepo, riskRepo, settings),
		Notices:    NewProviderNoticeService(ledger, cashoutRepo, cfg.ProviderNoticeSecret),
		limiter:    limiter,
	}
}

// Close stops background work owned by the engine
func (e *Engine) Close() {
	e.limiter.Stop()
}
