package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mroshb/coin_economy/internal/config"
	"github.com/mroshb/coin_economy/internal/database"
	"github.com/mroshb/coin_economy/internal/metrics"
	"github.com/mroshb/coin_economy/internal/notify"
	"github.com/mroshb/coin_economy/internal/services"
	"github.com/mroshb/coin_economy/pkg/errors"
	"github.com/mroshb/coin_economy/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const usage = `usage: economy <command> [flags]

commands:
  migrate                 create or update the economy tables
  settings -file path     load revenue settings from a YAML file
  report [-xlsx path]     print the economy summary, optionally as a workbook
  reconcile -user id      compare a user's balances with the ledger
  notice -token jwt       apply a signed payment provider notice
  metrics [-addr :9090]   serve Prometheus metrics until interrupted
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	logger.Init()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", err)
	}
	if err := cfg.ValidateProductionSecurity(); err != nil {
		logger.Fatal("Production security validation failed", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command, args := os.Args[1], os.Args[2:]
	if command == "migrate" {
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal("Failed to run migrations", err)
		}
		logger.Info("Migrations applied")
		return
	}

	engine := services.NewEngine(db, cfg, newAlerter(cfg))
	defer engine.Close()

	switch command {
	case "settings":
		err = runSettings(db, args)
	case "report":
		err = runReport(ctx, engine, args)
	case "reconcile":
		err = runReconcile(ctx, engine, args)
	case "notice":
		err = runNotice(ctx, engine, args)
	case "metrics":
		err = runMetrics(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("Command failed", "command", command, "error", err, "code", errors.CodeOf(err))
		os.Exit(1)
	}
}

// newAlerter falls back to log-only alerts when no alert bot is configured.
func newAlerter(cfg *config.Config) services.Alerter {
	if cfg.AlertBotToken == "" {
		return services.NopAlerter{}
	}
	alerter, err := notify.NewTelegramAlerter(cfg)
	if err != nil {
		logger.Error("Alert bot unavailable, alerts will only be logged", "error", err)
		return services.NopAlerter{}
	}
	return alerter
}

func runSettings(db *gorm.DB, args []string) error {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	file := fs.String("file", "", "YAML revenue settings file")
	fs.Parse(args)
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	settings, err := database.LoadRevenueSettingsFile(*file)
	if err != nil {
		return err
	}
	if err := database.ApplyRevenueSettings(db, settings); err != nil {
		return err
	}
	logger.Info("Revenue settings applied",
		"platform_cut_pct", settings.PlatformCutPct,
		"broadcaster_cut_pct", settings.BroadcasterCutPct,
		"officer_cut_pct", settings.OfficerCutPct,
		"coin_usd_rate", settings.CoinUSDRate.String(),
	)
	return nil
}

func runReport(ctx context.Context, engine *services.Engine, args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	xlsx := fs.String("xlsx", "", "write the summary workbook to this path")
	fs.Parse(args)

	summary := engine.Reports.EconomySummary(ctx)
	if *xlsx != "" {
		f, err := os.Create(*xlsx)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := services.ExportXLSX(summary, f); err != nil {
			return err
		}
		logger.Info("Economy report written", "path", *xlsx)
		return nil
	}

	fmt.Printf("Generated at:              %s\n", summary.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("Outstanding paid coins:    %d ($%s)\n", summary.OutstandingPaidCoins, summary.OutstandingLiability.StringFixed(2))
	fmt.Printf("Broadcaster earnings:      %d coins ($%s)\n", summary.BroadcasterCoins, summary.BroadcasterUSD.StringFixed(2))
	fmt.Printf("Officer commissions:       %d coins ($%s)\n", summary.OfficerCoins, summary.OfficerUSD.StringFixed(2))
	fmt.Printf("Cashouts pending/paid:     $%s / $%s\n", summary.CashoutPendingUSD.StringFixed(2), summary.CashoutPaidUSD.StringFixed(2))
	fmt.Printf("Cashouts rejected:         $%s\n", summary.CashoutRejectedUSD.StringFixed(2))
	fmt.Printf("Wheel spins (jackpots):    %d (%d)\n", summary.Wheel.Spins, summary.Wheel.Jackpots)
	fmt.Printf("Frozen accounts:           %d\n", summary.FrozenUsers)
	for _, w := range summary.Warnings {
		fmt.Printf("WARNING: %s\n", w)
	}
	return nil
}

func runReconcile(ctx context.Context, engine *services.Engine, args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	user := fs.String("user", "", "user id")
	fs.Parse(args)

	id, err := strconv.ParseUint(*user, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("-user must be a positive id")
	}
	r, err := engine.Ledger.Reconcile(ctx, uint(id))
	if err != nil {
		return err
	}
	fmt.Printf("paid: balance=%d ledger=%d\nfree: balance=%d ledger=%d\nconsistent: %t\n",
		r.PaidBalance, r.PaidLedger, r.FreeBalance, r.FreeLedger, r.Consistent)
	if !r.Consistent {
		return errors.New(errors.ErrCodeInternalError, fmt.Sprintf("user %d balances do not match the ledger", id))
	}
	return nil
}

func runNotice(ctx context.Context, engine *services.Engine, args []string) error {
	fs := flag.NewFlagSet("notice", flag.ExitOnError)
	token := fs.String("token", "", "signed provider notice")
	fs.Parse(args)
	if *token == "" {
		return fmt.Errorf("-token is required")
	}

	tx, err := engine.Notices.ApplyNotice(ctx, *token)
	if err != nil {
		return err
	}
	fmt.Printf("applied transaction %d: %s %d %s coins, balance %d\n", tx.ID, tx.Kind, tx.Amount, tx.CoinType, tx.BalanceAfter)
	return nil
}

func runMetrics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("metrics", flag.ExitOnError)
	addr := fs.String("addr", ":9090", "listen address")
	fs.Parse(args)

	metrics.Economy()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	logger.Info("Metrics server stopped")
	return nil
}
