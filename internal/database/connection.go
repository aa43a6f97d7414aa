package database

import (
	"fmt"
	"time"

	"github.com/mroshb/coin_economy/internal/config"
	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	var logLevel gormlogger.LogLevel
	if cfg.AppEnv == "development" {
		logLevel = gormlogger.Info
	} else {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		// Ledger writes open their own transactions explicitly
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	logger.Info("Database connected successfully")
	return db, nil
}

// Models lists every table owned by the economy engine.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.CoinTransaction{},
		&models.BroadcasterEarning{},
		&models.OfficerAction{},
		&models.OfficerEarning{},
		&models.RiskEvent{},
		&models.UserRiskProfile{},
		&models.RevenueSettings{},
		&models.CashoutRequest{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// ApplyRevenueSettings validates s and writes it as the settings singleton.
func ApplyRevenueSettings(db *gorm.DB, s models.RevenueSettings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid revenue settings: %w", err)
	}
	s.ID = models.RevenueSettingsID

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&s).Error
	if err != nil {
		return fmt.Errorf("failed to save revenue settings: %w", err)
	}

	logger.Info("Revenue settings applied",
		"platform_cut_pct", s.PlatformCutPct,
		"broadcaster_cut_pct", s.BroadcasterCutPct,
		"officer_cut_pct", s.OfficerCutPct,
		"min_cashout_usd", s.MinCashoutUSD.StringFixed(2),
		"cashout_hold_days", s.CashoutHoldDays,
	)
	return nil
}
