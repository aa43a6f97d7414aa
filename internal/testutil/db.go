// Package testutil provides a migrated in-memory database for package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/mroshb/coin_economy/internal/database"
	"github.com/mroshb/coin_economy/internal/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewDB opens a private in-memory sqlite database with every economy table
// migrated. A single connection serializes writers the way row locks would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user holding the given balances. Each non-zero
// balance is backed by an opening transaction so the ledger reconciles.
func CreateUser(t *testing.T, db *gorm.DB, username string, paid, free int64) *models.User {
	t.Helper()

	user := &models.User{
		Username:  username,
		PaidCoins: paid,
		FreeCoins: free,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}

	for coinType, amount := range map[string]int64{models.CoinTypePaid: paid, models.CoinTypeFree: free} {
		if amount == 0 {
			continue
		}
		opening := &models.CoinTransaction{
			UserID:       user.ID,
			Amount:       amount,
			CoinType:     coinType,
			Kind:         models.TxKindAdminAdjustment,
			Source:       models.TxSourceSystem,
			Description:  "opening balance",
			BalanceAfter: amount,
		}
		if err := db.Create(opening).Error; err != nil {
			t.Fatalf("opening balance for %s: %v", username, err)
		}
	}
	return user
}
