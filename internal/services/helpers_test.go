package services

import (
	"context"
	"sync"
	"testing"

	"github.com/mroshb/coin_economy/internal/config"
	"github.com/mroshb/coin_economy/internal/database"
	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testNoticeSecret = "test_secret_key_minimum_32_chars"

type recordingAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (a *recordingAlerter) Alert(_ context.Context, subject string, _ map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subjects = append(a.subjects, subject)
}

func (a *recordingAlerter) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.subjects)
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                "test",
		ProviderNoticeSecret:  testNoticeSecret,
		GiftRateLimit:         30,
		GiftRateWindowSeconds: 60,
		FrozenCheckFailOpen:   true,
	}
}

type testEnv struct {
	db      *gorm.DB
	engine  *Engine
	alerter *recordingAlerter
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	alerter := &recordingAlerter{}
	engine := NewEngine(db, cfg, alerter)
	t.Cleanup(engine.Close)
	return &testEnv{db: db, engine: engine, alerter: alerter}
}

func (e *testEnv) applySettings(t *testing.T, mutate func(*models.RevenueSettings)) {
	t.Helper()
	s := models.DefaultRevenueSettings()
	if mutate != nil {
		mutate(&s)
	}
	require.NoError(t, database.ApplyRevenueSettings(e.db, s))
}

func (e *testEnv) balances(t *testing.T, userID uint) (paid, free int64) {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.First(&user, userID).Error)
	return user.PaidCoins, user.FreeCoins
}

func (e *testEnv) requireReconciled(t *testing.T, userIDs ...uint) {
	t.Helper()
	for _, id := range userIDs {
		r, err := e.engine.Ledger.Reconcile(context.Background(), id)
		require.NoError(t, err)
		require.Truef(t, r.Consistent, "user %d does not reconcile: %+v", id, r)
	}
}

func (e *testEnv) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func createUser(t *testing.T, env *testEnv, username, role string, paid, free int64) *models.User {
	t.Helper()
	user := testutil.CreateUser(t, env.db, username, paid, free)
	if role != models.RoleUser {
		require.NoError(t, env.db.Model(user).UpdateColumn("role", role).Error)
		user.Role = role
	}
	return user
}

func (e *testEnv) setCreatorProfile(t *testing.T, userID uint, hours float64, taxStatus string) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.User{}).Where("id = ?", userID).UpdateColumns(map[string]interface{}{
		"total_stream_hours": hours,
		"tax_form_status":    taxStatus,
	}).Error)
}

func mustUSD(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
