package services

import (
	"context"
	"testing"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsService_Current(t *testing.T) {
	ctx := context.Background()

	t.Run("absent row uses defaults", func(t *testing.T) {
		env := newTestEnv(t)
		got := env.engine.Settings.Current(ctx)
		assert.Equal(t, 40, got.PlatformCutPct)
		assert.Equal(t, 60, got.BroadcasterCutPct)
		assert.Equal(t, 30, got.OfficerCutPct)
		assert.True(t, got.MinCashoutUSD.Equal(models.DefaultRevenueSettings().MinCashoutUSD))
		assert.Equal(t, 5.0, got.MinStreamHoursForCashout)
		assert.Equal(t, 0, got.CashoutHoldDays)
		assert.True(t, got.TaxFormRequired)
	})

	t.Run("stored row wins", func(t *testing.T) {
		env := newTestEnv(t)
		env.applySettings(t, func(s *models.RevenueSettings) {
			s.PlatformCutPct = 30
			s.BroadcasterCutPct = 70
			s.TaxFormRequired = false
		})
		got := env.engine.Settings.Current(ctx)
		assert.Equal(t, 70, got.BroadcasterCutPct)
		assert.False(t, got.TaxFormRequired)
	})

	t.Run("unreadable store uses defaults", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.db.Migrator().DropTable(&models.RevenueSettings{}))
		got := env.engine.Settings.Current(ctx)
		assert.Equal(t, 60, got.BroadcasterCutPct)
	})

	t.Run("invalid stored row uses defaults", func(t *testing.T) {
		env := newTestEnv(t)
		bad := models.DefaultRevenueSettings()
		bad.PlatformCutPct = 90
		require.NoError(t, env.db.Create(&bad).Error)
		got := env.engine.Settings.Current(ctx)
		assert.Equal(t, 40, got.PlatformCutPct)
	})
}

func TestSettingsFallbackMatchesExplicitDefaults(t *testing.T) {
	ctx := context.Background()

	run := func(t *testing.T, withRow bool) (GiftSplit, CashoutEligibility, CashoutEligibility) {
		env := newTestEnv(t)
		if withRow {
			env.applySettings(t, nil)
		}
		host := createUser(t, env, "host", models.RoleBroadcaster, 0, 0)
		env.setCreatorProfile(t, host.ID, 10, models.TaxFormOnFile)

		split, err := env.engine.Gifts.HandlePaidGift(ctx, PaidGift{SenderID: 99, BroadcasterID: host.ID, Coins: 12345, GiftID: "g"})
		require.NoError(t, err)
		low := env.engine.Cashouts.EvaluateCashoutEligibility(ctx, host.ID, mustUSD("20.99"))
		ok := env.engine.Cashouts.EvaluateCashoutEligibility(ctx, host.ID, mustUSD("21"))
		return *split, low, ok
	}

	splitA, lowA, okA := run(t, false)
	splitB, lowB, okB := run(t, true)

	assert.Equal(t, splitA.BroadcasterCoins, splitB.BroadcasterCoins)
	assert.Equal(t, splitA.PlatformCoins, splitB.PlatformCoins)
	assert.True(t, splitA.USDValue.Equal(splitB.USDValue))
	assert.Equal(t, lowA, lowB)
	assert.Equal(t, okA, okB)
	assert.True(t, okA.Eligible)
}
