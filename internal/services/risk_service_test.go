package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskService_FreezeAtThreshold(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env, "suspect", models.RoleUser, 0, 0)

	for i := 0; i < 3; i++ {
		result, err := env.engine.Risk.AddRiskEvent(ctx, RiskEventRequest{
			UserID:    user.ID,
			EventType: "Chargeback Attempt",
			Severity:  5,
		})
		require.NoError(t, err)
		assert.False(t, result.Frozen)
		assert.Equal(t, "chargeback_attempt", result.Event.EventType)
	}
	assert.False(t, env.engine.Risk.IsUserFrozen(ctx, user.ID))
	assert.Zero(t, env.alerter.count())

	result, err := env.engine.Risk.AddRiskEvent(ctx, RiskEventRequest{UserID: user.ID, EventType: "chargeback_attempt", Severity: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(20), result.NewScore)
	assert.True(t, result.Frozen)
	assert.True(t, result.NewlyFrozen)
	assert.Equal(t, 1, env.alerter.count())

	// Later events keep the account frozen without alerting again
	result, err = env.engine.Risk.AddRiskEvent(ctx, RiskEventRequest{UserID: user.ID, EventType: "chargeback_attempt", Severity: 1})
	require.NoError(t, err)
	assert.True(t, result.Frozen)
	assert.False(t, result.NewlyFrozen)
	assert.Equal(t, 1, env.alerter.count())
	assert.True(t, env.engine.Risk.IsUserFrozen(ctx, user.ID))

	events, err := env.engine.Risk.Events(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestRiskService_FrozenBlocksMoneyMovement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env, "frozen", models.RoleUser, 1000, 0)
	other := createUser(t, env, "streamer", models.RoleBroadcaster, 0, 0)

	_, err := env.engine.Risk.AddRiskEvent(ctx, RiskEventRequest{UserID: user.ID, EventType: "manual_review", Severity: models.FreezeThreshold})
	require.NoError(t, err)

	err = env.engine.Risk.RequireNotFrozen(ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAccountFrozen, errors.CodeOf(err))
	assert.Equal(t, http.StatusLocked, errors.HTTPStatus(err))

	_, err = env.engine.Gifts.SendGift(ctx, PaidGift{SenderID: user.ID, BroadcasterID: other.ID, Coins: 10})
	assert.Equal(t, errors.ErrCodeAccountFrozen, errors.CodeOf(err))

	// Still frozen after unrelated activity by other users
	_, err = env.engine.Ledger.RecordTransaction(ctx, TransactionRequest{
		UserID:   other.ID,
		Amount:   50,
		CoinType: models.CoinTypeFree,
		Kind:     models.TxKindReward,
	})
	require.NoError(t, err)
	assert.True(t, env.engine.Risk.IsUserFrozen(ctx, user.ID))

	paid, _ := env.balances(t, user.ID)
	assert.Equal(t, int64(1000), paid)
}

func TestRiskService_LookupFailurePolicy(t *testing.T) {
	t.Run("fail open", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.db.Migrator().DropTable(&models.UserRiskProfile{}))

		assert.False(t, env.engine.Risk.IsUserFrozen(context.Background(), 1))
		assert.NoError(t, env.engine.Risk.RequireNotFrozen(context.Background(), 1))
	})

	t.Run("fail closed", func(t *testing.T) {
		cfg := testConfig()
		cfg.FrozenCheckFailOpen = false
		env := newTestEnvWithConfig(t, cfg)
		require.NoError(t, env.db.Migrator().DropTable(&models.UserRiskProfile{}))

		assert.True(t, env.engine.Risk.IsUserFrozen(context.Background(), 1))
		assert.Equal(t, errors.ErrCodeAccountFrozen, errors.CodeOf(env.engine.Risk.RequireNotFrozen(context.Background(), 1)))
	})
}

func TestRiskService_UnknownUserIsNotFrozen(t *testing.T) {
	env := newTestEnv(t)
	assert.False(t, env.engine.Risk.IsUserFrozen(context.Background(), 999))
}

func TestRiskService_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  RiskEventRequest
	}{
		{name: "missing user", req: RiskEventRequest{EventType: "x", Severity: 1}},
		{name: "missing type", req: RiskEventRequest{UserID: 1, EventType: "  ", Severity: 1}},
		{name: "zero severity", req: RiskEventRequest{UserID: 1, EventType: "x"}},
		{name: "negative severity", req: RiskEventRequest{UserID: 1, EventType: "x", Severity: -3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.Risk.AddRiskEvent(ctx, tt.req)
			assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(err))
		})
	}
}

func TestRiskService_ValidateGiftNotAbusive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := createUser(t, env, "gifter", models.RoleUser, 0, 0)

	assert.NoError(t, env.engine.Risk.ValidateGiftNotAbusive(ctx, user.ID, user.ID+1, 10))
	assert.Equal(t, errors.ErrCodeValidation, errors.CodeOf(env.engine.Risk.ValidateGiftNotAbusive(ctx, user.ID, user.ID+1, 0)))
	assert.Zero(t, env.count(t, &models.RiskEvent{}, "user_id = ?", user.ID))

	// Four self gifts reach the freeze threshold
	for i := 0; i < 4; i++ {
		err := env.engine.Risk.ValidateGiftNotAbusive(ctx, user.ID, user.ID, 10)
		assert.Equal(t, "you cannot send a gift to yourself", errors.MessageOf(err))
	}
	assert.Equal(t, int64(4), env.count(t, &models.RiskEvent{}, "user_id = ? AND event_type = ?", user.ID, models.RiskEventSelfGiftAttempt))
	assert.True(t, env.engine.Risk.IsUserFrozen(ctx, user.ID))
}

func TestRiskService_Overview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	scores := map[uint]int64{1: 25, 2: 3, 3: 12, 4: 20}
	for userID, score := range scores {
		_, err := env.engine.Risk.AddRiskEvent(ctx, RiskEventRequest{UserID: userID, EventType: "review", Severity: score})
		require.NoError(t, err)
	}

	overview, err := env.engine.Risk.Overview(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), overview.FrozenUsers)
	require.Len(t, overview.TopProfiles, 2)
	assert.Equal(t, uint(1), overview.TopProfiles[0].UserID)
	assert.Equal(t, uint(4), overview.TopProfiles[1].UserID)
}
