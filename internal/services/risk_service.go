package services

import (
	"context"
	"time"

	"github.com/mroshb/coin_economy/internal/metrics"
	"github.com/mroshb/coin_economy/internal/models"
	"github.com/mroshb/coin_economy/internal/repositories"
	"github.com/mroshb/coin_economy/pkg/errors"
	"github.com/mroshb/coin_economy/pkg/logger"
	"github.com/mroshb/coin_economy/pkg/utils"
)

// FrozenLookupPolicy decides what a failed freeze lookup means.
type FrozenLookupPolicy int

const (
	// TreatAsNotFrozen keeps unrelated users working through store outages.
	TreatAsNotFrozen FrozenLookupPolicy = iota
	TreatAsFrozen
)

// SelfGiftSeverity is the risk added by one self-gift attempt.
const SelfGiftSeverity int64 = 5

// GiftVelocitySeverity is the risk added each time a sender exceeds the
// gift rate limit.
const GiftVelocitySeverity int64 = 2

type RiskEventRequest struct {
	UserID    uint
	EventType string
	Severity  int64
	Details   models.JSONMap
}

type RiskEventResult struct {
	Event       *models.RiskEvent
	NewScore    int64
	Frozen      bool
	NewlyFrozen bool
}

// RiskOverview is the operator view of account risk.
type RiskOverview struct {
	FrozenUsers int64
	TopProfiles []models.UserRiskProfile
}

type RiskService struct {
	repo    *repositories.RiskRepository
	alerter Alerter
	metrics *metrics.EconomyMetrics
	policy  FrozenLookupPolicy
}

func NewRiskService(repo *repositories.RiskRepository, alerter Alerter, m *metrics.EconomyMetrics, policy FrozenLookupPolicy) *RiskService {
	if alerter == nil {
		alerter = NopAlerter{}
	}
	return &RiskService{
		repo:    repo,
		alerter: alerter,
		metrics: m,
		policy:  policy,
	}
}

// AddRiskEvent records the event and adds its severity to the user's score.
// Reaching models.FreezeThreshold freezes the account; nothing here unfreezes.
func (s *RiskService) AddRiskEvent(ctx context.Context, req RiskEventRequest) (result *RiskEventResult, err error) {
	start := time.Now()
	defer func() { observe(s.metrics, "add_risk_event", start, err) }()

	req.EventType = utils.NormalizeKey(req.EventType)
	if req.UserID == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "user is required")
	}
	if req.EventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "event type is required")
	}
	if req.Severity <= 0 {
		return nil, errors.New(errors.ErrCodeValidation, "severity must be positive")
	}

	event := &models.RiskEvent{
		UserID:    req.UserID,
		EventType: req.EventType,
		Severity:  req.Severity,
		Details:   req.Details,
	}
	profile, newlyFrozen, err := s.repo.RecordEvent(ctx, event, models.FreezeThreshold, models.FreezeReasonRiskThreshold)
	if err != nil {
		logger.Error("Failed to record risk event", "error", err, "user_id", req.UserID, "event_type", req.EventType)
		return nil, err
	}

	s.metrics.RecordRiskEvent(req.EventType, newlyFrozen)
	logger.Info("Risk event recorded",
		"user_id", req.UserID,
		"event_type", req.EventType,
		"severity", req.Severity,
		"risk_score", profile.RiskScore,
	)

	if newlyFrozen {
		logger.Warn("Account frozen", "user_id", req.UserID, "risk_score", profile.RiskScore, "reason", profile.FreezeReason)
		s.alerter.Alert(ctx, "Account frozen for review", map[string]interface{}{
			"user_id":    req.UserID,
			"risk_score": profile.RiskScore,
			"last_event": req.EventType,
		})
	}

	return &RiskEventResult{
		Event:       event,
		NewScore:    profile.RiskScore,
		Frozen:      profile.IsFrozen,
		NewlyFrozen: newlyFrozen,
	}, nil
}

// IsUserFrozen never returns an error. A failed lookup is resolved by the
// configured FrozenLookupPolicy.
func (s *RiskService) IsUserFrozen(ctx context.Context, userID uint) bool {
	profile, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		s.metrics.RecordFrozenCheckError()
		logger.Warn("Freeze lookup failed, applying lookup policy",
			"error", err,
			"user_id", userID,
			"treat_as_frozen", s.policy == TreatAsFrozen,
		)
		return s.policy == TreatAsFrozen
	}
	return profile != nil && profile.IsFrozen
}

// RequireNotFrozen guards money-moving operations
func (s *RiskService) RequireNotFrozen(ctx context.Context, userID uint) error {
	if s.IsUserFrozen(ctx, userID) {
		return errors.New(errors.ErrCodeAccountFrozen, "account frozen for review")
	}
	return nil
}

// ValidateGiftNotAbusive rejects self-gifts before any coin moves and
// records a self_gift_attempt event against the sender.
func (s *RiskService) ValidateGiftNotAbusive(ctx context.Context, senderID, receiverID uint, coins int64) error {
	if senderID == receiverID {
		_, err := s.AddRiskEvent(ctx, RiskEventRequest{
			UserID:    senderID,
			EventType: models.RiskEventSelfGiftAttempt,
			Severity:  SelfGiftSeverity,
			Details:   models.JSONMap{"receiver_id": receiverID, "coins": coins},
		})
		if err != nil {
			logger.Error("Failed to record self gift attempt", "error", err, "user_id", senderID)
		}
		return errors.New(errors.ErrCodeValidation, "you cannot send a gift to yourself")
	}
	if coins <= 0 {
		return errors.New(errors.ErrCodeValidation, "gift amount must be positive")
	}
	return nil
}

// Overview returns the frozen account count and the limit highest scores
func (s *RiskService) Overview(ctx context.Context, limit int) (*RiskOverview, error) {
	if limit <= 0 {
		limit = 10
	}

	frozen, err := s.repo.CountFrozen(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.repo.GetTopByScore(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &RiskOverview{FrozenUsers: frozen, TopProfiles: top}, nil
}

// Events lists a user's risk events, newest first
func (s *RiskService) Events(ctx context.Context, userID uint) ([]models.RiskEvent, error) {
	return s.repo.GetEvents(ctx, userID)
}
