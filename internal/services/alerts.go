package services

import (
	"context"
	"time"

	"github.com/mroshb/coin_economy/internal/metrics"
	"github.com/mroshb/coin_economy/pkg/errors"
	"github.com/mroshb/coin_economy/pkg/logger"
)

// Alerter delivers operator alerts. Implementations must not block the
// calling operation on delivery failures.
type Alerter interface {
	Alert(ctx context.Context, subject string, fields map[string]interface{})
}

// NopAlerter drops every alert.
type NopAlerter struct{}

func (NopAlerter) Alert(context.Context, string, map[string]interface{}) {}

// reportPartialFailure is called when a step fails after money already
// moved. The ledger is correct; the derived row named by step is missing.
func reportPartialFailure(ctx context.Context, alerter Alerter, m *metrics.EconomyMetrics, operation, step string, err error, fields map[string]interface{}) {
	keysAndValues := []interface{}{"operation", operation, "step", step, "error", err}
	for k, v := range fields {
		keysAndValues = append(keysAndValues, k, v)
	}
	logger.Error("Partial failure after money moved, reconciliation required", keysAndValues...)

	m.RecordPartialFailure(operation, step)

	alertFields := map[string]interface{}{"operation": operation, "step": step, "error": err.Error()}
	for k, v := range fields {
		alertFields[k] = v
	}
	alerter.Alert(ctx, "Partial failure: reconciliation required", alertFields)
}

// observe records an operation outcome; use it with a named error return.
func observe(m *metrics.EconomyMetrics, operation string, start time.Time, err error) {
	m.Observe(operation, errors.CodeOf(err), time.Since(start))
}
