package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestEconomyMetrics_RecordCoins(t *testing.T) {
	m := Economy()
	if Economy() != m {
		t.Fatal("Economy() returned a different registry on second call")
	}

	before := testutil.ToFloat64(m.coinsMoved.WithLabelValues("paid", "gift_sent", "debit"))
	m.RecordCoins("paid", "gift_sent", -250)
	m.RecordCoins("paid", "gift_sent", 0)
	after := testutil.ToFloat64(m.coinsMoved.WithLabelValues("paid", "gift_sent", "debit"))

	if after-before != 250 {
		t.Errorf("debit counter moved by %v, want 250", after-before)
	}
}

func TestEconomyMetrics_ObserveAndRisk(t *testing.T) {
	m := Economy()

	before := testutil.ToFloat64(m.operations.WithLabelValues("send_gift", "ok"))
	m.Observe("send_gift", "", 5*time.Millisecond)
	if got := testutil.ToFloat64(m.operations.WithLabelValues("send_gift", "ok")) - before; got != 1 {
		t.Errorf("operations counter moved by %v, want 1", got)
	}

	freezes := testutil.ToFloat64(m.freezes)
	m.RecordRiskEvent("self_gift_attempt", true)
	m.RecordRiskEvent("self_gift_attempt", false)
	if got := testutil.ToFloat64(m.freezes) - freezes; got != 1 {
		t.Errorf("freezes moved by %v, want 1", got)
	}
}

func TestEconomyMetrics_NilSafe(t *testing.T) {
	var m *EconomyMetrics
	m.Observe("op", "ok", time.Second)
	m.RecordCoins("paid", "x", 1)
	m.RecordPartialFailure("op", "step")
	m.RecordRiskEvent("x", true)
	m.RecordFrozenCheckError()
}
