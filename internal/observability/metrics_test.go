package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("/", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/", "GET", 200, 5*time.Millisecond)
	m.RecordSessionEvent("session_ended", "idle")
	m.RecordGuardDecision("redirect_login")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionEvents.WithLabelValues("session_ended", "idle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardDecisions.WithLabelValues("redirect_login")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordSessionEvent("k", "r")
	m.RecordGuardDecision("allow")
}
