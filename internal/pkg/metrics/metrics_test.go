package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.AssetOperation("allocated", OutcomeOK)
	m.AssetOperation("allocated", OutcomeOK)
	m.AssetOperation("returned", OutcomeRejected)
	m.LoanOperation("issue", OutcomeOK)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.assetOps.WithLabelValues("allocated", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assetOps.WithLabelValues("returned", OutcomeRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loanOps.WithLabelValues("issue", OutcomeOK)))
}

func TestGauges(t *testing.T) {
	m := New()

	m.SetOverdueLoans(4)
	m.SetConsistencyMismatches(1)
	m.JobFinished("overdue_scan", time.Now().Add(-time.Second))

	assert.Equal(t, 4.0, testutil.ToFloat64(m.overdueLoans))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mismatches))
	assert.Greater(t, testutil.ToFloat64(m.jobLastRunSec.WithLabelValues("overdue_scan")), 0.0)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.AssetOperation("allocated", OutcomeOK)
		m.LoanOperation("issue", OutcomeError)
		m.SetOverdueLoans(1)
		m.SetConsistencyMismatches(1)
		m.JobFinished("audit", time.Now())
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.SetOverdueLoans(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "schoolhub_library_overdue_loans 2")
}
