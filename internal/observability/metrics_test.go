package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSubmission(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.SubmissionsTotal.WithLabelValues("single", "ok"))
	RecordSubmission("single", "ok")
	RecordSubmission("single", "ok")
	after := testutil.ToFloat64(DefaultMetrics.SubmissionsTotal.WithLabelValues("single", "ok"))
	assert.Equal(t, before+2, after)
}

func TestRecordStrategyMutation_Status(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.StrategyMutationsTotal.WithLabelValues("delete", "error"))
	RecordStrategyMutation("delete", errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.StrategyMutationsTotal.WithLabelValues("delete", "error")))
}

func TestUpdateLeaderboardGauges(t *testing.T) {
	UpdateLeaderboardGauges(3, 250)
	assert.Equal(t, 3.0, testutil.ToFloat64(DefaultMetrics.ExpandedRecords))
	assert.Equal(t, 250.0, testutil.ToFloat64(DefaultMetrics.LeaderboardRowsCached))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordHTTPRequest(http.MethodGet, "/api/strategies", http.StatusOK, 0.01)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "strategy_lab_http_requests_total"))
}
