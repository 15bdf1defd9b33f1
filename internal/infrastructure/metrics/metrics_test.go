package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwardCounters(t *testing.T) {
	m := New("test")

	m.BadgeAwarded("first")
	m.BadgeAwarded("first")
	m.AwardConflict("first")
	m.AwardFailed("hour")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BadgeAwards.WithLabelValues("first", "awarded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BadgeAwards.WithLabelValues("first", "already_exists")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BadgeAwards.WithLabelValues("hour", "failed")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.BadgeAwarded("x")
		m.ObserveLeaderboardBuild(time.Millisecond, errors.New("boom"))
		m.ObserveRequest("GET /health", 200, time.Millisecond)
		m.UserSwept(nil)
		m.ProfileCacheRead(true)
		m.SetPoolStats(1, 1, 0)
		m.ObserveJob("pool_stats", time.Millisecond, nil)
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("test")
	m.ObserveRequest("GET /api/badges", http.StatusOK, 5*time.Millisecond)
	m.UserSwept(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "studyhub_test_http_requests_total")
	assert.Contains(t, body, "studyhub_test_swept_users_total")
}

func TestObserveJob(t *testing.T) {
	m := New("test")

	m.ObserveJob("sweep_active_users", 2*time.Second, nil)
	m.ObserveJob("sweep_active_users", time.Second, errors.New("db down"))
	m.ObserveJob("pool_stats", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("sweep_active_users", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("sweep_active_users", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("pool_stats", "ok")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.JobDuration))
}
