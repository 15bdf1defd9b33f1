package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-hub/internal/application/command"
	"github.com/studyhub/study-hub/internal/application/query"
	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/internal/domain/leaderboard"
	"github.com/studyhub/study-hub/internal/domain/shared"
	"github.com/studyhub/study-hub/internal/domain/study"
	"github.com/studyhub/study-hub/pkg/logger"
	"github.com/studyhub/study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUBS
// ══════════════════════════════════════════════════════════════════════════════

type stubAllBadges struct {
	defs []badge.Definition
	err  error
}

func (s stubAllBadges) Handle(context.Context) ([]badge.Definition, error) { return s.defs, s.err }

type stubUserBadges struct {
	got *query.GetUserBadgesQuery
	err error
}

func (s *stubUserBadges) Handle(_ context.Context, q query.GetUserBadgesQuery) ([]badge.BadgeWithProgress, error) {
	s.got = &q
	return []badge.BadgeWithProgress{}, s.err
}

type stubLeaderboards struct {
	got *query.GetLeaderboardsQuery
	err error
}

func (s *stubLeaderboards) Handle(_ context.Context, q query.GetLeaderboardsQuery) (*query.LeaderboardsResult, error) {
	s.got = &q
	if s.err != nil {
		return nil, s.err
	}
	return &query.LeaderboardsResult{
		Global: leaderboard.Pair{StudyTime: []leaderboard.Entry{{UserID: q.UserID, MetricValue: 30, Rank: 1, IsSelf: true}}},
	}, nil
}

type stubAward struct{ err error }

func (s stubAward) Handle(_ context.Context, cmd command.AwardBadgeCommand) (*badge.UserBadge, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &badge.UserBadge{ID: "a1", UserID: cmd.UserID, BadgeID: cmd.BadgeID}, nil
}

type stubCheck struct{}

func (stubCheck) Handle(context.Context, command.CheckAndAwardBadgesCommand) ([]badge.UserBadge, error) {
	return nil, nil
}

type stubComplete struct{ got *command.CompleteSessionCommand }

func (s *stubComplete) Handle(_ context.Context, cmd command.CompleteSessionCommand) (*study.Session, error) {
	s.got = &cmd
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return &study.Session{ID: "s1", UserID: cmd.UserID, CompletedDate: timeutil.Date(2024, time.June, 10), DurationMinutes: cmd.DurationMinutes}, nil
}

type testServer struct {
	*Server
	userBadges   *stubUserBadges
	leaderboards *stubLeaderboards
	complete     *stubComplete
}

func newTestServer(t *testing.T, mutate func(*Dependencies)) *testServer {
	t.Helper()
	ts := &testServer{
		userBadges:   &stubUserBadges{},
		leaderboards: &stubLeaderboards{},
		complete:     &stubComplete{},
	}
	deps := Dependencies{
		GetAllBadges:    stubAllBadges{defs: []badge.Definition{{ID: "first_session", Name: "First Steps", CriteriaType: badge.CriteriaSessionCount, Threshold: 1}}},
		GetUserBadges:   ts.userBadges,
		GetLeaderboards: ts.leaderboards,
		AwardBadge:      stubAward{},
		CheckBadges:     stubCheck{},
		CompleteSession: ts.complete,
		Logger:          logger.Nop(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	ts.Server = NewServer(DefaultConfig(), deps)
	return ts
}

func (ts *testServer) do(method, target, body string) (*httptest.ResponseRecorder, JSONResponse) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)

	var resp JSONResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_GetAllBadges(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, resp := ts.do(http.MethodGet, "/api/badges", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 1, resp.Meta.TotalCount)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_GetUserBadges_ParsesProgressFlag(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, _ := ts.do(http.MethodGet, "/api/users/u1/badges?progress=true", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, ts.userBadges.got)
	assert.Equal(t, query.GetUserBadgesQuery{UserID: "u1", IncludeProgress: true}, *ts.userBadges.got)
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"already earned", badge.ErrAlreadyEarned, http.StatusConflict, "already_exists"},
		{"unknown badge", badge.ErrBadgeNotFound, http.StatusNotFound, "not_found"},
		{"invalid user", shared.ErrInvalidUserID, http.StatusBadRequest, "validation_error"},
		{"store failure", shared.StoreError("badge", "InsertEarned", errors.New("boom")), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, func(d *Dependencies) { d.AwardBadge = stubAward{err: tt.err} })

			rec, resp := ts.do(http.MethodPost, "/api/users/u1/badges/first_session", "")

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantKind, resp.Error.Code)
		})
	}
}

func TestServer_AwardBadge_Created(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, resp := ts.do(http.MethodPost, "/api/users/u1/badges/first_session", "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
}

func TestServer_CheckBadges_ReturnsEmptyList(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, _ := ts.do(http.MethodPost, "/api/users/u1/badges/check", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestServer_CompleteSession(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid", `{"duration_minutes": 45}`, http.StatusCreated},
		{"zero duration", `{"duration_minutes": 0}`, http.StatusBadRequest},
		{"malformed", `{"duration_minutes":`, http.StatusBadRequest},
		{"empty body", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			rec, _ := ts.do(http.MethodPost, "/api/users/u1/sessions", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestServer_CompleteSession_PassesCompletedAt(t *testing.T) {
	ts := newTestServer(t, nil)

	rec, _ := ts.do(http.MethodPost, "/api/users/u1/sessions", `{"duration_minutes": 30, "completed_at": "2024-06-10T08:00:00Z"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, ts.complete.got)
	assert.Equal(t, time.Date(2024, time.June, 10, 8, 0, 0, 0, time.UTC), ts.complete.got.CompletedAt)
	assert.Contains(t, rec.Body.String(), `"completed_date":"2024-06-10"`)
}

func TestServer_GetLeaderboards_Limit(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantLimit int
	}{
		{"default limit", "/api/users/u1/leaderboards", http.StatusOK, 10},
		{"explicit limit", "/api/users/u1/leaderboards?limit=3", http.StatusOK, 3},
		{"non numeric", "/api/users/u1/leaderboards?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)
			rec, _ := ts.do(http.MethodGet, tt.target, "")

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantLimit > 0 {
				require.NotNil(t, ts.leaderboards.got)
				assert.Equal(t, tt.wantLimit, ts.leaderboards.got.Limit)
			}
		})
	}
}

func TestServer_GetLeaderboards_InvalidLimitFromEngine(t *testing.T) {
	ts := newTestServer(t, func(d *Dependencies) {
		d.GetLeaderboards = &stubLeaderboards{err: leaderboard.ErrInvalidLimit}
	})

	rec, _ := ts.do(http.MethodGet, "/api/users/u1/leaderboards?limit=0", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type panicking struct{}

func (panicking) Handle(context.Context) ([]badge.Definition, error) { panic("kaboom") }

func TestServer_RecoversFromPanic(t *testing.T) {
	ts := newTestServer(t, func(d *Dependencies) { d.GetAllBadges = panicking{} })

	rec, resp := ts.do(http.MethodGet, "/api/badges", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "internal_error", resp.Error.Code)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	metricsHit := false
	ts := newTestServer(t, func(d *Dependencies) {
		d.Metrics = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { metricsHit = true })
	})

	rec, resp := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, _ = ts.do(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, metricsHit)
}

func TestServer_PropagatesRequestID(t *testing.T) {
	ts := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/badges", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()

	ts.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"request_id":"req-123"`)
}
