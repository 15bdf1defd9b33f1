// Package metrics holds the Prometheus collectors for the service.
// Every method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studyhub"

// Metrics holds Prometheus metrics for a service.
type Metrics struct {
	registry *prometheus.Registry

	BadgeAwards       *prometheus.CounterVec
	LeaderboardBuild  *prometheus.HistogramVec
	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	EventHandlers     *prometheus.CounterVec
	SweptUsers        *prometheus.CounterVec
	DBConnPoolStats   *prometheus.GaugeVec
	ProfileCacheReads *prometheus.CounterVec
	JobRuns           *prometheus.CounterVec
	JobDuration       *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry for serviceName.
func New(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BadgeAwards: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "badge_awards_total",
				Help:      "Badge award attempts by outcome",
			},
			[]string{"badge_id", "outcome"},
		),
		LeaderboardBuild: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "leaderboard_build_duration_seconds",
				Help:      "Time to build the four leaderboards",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		RequestCounter: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		EventHandlers: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "event_handler_runs_total",
				Help:      "Event handler executions by event type and result",
			},
			[]string{"event_type", "result"},
		),
		SweptUsers: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "swept_users_total",
				Help:      "Users processed by the bulk badge sweep",
			},
			[]string{"result"},
		),
		DBConnPoolStats: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"stat"},
		),
		ProfileCacheReads: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "profile_cache_reads_total",
				Help:      "Display profile cache lookups by result",
			},
			[]string{"result"},
		),
		JobRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "job_runs_total",
				Help:      "Scheduled job runs by job and result",
			},
			[]string{"job", "result"},
		),
		JobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: serviceName,
				Name:      "job_duration_seconds",
				Help:      "Scheduled job run duration in seconds",
				Buckets:   []float64{.01, .05, .25, 1, 5, 30, 120, 600},
			},
			[]string{"job"},
		),
	}
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// BadgeAwarded counts a newly created award.
func (m *Metrics) BadgeAwarded(badgeID string) { m.award(badgeID, "awarded") }

// AwardConflict counts an award that already existed.
func (m *Metrics) AwardConflict(badgeID string) { m.award(badgeID, "already_exists") }

// AwardFailed counts an award that failed in the store.
func (m *Metrics) AwardFailed(badgeID string) { m.award(badgeID, "failed") }

func (m *Metrics) award(badgeID, outcome string) {
	if m == nil {
		return
	}
	m.BadgeAwards.WithLabelValues(badgeID, outcome).Inc()
}

// ObserveLeaderboardBuild records one leaderboard build.
func (m *Metrics) ObserveLeaderboardBuild(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.LeaderboardBuild.WithLabelValues(statusLabel(err)).Observe(d.Seconds())
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestCounter.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// ObserveEventHandler records one event handler execution.
func (m *Metrics) ObserveEventHandler(eventType string, _ time.Duration, err error) {
	if m == nil {
		return
	}
	m.EventHandlers.WithLabelValues(eventType, statusLabel(err)).Inc()
}

// UserSwept records the outcome of sweeping one user.
func (m *Metrics) UserSwept(err error) {
	if m == nil {
		return
	}
	m.SweptUsers.WithLabelValues(statusLabel(err)).Inc()
}

// ProfileCacheRead records a cache hit or miss.
func (m *Metrics) ProfileCacheRead(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ProfileCacheReads.WithLabelValues(result).Inc()
}

// SetPoolStats publishes connection pool gauges.
func (m *Metrics) SetPoolStats(total, idle, acquired int32) {
	if m == nil {
		return
	}
	m.DBConnPoolStats.WithLabelValues("total").Set(float64(total))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(idle))
	m.DBConnPoolStats.WithLabelValues("acquired").Set(float64(acquired))
}

// ObserveJob records one scheduled job run.
func (m *Metrics) ObserveJob(job string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.JobRuns.WithLabelValues(job, statusLabel(err)).Inc()
	m.JobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
