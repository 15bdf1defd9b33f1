// Package jobs contains the worker's scheduled jobs.
package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/studyhub/study-hub/internal/application/command"
	"github.com/studyhub/study-hub/internal/domain/badge"
	"github.com/studyhub/study-hub/pkg/logger"
	"github.com/studyhub/study-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SWEEP ACTIVE USERS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ActiveUserLister lists users with sessions on or after since.
type ActiveUserLister interface {
	ListActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}

// BadgeSweeper awards every newly earnable badge for one user.
type BadgeSweeper interface {
	Handle(ctx context.Context, cmd command.CheckAndAwardBadgesCommand) ([]badge.UserBadge, error)
}

// SweepObserver is told the outcome of every per-user sweep.
type SweepObserver interface {
	UserSwept(err error)
}

// SweepConfig configures SweepActiveUsersJob.
type SweepConfig struct {
	// ActiveWindow limits the sweep to users with sessions this recent.
	ActiveWindow time.Duration
	// Concurrency bounds parallel per-user sweeps.
	Concurrency int
	// UserTimeout bounds one user's sweep.
	UserTimeout time.Duration
}

// DefaultSweepConfig returns sensible defaults.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		ActiveWindow: 48 * time.Hour,
		Concurrency:  4,
		UserTimeout:  30 * time.Second,
	}
}

// SweepStats summarises one run.
type SweepStats struct {
	Users   int
	Awarded int
	Failed  int
}

// SweepActiveUsersJob runs the badge sweep for every recently active user.
// A failure for one user is logged and counted; it never aborts the run.
type SweepActiveUsersJob struct {
	users    ActiveUserLister
	sweeper  BadgeSweeper
	retrier  *retry.Retrier
	observer SweepObserver
	config   SweepConfig
	log      *logger.Logger
	now      func() time.Time

	lastStats atomic.Pointer[SweepStats]
}

// NewSweepActiveUsersJob creates the job. retrier and observer may be nil.
func NewSweepActiveUsersJob(
	users ActiveUserLister,
	sweeper BadgeSweeper,
	retrier *retry.Retrier,
	observer SweepObserver,
	config SweepConfig,
	log *logger.Logger,
) *SweepActiveUsersJob {
	def := DefaultSweepConfig()
	if config.ActiveWindow <= 0 {
		config.ActiveWindow = def.ActiveWindow
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	if config.UserTimeout <= 0 {
		config.UserTimeout = def.UserTimeout
	}
	if retrier == nil {
		retrier = retry.New(retry.WithMaxAttempts(1))
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SweepActiveUsersJob{
		users:    users,
		sweeper:  sweeper,
		retrier:  retrier,
		observer: observer,
		config:   config,
		log:      log.With(logger.Component("sweep_active_users")),
		now:      time.Now,
	}
}

// Name implements scheduler.Job.
func (j *SweepActiveUsersJob) Name() string { return "sweep_active_users" }

// Run implements scheduler.Job.
func (j *SweepActiveUsersJob) Run(ctx context.Context) error {
	since := j.now().Add(-j.config.ActiveWindow)

	userIDs, err := retry.DoWithData(ctx, j.retrier, func(ctx context.Context) ([]string, error) {
		return j.users.ListActiveUsers(ctx, since)
	})
	if err != nil {
		return err
	}

	var awarded, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.config.Concurrency)
	for _, userID := range userIDs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			n, err := j.sweepUser(gctx, userID)
			if j.observer != nil {
				j.observer.UserSwept(err)
			}
			// Awards made before a timeout are already stored.
			awarded.Add(int64(n))
			if err != nil {
				failed.Add(1)
				j.log.Error("user sweep failed", logger.UserID(userID), logger.Int("awarded", n), logger.Err(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := SweepStats{Users: len(userIDs), Awarded: int(awarded.Load()), Failed: int(failed.Load())}
	j.lastStats.Store(&stats)

	j.log.Info("sweep finished",
		logger.Int("users", stats.Users),
		logger.Int("awarded", stats.Awarded),
		logger.Int("failed", stats.Failed),
	)
	return ctx.Err()
}

func (j *SweepActiveUsersJob) sweepUser(ctx context.Context, userID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, j.config.UserTimeout)
	defer cancel()

	awarded, err := retry.DoWithData(ctx, j.retrier, func(ctx context.Context) ([]badge.UserBadge, error) {
		return j.sweeper.Handle(ctx, command.CheckAndAwardBadgesCommand{UserID: userID})
	})
	return len(awarded), err
}

// LastStats returns the stats of the most recent run, or nil.
func (j *SweepActiveUsersJob) LastStats() *SweepStats {
	return j.lastStats.Load()
}

// ══════════════════════════════════════════════════════════════════════════════
// POOL STATS JOB
// ══════════════════════════════════════════════════════════════════════════════

// PoolStatsFunc samples connection pool gauges.
type PoolStatsFunc func()

// PoolStatsJob periodically samples pool statistics into metrics.
type PoolStatsJob struct {
	sample PoolStatsFunc
}

// NewPoolStatsJob creates the job.
func NewPoolStatsJob(sample PoolStatsFunc) *PoolStatsJob {
	return &PoolStatsJob{sample: sample}
}

// Name implements scheduler.Job.
func (j *PoolStatsJob) Name() string { return "pool_stats" }

// Run implements scheduler.Job.
func (j *PoolStatsJob) Run(context.Context) error {
	j.sample()
	return nil
}
