// Package scheduler runs periodic background jobs for the worker process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/studyhub/study-hub/pkg/logger"
)

// Scheduler errors.
var (
	ErrSchedulerAlreadyRunning = errors.New("scheduler: already running")
	ErrSchedulerNotRunning     = errors.New("scheduler: not running")
	ErrJobNotFound             = errors.New("scheduler: job not found")
	ErrJobAlreadyRegistered    = errors.New("scheduler: job already registered")
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job is a unit of periodic work.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error
}

// Schedule decides when a job runs next.
type Schedule interface {
	Next(t time.Time) time.Time
	String() string
}

// JobResult describes one execution.
type JobResult struct {
	JobName   string
	StartedAt time.Time
	Duration  time.Duration
	Err       error
}

// JobObserver receives every JobResult, e.g. for metrics.
type JobObserver func(result JobResult)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

type scheduledJob struct {
	job      Job
	schedule Schedule
	nextRun  time.Time
	running  bool
	runCount int64
}

// Config configures a Scheduler.
type Config struct {
	Logger *logger.Logger

	// Tick is how often due jobs are checked. Default: 1s.
	Tick time.Duration

	// RunOnStart runs every job immediately when the scheduler starts.
	RunOnStart bool

	Observer JobObserver
}

// Scheduler runs registered jobs on their schedules. A job never overlaps
// with itself: a run that is still in progress when the job comes due again
// is skipped.
type Scheduler struct {
	mu      sync.Mutex
	config  Config
	log     *logger.Logger
	jobs    map[string]*scheduledJob
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	now     func() time.Time
}

// New creates a Scheduler.
func New(config Config) *Scheduler {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	if config.Tick <= 0 {
		config.Tick = time.Second
	}
	return &Scheduler{
		config: config,
		log:    config.Logger.With(logger.Component("scheduler")),
		jobs:   make(map[string]*scheduledJob),
		now:    time.Now,
	}
}

// Register adds a job. It must be called before Start.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, job.Name())
	}

	sj := &scheduledJob{job: job, schedule: schedule}
	if !s.config.RunOnStart {
		sj.nextRun = schedule.Next(s.now())
	}
	s.jobs[job.Name()] = sj

	s.log.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("schedule", schedule.String()),
	)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start begins the scheduling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.log.Info("scheduler started", logger.Int("jobs", len(s.jobs)))

	s.wg.Add(1)
	go s.loop(runCtx)
	return nil
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	s.runDue(ctx)

	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

// runDue launches every due job that is not already running.
func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sj := range s.jobs {
		if sj.running || now.Before(sj.nextRun) {
			continue
		}
		sj.running = true
		sj.nextRun = sj.schedule.Next(now)
		sj.runCount++

		s.wg.Add(1)
		go s.execute(ctx, sj)
	}
}

func (s *Scheduler) execute(ctx context.Context, sj *scheduledJob) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		sj.running = false
		s.mu.Unlock()
	}()

	s.run(ctx, sj.job)
}

func (s *Scheduler) run(ctx context.Context, job Job) JobResult {
	result := JobResult{JobName: job.Name(), StartedAt: s.now()}
	result.Err = job.Run(ctx)
	result.Duration = s.now().Sub(result.StartedAt)

	if result.Err != nil {
		s.log.Error("job failed",
			logger.String("job", result.JobName),
			logger.Duration("duration", result.Duration),
			logger.Err(result.Err),
		)
	} else {
		s.log.Debug("job completed",
			logger.String("job", result.JobName),
			logger.Duration("duration", result.Duration),
		)
	}

	if s.config.Observer != nil {
		s.config.Observer(result)
	}
	return result
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) (JobResult, error) {
	s.mu.Lock()
	sj, exists := s.jobs[jobName]
	s.mu.Unlock()

	if !exists {
		return JobResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
	}
	result := s.run(ctx, sj.job)
	return result, result.Err
}

// RunCount reports how many scheduled runs a job has started.
func (s *Scheduler) RunCount(jobName string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sj, ok := s.jobs[jobName]; ok {
		return sj.runCount
	}
	return 0
}
