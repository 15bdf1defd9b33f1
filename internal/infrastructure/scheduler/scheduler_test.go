package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/study-hub/pkg/logger"
)

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

func TestScheduler_RunOnStartAndStop(t *testing.T) {
	var runs atomic.Int32
	s := New(Config{Logger: logger.Nop(), Tick: 5 * time.Millisecond, RunOnStart: true})
	require.NoError(t, s.Register(funcJob{"sweep", func(context.Context) error {
		runs.Add(1)
		return nil
	}}, Every(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, int64(1), s.RunCount("sweep"))
	assert.Zero(t, s.RunCount("missing"))
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_DoesNotOverlapRuns(t *testing.T) {
	release := make(chan struct{})
	var active, maxActive atomic.Int32

	s := New(Config{Logger: logger.Nop(), Tick: time.Millisecond, RunOnStart: true})
	require.NoError(t, s.Register(funcJob{"slow", func(ctx context.Context) error {
		n := active.Add(1)
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		defer active.Add(-1)
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}}, Every(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(30 * time.Millisecond)
	close(release)
	require.NoError(t, s.Stop())

	assert.Equal(t, int32(1), maxActive.Load())
}

func TestScheduler_ObserverSeesFailures(t *testing.T) {
	var (
		mu      sync.Mutex
		results []JobResult
	)
	boom := errors.New("boom")
	s := New(Config{Logger: logger.Nop(), Observer: func(r JobResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}})
	require.NoError(t, s.Register(funcJob{"failing", func(context.Context) error { return boom }}, Every(time.Hour)))

	_, err := s.RunNow(context.Background(), "failing")

	assert.ErrorIs(t, err, boom)
	require.Len(t, results, 1)
	assert.Equal(t, "failing", results[0].JobName)
}

func TestScheduler_RegistrationErrors(t *testing.T) {
	s := New(Config{Logger: logger.Nop()})
	job := funcJob{"dup", func(context.Context) error { return nil }}

	require.NoError(t, s.Register(job, Every(time.Minute)))
	assert.ErrorIs(t, s.Register(job, Every(time.Minute)), ErrJobAlreadyRegistered)

	_, err := s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestEvery(t *testing.T) {
	at := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, at.Add(15*time.Minute), Every(15*time.Minute).Next(at))
	assert.Equal(t, time.Minute, Every(0).Interval)
	assert.Equal(t, "@every 15m0s", Every(15*time.Minute).String())
}

func TestScheduler_LogsSuccessAtDebugOnly(t *testing.T) {
	var buf bytes.Buffer
	s := New(Config{Logger: logger.New(logger.Options{Output: &buf, Level: logger.LevelInfo})})
	require.NoError(t, s.Register(funcJob{"pool_stats", func(context.Context) error { return nil }}, Every(30*time.Second)))
	require.NoError(t, s.Register(funcJob{"sweep", func(context.Context) error { return errors.New("db down") }}, Every(time.Hour)))

	_, err := s.RunNow(context.Background(), "pool_stats")
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "job completed")

	_, err = s.RunNow(context.Background(), "sweep")
	require.Error(t, err)
	assert.Contains(t, buf.String(), "job failed")
}
