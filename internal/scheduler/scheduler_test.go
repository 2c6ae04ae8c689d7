package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dinger/backend/pkg/logger"
)

type countingJob struct {
	name     string
	failures int32 // fail this many times before succeeding
	calls    atomic.Int32
	block    chan struct{}
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return "0 0 6 * * *" }

func (j *countingJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= j.failures {
		return errors.New("transient")
	}
	return nil
}

func newTestScheduler(retries int) *Scheduler {
	return New(logger.Nop(), WithRetry(retries, time.Millisecond))
}

func TestAddJob(t *testing.T) {
	s := newTestScheduler(0)
	require.NoError(t, s.AddJob(&countingJob{name: "a"}))
	assert.Error(t, s.AddJob(&countingJob{name: "a"}), "duplicate name")
	assert.Equal(t, []string{"a"}, s.Jobs())
}

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := newTestScheduler(0)
	err := s.AddJob(&badScheduleJob{})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

type badScheduleJob struct{}

func (badScheduleJob) Name() string                  { return "bad" }
func (badScheduleJob) Schedule() string              { return "not a cron" }
func (badScheduleJob) Run(ctx context.Context) error { return nil }

func TestRunJob_RetriesThenSucceeds(t *testing.T) {
	s := newTestScheduler(3)
	job := &countingJob{name: "flaky", failures: 2}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("flaky"))
	s.Wait()

	assert.Equal(t, int32(3), job.calls.Load())
	history, err := s.History("flaky", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, 3, history[0].Attempts)
	assert.Equal(t, TriggerManual, history[0].Trigger)
}

func TestRunJob_FailsAfterRetries(t *testing.T) {
	s := newTestScheduler(1)
	job := &countingJob{name: "broken", failures: 100}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("broken"))
	s.Wait()

	assert.Equal(t, int32(2), job.calls.Load())
	stats := s.Stats()["broken"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 0.0, stats.SuccessRate)
	require.NotNil(t, stats.LastRun)
	assert.Equal(t, "transient", stats.LastRun.Error)
}

func TestRunJob_NotFound(t *testing.T) {
	s := newTestScheduler(0)
	assert.ErrorIs(t, s.RunJob("missing"), ErrJobNotFound)
	_, err := s.History("missing", 1)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunJob_AlreadyRunning(t *testing.T) {
	s := newTestScheduler(0)
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.RunJob("slow"))
	assert.ErrorIs(t, s.RunJob("slow"), ErrJobRunning)
	assert.True(t, s.Stats()["slow"].Running)

	close(job.block)
	s.Wait()
	assert.False(t, s.Stats()["slow"].Running)
	require.NoError(t, s.RunJob("slow"))
	s.Wait()
}

func TestStop_CancelsRunningJob(t *testing.T) {
	s := newTestScheduler(3)
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job))
	s.Start()

	require.NoError(t, s.RunJob("slow"))
	s.Stop()

	assert.Equal(t, int32(1), job.calls.Load(), "no retry after cancel")
	history, err := s.History("slow", 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
}

func TestRemoveJob(t *testing.T) {
	s := newTestScheduler(0)
	require.NoError(t, s.AddJob(&countingJob{name: "a"}))
	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.Jobs())
	assert.ErrorIs(t, s.RemoveJob("a"), ErrJobNotFound)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())
	assert.Empty(t, h.Latest(5))

	for i := 0; i < historySize+10; i++ {
		h.Add(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historySize)
	assert.Len(t, h.Latest(3), 3)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
	assert.Equal(t, historySize/2, h.FailureCount())
}

func TestStats_NextRunBeforeStart(t *testing.T) {
	s := newTestScheduler(0)
	require.NoError(t, s.AddJob(&countingJob{name: "a"}))

	st, ok := s.Stats()["a"]
	require.True(t, ok)
	require.NotNil(t, st.NextRun)
	assert.True(t, st.NextRun.After(time.Now()))
	assert.Equal(t, 6, st.NextRun.Hour())
	assert.Nil(t, st.LastRun)
}
