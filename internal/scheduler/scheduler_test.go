package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveen2025work/ticketapp-sub000/internal/config"
	"github.com/praveen2025work/ticketapp-sub000/internal/service"
)

func TestNextRun(t *testing.T) {
	loc := time.UTC
	at := func(h, m int) time.Time { return time.Date(2026, 5, 10, h, m, 0, 0, loc) }

	assert.Equal(t, time.Date(2026, 5, 11, 1, 30, 0, 0, loc), NextRun(at(2, 0), 1, 30, loc))
	assert.Equal(t, at(8, 0), NextRun(at(7, 59), 8, 0, loc))
	// exactly on the trigger schedules the next day
	assert.Equal(t, time.Date(2026, 5, 11, 8, 0, 0, 0, loc), NextRun(at(8, 0), 8, 0, loc))
}

func TestNextRun_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC is 05:00 the next day in Tokyo
	now := time.Date(2026, 5, 10, 20, 0, 0, 0, time.UTC)

	next := NextRun(now, 0, 5, tokyo)
	assert.Equal(t, time.Date(2026, 5, 12, 0, 5, 0, 0, tokyo), next)
}

func TestTriggersFromConfig(t *testing.T) {
	triggers, err := TriggersFromConfig(config.SchedulerConfig{AgeAt: "00:05", ClassificationAt: "00:15", EscalationAt: "08:00"})
	require.NoError(t, err)
	assert.Equal(t, []Trigger{
		{Job: service.JobAge, Hour: 0, Minute: 5},
		{Job: service.JobClassification, Hour: 0, Minute: 15},
		{Job: service.JobEscalation, Hour: 8, Minute: 0},
	}, triggers)

	_, err = TriggersFromConfig(config.SchedulerConfig{AgeAt: "25:00", ClassificationAt: "00:15", EscalationAt: "08:00"})
	assert.Error(t, err)
}

type blockingRunner struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func (r *blockingRunner) Run(_ context.Context, job string) (service.JobResult, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
		<-r.release
	}
	return service.JobResult{Job: job, Updated: 1}, nil
}

func TestRunNow_SkipsOverlappingRun(t *testing.T) {
	runner := &blockingRunner{started: make(chan struct{}), release: make(chan struct{})}
	s := New(runner, Options{Triggers: []Trigger{{Job: service.JobAge}}})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ran, err := s.RunNow(context.Background(), service.JobAge)
		assert.NoError(t, err)
		assert.True(t, ran)
	}()
	<-runner.started

	_, ran, err := s.RunNow(context.Background(), service.JobAge)
	require.NoError(t, err)
	assert.False(t, ran)

	close(runner.release)
	<-done
	assert.Equal(t, 1, runner.calls)
}

type stubLocker struct {
	acquire  bool
	err      error
	released int
}

func (l *stubLocker) TryLock(context.Context, string, time.Duration) (bool, func(), error) {
	return l.acquire, func() { l.released++ }, l.err
}

func TestRunNow_HonorsDistributedLock(t *testing.T) {
	runner := &blockingRunner{}

	held := &stubLocker{acquire: false}
	s := New(runner, Options{Triggers: []Trigger{{Job: service.JobEscalation}}, Locker: held})
	_, ran, err := s.RunNow(context.Background(), service.JobEscalation)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, runner.calls)

	free := &stubLocker{acquire: true}
	s = New(runner, Options{Triggers: []Trigger{{Job: service.JobEscalation}}, Locker: free})
	result, ran, err := s.RunNow(context.Background(), service.JobEscalation)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, free.released)

	broken := &stubLocker{err: errors.New("redis down")}
	s = New(runner, Options{Triggers: []Trigger{{Job: service.JobEscalation}}, Locker: broken})
	_, _, err = s.RunNow(context.Background(), service.JobEscalation)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	runner := &blockingRunner{}
	s := New(runner, Options{Triggers: []Trigger{{Job: service.JobAge, Hour: 3}}})
	s.Start(context.Background())
	s.Stop()
	assert.Zero(t, runner.calls)
}
