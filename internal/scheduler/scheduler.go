package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/config"
	"github.com/praveen2025work/ticketapp-sub000/internal/service"
)

// Runner executes a named batch job.
type Runner interface {
	Run(ctx context.Context, job string) (service.JobResult, error)
}

// Locker guards a job across replicas. persistence.Redis satisfies it.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (bool, func(), error)
}

// Trigger fires a job once a day at Hour:Minute in the scheduler's location.
type Trigger struct {
	Job    string
	Hour   int
	Minute int
}

// Options configures a Scheduler. Locker is optional.
type Options struct {
	Location *time.Location
	Triggers []Trigger
	Locker   Locker
	LockTTL  time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

// Scheduler runs batch jobs at fixed daily times. A job that is still running
// when its next trigger fires is skipped.
type Scheduler struct {
	runner   Runner
	location *time.Location
	triggers []Trigger
	locker   Locker
	lockTTL  time.Duration
	logger   *zap.Logger
	now      func() time.Time

	running map[string]*sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New builds a scheduler.
func New(runner Runner, opts Options) *Scheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	running := make(map[string]*sync.Mutex, len(service.Jobs))
	for _, job := range service.Jobs {
		running[job] = &sync.Mutex{}
	}
	for _, t := range opts.Triggers {
		if _, ok := running[t.Job]; !ok {
			running[t.Job] = &sync.Mutex{}
		}
	}
	return &Scheduler{
		runner:   runner,
		location: loc,
		triggers: opts.Triggers,
		locker:   opts.Locker,
		lockTTL:  opts.LockTTL,
		logger:   logger,
		now:      now,
		running:  running,
	}
}

// TriggersFromConfig maps the configured HH:MM values onto the three jobs.
func TriggersFromConfig(cfg config.SchedulerConfig) ([]Trigger, error) {
	jobs := []struct {
		job   string
		value string
	}{
		{service.JobAge, cfg.AgeAt},
		{service.JobClassification, cfg.ClassificationAt},
		{service.JobEscalation, cfg.EscalationAt},
	}
	triggers := make([]Trigger, 0, len(jobs))
	for _, s := range jobs {
		hour, minute, err := config.ParseClock(s.value)
		if err != nil {
			return nil, fmt.Errorf("%s trigger: %w", s.job, err)
		}
		triggers = append(triggers, Trigger{Job: s.job, Hour: hour, Minute: minute})
	}
	return triggers, nil
}

// NextRun returns the first instant strictly after now at hour:minute in loc.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Start launches one loop per trigger. Stop cancels them.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	for _, t := range s.triggers {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
	s.logger.Info("scheduler started",
		zap.String("timezone", s.location.String()),
		zap.Int("triggers", len(s.triggers)))
}

// Stop cancels pending triggers and waits for running jobs to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, t Trigger) {
	defer s.wg.Done()
	for {
		next := NextRun(s.now(), t.Hour, t.Minute, s.location)
		s.logger.Debug("job scheduled", zap.String("job", t.Job), zap.Time("next_run", next))
		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if _, _, err := s.RunNow(ctx, t.Job); err != nil {
				s.logger.Error("scheduled job failed", zap.String("job", t.Job), zap.Error(err))
			}
		}
	}
}

// RunNow runs a job unless another run of it holds the lock; ran is false
// when the run was skipped.
func (s *Scheduler) RunNow(ctx context.Context, job string) (result service.JobResult, ran bool, err error) {
	mu, ok := s.running[job]
	if !ok {
		return s.runLocked(ctx, job)
	}
	if !mu.TryLock() {
		s.logger.Warn("job still running; skipping", zap.String("job", job))
		return result, false, nil
	}
	defer mu.Unlock()
	return s.runLocked(ctx, job)
}

func (s *Scheduler) runLocked(ctx context.Context, job string) (service.JobResult, bool, error) {
	if s.locker != nil {
		acquired, release, err := s.locker.TryLock(ctx, "job:"+job, s.lockTTL)
		if err != nil {
			return service.JobResult{}, false, fmt.Errorf("acquire %s lock: %w", job, err)
		}
		if !acquired {
			s.logger.Info("job locked by another instance; skipping", zap.String("job", job))
			return service.JobResult{}, false, nil
		}
		defer release()
	}

	started := s.now()
	result, err := s.runner.Run(ctx, job)
	if err != nil {
		return result, true, err
	}
	s.logger.Info("scheduled job completed",
		zap.String("job", job),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", s.now().Sub(started)))
	return result, true, nil
}
