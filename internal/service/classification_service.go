package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/events"
	"github.com/praveen2025work/ticketapp-sub000/internal/observability"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository"
	apperrors "github.com/praveen2025work/ticketapp-sub000/pkg/util/errorutil"
)

// Job names accepted by Run.
const (
	JobAge            = "age"
	JobClassification = "classification"
	JobEscalation     = "escalation"
)

// Jobs lists the batch jobs in their daily order.
var Jobs = []string{JobAge, JobClassification, JobEscalation}

// JobResult summarizes one batch run.
type JobResult struct {
	Job     string `json:"job"`
	Scanned int    `json:"scanned"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
}

// ClassificationService recomputes ticket age and A/R/P classification and
// raises escalation signals. A failing ticket is logged and skipped.
type ClassificationService struct {
	store      repository.Store
	locks      *KeyedMutex
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        Clock
}

// ClassificationDependencies bundles collaborators for the batch jobs.
type ClassificationDependencies struct {
	Store      repository.Store
	Locks      *KeyedMutex
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      Clock
}

// NewClassificationService constructs the service.
func NewClassificationService(deps ClassificationDependencies) *ClassificationService {
	locks := deps.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &ClassificationService{
		store:      deps.Store,
		locks:      locks,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Clock),
	}
}

// Run executes a job by name.
func (s *ClassificationService) Run(ctx context.Context, job string) (JobResult, error) {
	switch job {
	case JobAge:
		return s.RunAgeRecompute(ctx)
	case JobClassification:
		return s.RunClassificationRecompute(ctx)
	case JobEscalation:
		return s.RunEscalationScan(ctx)
	}
	return JobResult{}, apperrors.NewValidationError("unknown job", map[string]any{"job": job, "allowed": Jobs})
}

// RunAgeRecompute refreshes ticketAgeDays on every open ticket whose age moved.
func (s *ClassificationService) RunAgeRecompute(ctx context.Context) (JobResult, error) {
	now := s.now()
	return s.forEachOpen(ctx, JobAge, func(t *domain.Ticket) bool {
		return domain.AgeInDays(t.CreatedAt, now) != t.TicketAgeDays
	}, func(ctx context.Context, repos repository.Repositories, t *domain.Ticket) (bool, error) {
		age := domain.AgeInDays(t.CreatedAt, now)
		if age == t.TicketAgeDays {
			return false, nil
		}
		t.TicketAgeDays = age
		if err := repos.Tickets.Update(ctx, t); err != nil {
			return false, err
		}
		return true, nil
	})
}

// RunClassificationRecompute reclassifies open tickets from their stored age,
// writing only tickets whose tier changed. Re-running is a no-op.
func (s *ClassificationService) RunClassificationRecompute(ctx context.Context) (JobResult, error) {
	now := s.now()
	return s.forEachOpen(ctx, JobClassification, func(t *domain.Ticket) bool {
		return domain.ClassifyAge(t.TicketAgeDays) != t.Classification
	}, func(ctx context.Context, repos repository.Repositories, t *domain.Ticket) (bool, error) {
		next := domain.ClassifyAge(t.TicketAgeDays)
		if next == t.Classification {
			return false, nil
		}
		prev := t.Classification
		t.Classification = next
		t.RagStatus = domain.RagFor(next)
		t.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, t); err != nil {
			return false, err
		}
		entry := domain.NewFieldAuditEntry(t.ID, domain.AuditFieldUpdated, domain.SystemActor,
			"classification", string(prev), string(next))
		if err := appendAudit(ctx, repos, entry, now); err != nil {
			return false, err
		}
		return true, nil
	})
}

// forEachOpen scans open tickets and, for those needing work, runs write in a
// per-ticket transaction on a freshly locked copy.
func (s *ClassificationService) forEachOpen(
	ctx context.Context,
	job string,
	needsWrite func(*domain.Ticket) bool,
	write func(context.Context, repository.Repositories, *domain.Ticket) (bool, error),
) (result JobResult, err error) {
	ctx, span := startSpan(ctx, "ClassificationService."+job, attribute.String("job", job))
	defer func() { endSpan(span, err) }()

	result.Job = job
	open, err := s.store.Repos().Tickets.ListOpen(ctx)
	if err != nil {
		return result, fmt.Errorf("%s: list open tickets: %w", job, err)
	}
	result.Scanned = len(open)

	for i := range open {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		candidate := &open[i]
		if !needsWrite(candidate) {
			continue
		}
		updated, err := s.writeOne(ctx, candidate.ID, write)
		switch {
		case err != nil:
			result.Failed++
			s.logger.Warn("job ticket update failed",
				zap.String("job", job),
				zap.String("ticket_id", candidate.ID),
				zap.Error(err))
		case updated:
			result.Updated++
		}
	}

	s.metrics.RecordJob(job, result.Failed)
	s.logger.Info("job finished",
		zap.String("job", job),
		zap.Int("scanned", result.Scanned),
		zap.Int("updated", result.Updated),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *ClassificationService) writeOne(ctx context.Context, id string, write func(context.Context, repository.Repositories, *domain.Ticket) (bool, error)) (updated bool, err error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Tickets.GetForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !current.IsOpen() {
			return nil
		}
		updated, err = write(ctx, repos, current)
		return err
	})
	if err != nil {
		return false, err
	}
	return updated, nil
}

// RunEscalationScan counts open R and P tickets and emits one signal per
// non-empty tier. It writes nothing.
func (s *ClassificationService) RunEscalationScan(ctx context.Context) (result JobResult, err error) {
	ctx, span := startSpan(ctx, "ClassificationService."+JobEscalation, attribute.String("job", JobEscalation))
	defer func() { endSpan(span, err) }()

	result.Job = JobEscalation
	open, err := s.store.Repos().Tickets.ListOpen(ctx)
	if err != nil {
		return result, fmt.Errorf("%s: list open tickets: %w", JobEscalation, err)
	}
	result.Scanned = len(open)

	tiers := map[domain.Classification][]string{}
	for _, t := range open {
		if t.Classification == domain.ClassificationR || t.Classification == domain.ClassificationP {
			tiers[t.Classification] = append(tiers[t.Classification], t.ID)
		}
	}

	now := s.now()
	for _, tier := range []domain.Classification{domain.ClassificationR, domain.ClassificationP} {
		ids := tiers[tier]
		if len(ids) == 0 {
			continue
		}
		severity := events.SeverityWarning
		log := s.logger.Warn
		if tier == domain.ClassificationP {
			severity = events.SeverityCritical
			log = s.logger.Error
		}
		log("escalation raised",
			zap.String("classification", string(tier)),
			zap.String("severity", string(severity)),
			zap.Int("count", len(ids)))
		s.metrics.RecordEscalation(string(severity))
		publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventEscalationRaised, "", domain.SystemActor, now,
			events.EscalationRaisedPayload{Classification: tier, Severity: severity, Count: len(ids), TicketIDs: ids}))
	}

	s.metrics.RecordJob(JobEscalation, 0)
	s.logger.Info("job finished", zap.String("job", JobEscalation), zap.Int("scanned", result.Scanned))
	return result, nil
}
