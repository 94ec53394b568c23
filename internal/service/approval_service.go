package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/events"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository"
	apperrors "github.com/praveen2025work/ticketapp-sub000/pkg/util/errorutil"
)

// ReviewerDirectory looks up active users holding any of the given roles.
type ReviewerDirectory interface {
	ListActiveByRoles(ctx context.Context, roles []domain.Role) ([]domain.AppUser, error)
}

// ApprovalService runs the multi-reviewer approval gate in front of execution.
// One approval moves a NEW ticket to ASSIGNED; only unanimous rejection moves it to REJECTED.
type ApprovalService struct {
	store      repository.Store
	reviewers  ReviewerDirectory
	locks      *KeyedMutex
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// ApprovalDependencies bundles collaborators for the approval service.
type ApprovalDependencies struct {
	Store      repository.Store
	Reviewers  ReviewerDirectory
	Locks      *KeyedMutex
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// NewApprovalService constructs the service. Locks must be shared with the
// ticket service so status changes on one ticket are serialized.
func NewApprovalService(deps ApprovalDependencies) *ApprovalService {
	locks := deps.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &ApprovalService{
		store:      deps.Store,
		reviewers:  deps.Reviewers,
		locks:      locks,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Clock),
	}
}

// SubmitForApproval fans a NEW ticket out to every active reviewer. With no
// reviewer configured a single record is addressed to the submitter.
func (s *ApprovalService) SubmitForApproval(ctx context.Context, ticketID, actor string) (records []domain.ApprovalRecord, err error) {
	ctx, span := startSpan(ctx, "ApprovalService.SubmitForApproval", attribute.String("ticket_id", ticketID))
	defer func() { endSpan(span, err) }()

	reviewers, err := s.reviewers.ListActiveByRoles(ctx, domain.ApprovalRoles)
	if err != nil {
		return nil, fmt.Errorf("lookup reviewers: %w", err)
	}

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	now := s.now()
	var ticket *domain.Ticket
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		ticket, err = repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return ticketNotFound(err, ticketID)
		}
		existing, err := repos.Approvals.CountByTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if existing > 0 {
			return apperrors.NewAlreadySubmitted(ticketID)
		}
		if ticket.Status != domain.TicketStatusNew {
			return apperrors.NewWrongStatus(ticketID, string(ticket.Status), string(domain.TicketStatusNew))
		}

		batch := buildApprovalBatch(ticketID, actor, reviewers, now)
		if err := repos.Approvals.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("create approvals: %w", err)
		}
		entry := domain.NewFieldAuditEntry(ticketID, domain.AuditSubmittedForApproval, actor,
			"approvals", "0", fmt.Sprint(len(batch)))
		if err := appendAudit(ctx, repos, entry, now); err != nil {
			return err
		}
		records = make([]domain.ApprovalRecord, len(batch))
		for i, rec := range batch {
			records[i] = *rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket submitted for approval",
		zap.String("ticket_id", ticketID),
		zap.Int("approvals", len(records)),
		zap.Bool("fallback", len(reviewers) == 0))
	for _, rec := range records {
		publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventApprovalRequested, ticketID, actor, now,
			events.ApprovalRequestedPayload{ApprovalID: rec.ID, Reviewer: rec.Reviewer, Role: rec.Role, Title: ticket.Title}))
	}
	return records, nil
}

func buildApprovalBatch(ticketID, actor string, reviewers []domain.AppUser, now time.Time) []*domain.ApprovalRecord {
	if len(reviewers) == 0 {
		return []*domain.ApprovalRecord{{
			TicketID:  ticketID,
			Reviewer:  actor,
			Role:      domain.FallbackApprovalRole,
			Decision:  domain.DecisionPending,
			CreatedAt: now,
		}}
	}
	batch := make([]*domain.ApprovalRecord, 0, len(reviewers))
	for _, user := range reviewers {
		batch = append(batch, &domain.ApprovalRecord{
			TicketID:  ticketID,
			Reviewer:  user.Username,
			Role:      user.Role,
			Decision:  domain.DecisionPending,
			CreatedAt: now,
		})
	}
	return batch
}

// Approve records an approval; the first approval of a NEW ticket assigns it.
// Only the addressed reviewer or an admin may decide a record.
func (s *ApprovalService) Approve(ctx context.Context, approvalID int64, comments *string, actor domain.Principal) (*domain.ApprovalRecord, error) {
	return s.decide(ctx, approvalID, domain.DecisionApproved, comments, actor)
}

// Reject records a rejection; the ticket is rejected only once every record is
// decided and none approved.
func (s *ApprovalService) Reject(ctx context.Context, approvalID int64, comments *string, actor domain.Principal) (*domain.ApprovalRecord, error) {
	return s.decide(ctx, approvalID, domain.DecisionRejected, comments, actor)
}

func (s *ApprovalService) decide(ctx context.Context, approvalID int64, decision domain.ApprovalDecision, comments *string, principal domain.Principal) (record *domain.ApprovalRecord, err error) {
	ctx, span := startSpan(ctx, "ApprovalService.decide",
		attribute.Int64("approval_id", approvalID), attribute.String("decision", string(decision)))
	defer func() { endSpan(span, err) }()

	actor := principal.Username
	notFound := map[string]any{"approval_id": approvalID}
	existing, err := s.store.Repos().Approvals.GetByID(ctx, approvalID)
	if err != nil {
		return nil, mapRepoErr(err, "approval", notFound)
	}

	unlock := s.locks.Lock(existing.TicketID)
	defer unlock()

	now := s.now()
	var (
		ticket *domain.Ticket
		change *statusChange
	)
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		// ticket row first, then approval row: same lock order as submit
		ticket, err = repos.Tickets.GetForUpdate(ctx, existing.TicketID)
		if err != nil {
			return mapRepoErr(err, "approval", notFound)
		}
		record, err = repos.Approvals.GetForUpdate(ctx, approvalID)
		if err != nil {
			return mapRepoErr(err, "approval", notFound)
		}
		if record.Reviewer != actor && !principal.HasRole(domain.RoleAdmin) {
			return apperrors.NewForbidden("approval is addressed to another reviewer")
		}
		if record.IsDecided() {
			return apperrors.NewAlreadyDecided(approvalID, string(record.Decision))
		}

		record.Decision = decision
		record.Comments = comments
		decidedAt := now
		record.DecidedAt = &decidedAt
		if err := repos.Approvals.Decide(ctx, record); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return apperrors.NewAlreadyDecided(approvalID, "")
			}
			return fmt.Errorf("decide approval: %w", err)
		}

		action := domain.AuditApproved
		if decision == domain.DecisionRejected {
			action = domain.AuditRejected
		}
		entry := domain.NewFieldAuditEntry(ticket.ID, action, actor, "approval",
			string(domain.DecisionPending), string(decision))
		if err := appendAudit(ctx, repos, entry, now); err != nil {
			return err
		}

		target, err := s.ticketOutcome(ctx, repos, ticket, decision)
		if err != nil || target == "" {
			return err
		}
		change, err = transitionTicket(ctx, repos, ticket, target, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("approval decided",
		zap.Int64("approval_id", approvalID),
		zap.String("ticket_id", ticket.ID),
		zap.String("decision", string(decision)),
		zap.Bool("ticket_transitioned", change != nil))
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventApprovalDecided, ticket.ID, actor, now,
		events.ApprovalDecidedPayload{
			ApprovalID: record.ID,
			Reviewer:   record.Reviewer,
			Decision:   decision,
			Submitter:  ticket.CreatedBy,
			Title:      ticket.Title,
		}))
	if change != nil {
		publish(ctx, s.dispatcher, s.logger, change.event(actor, now))
	}
	return record, nil
}

// ticketOutcome returns the status the decision drives the ticket to, or "" for none.
// It runs after the decision is written so the counts include it.
func (s *ApprovalService) ticketOutcome(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, decision domain.ApprovalDecision) (domain.TicketStatus, error) {
	if ticket.Status != domain.TicketStatusNew {
		return "", nil
	}
	if decision == domain.DecisionApproved {
		return domain.TicketStatusAssigned, nil
	}

	all, err := repos.Approvals.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return "", fmt.Errorf("list approvals: %w", err)
	}
	pending, approved := 0, 0
	for _, rec := range all {
		switch rec.Decision {
		case domain.DecisionPending:
			pending++
		case domain.DecisionApproved:
			approved++
		}
	}
	if pending == 0 && approved == 0 {
		return domain.TicketStatusRejected, nil
	}
	return "", nil
}

// PendingApprovals lists undecided records addressed to reviewer.
func (s *ApprovalService) PendingApprovals(ctx context.Context, reviewer string) ([]domain.ApprovalRecord, error) {
	return s.store.Repos().Approvals.ListPendingByReviewer(ctx, reviewer)
}

// ApprovalHistory returns one record per reviewer and role, keeping the
// earliest, ordered by id.
func (s *ApprovalService) ApprovalHistory(ctx context.Context, ticketID string) ([]domain.ApprovalRecord, error) {
	repos := s.store.Repos()
	if _, err := repos.Tickets.GetByID(ctx, ticketID); err != nil {
		return nil, ticketNotFound(err, ticketID)
	}
	all, err := repos.Approvals.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return dedupeHistory(all), nil
}

func dedupeHistory(records []domain.ApprovalRecord) []domain.ApprovalRecord {
	type key struct {
		reviewer string
		role     domain.Role
	}
	earliest := make(map[key]domain.ApprovalRecord, len(records))
	for _, rec := range records {
		k := key{rec.Reviewer, rec.Role}
		if cur, ok := earliest[k]; !ok || rec.ID < cur.ID {
			earliest[k] = rec
		}
	}
	out := make([]domain.ApprovalRecord, 0, len(earliest))
	for _, rec := range earliest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
