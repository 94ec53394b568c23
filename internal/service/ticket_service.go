package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/events"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository"
	apperrors "github.com/praveen2025work/ticketapp-sub000/pkg/util/errorutil"
)

// TicketService owns create, update, status change and delete of problem tickets.
type TicketService struct {
	store      repository.Store
	locks      *KeyedMutex
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Locks      *KeyedMutex
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title                 string
	Description           string
	ImpactCount           *int
	Priority              *int
	TargetResolutionHours *int
	AssignedTo            *string
	AssignmentGroup       *string
	RootCause             *string
	Workaround            *string
	PermanentFix          *string
	IncidentLink          *string
	ChangeRequestLink     *string
	KnowledgeLink         *string
	RegionIDs             []string
	ApplicationIDs        []string
}

// TicketPatch is a partial update; nil fields are left untouched.
type TicketPatch struct {
	Title                 *string
	Description           *string
	ImpactCount           *int
	Priority              *int
	TargetResolutionHours *int
	AssignedTo            *string
	AssignmentGroup       *string
	RootCause             *string
	Workaround            *string
	PermanentFix          *string
	IncidentLink          *string
	ChangeRequestLink     *string
	KnowledgeLink         *string
}

// TicketListFilter describes list and search parameters.
type TicketListFilter struct {
	Statuses        []domain.TicketStatus
	Classifications []domain.Classification
	RegionID        *string
	AssignedTo      *string
	CreatedBy       *string
	SearchTerm      *string
	Limit           int
	Offset          int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	locks := deps.Locks
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &TicketService{
		store:      deps.Store,
		locks:      locks,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Clock),
	}
}

// CreateTicket creates a NEW ticket and records CREATED.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput, creator string) (ticket *domain.Ticket, err error) {
	ctx, span := startSpan(ctx, "TicketService.CreateTicket")
	defer func() { endSpan(span, err) }()

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if strings.TrimSpace(creator) == "" {
		return nil, apperrors.NewValidationError("creator is required", nil)
	}
	if input.ImpactCount != nil && *input.ImpactCount < 0 {
		return nil, apperrors.NewValidationError("impact count must not be negative", map[string]any{"field": "impact_count"})
	}

	now := s.now()
	impact := 0
	if input.ImpactCount != nil {
		impact = *input.ImpactCount
	}
	ticket = &domain.Ticket{
		ID:                    uuid.NewString(),
		Title:                 title,
		Description:           strings.TrimSpace(input.Description),
		CreatedBy:             creator,
		Status:                domain.TicketStatusNew,
		Classification:        domain.ClassificationA,
		RagStatus:             domain.RagFor(domain.ClassificationA),
		ImpactCount:           input.ImpactCount,
		PriorityScore:         domain.PriorityScore(impact),
		TargetResolutionHours: input.TargetResolutionHours,
		AssignedTo:            input.AssignedTo,
		AssignmentGroup:       input.AssignmentGroup,
		RootCause:             input.RootCause,
		Workaround:            input.Workaround,
		PermanentFix:          input.PermanentFix,
		IncidentLink:          input.IncidentLink,
		ChangeRequestLink:     input.ChangeRequestLink,
		KnowledgeLink:         input.KnowledgeLink,
		RegionIDs:             dedupe(input.RegionIDs),
		ApplicationIDs:        dedupe(input.ApplicationIDs),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if input.Priority != nil {
		p := domain.ClampPriority(*input.Priority)
		ticket.Priority = &p
	}

	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := s.resolveAssociations(ctx, repos, ticket); err != nil {
			return err
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}
		return appendAudit(ctx, repos, domain.NewAuditEntry(ticket.ID, domain.AuditCreated, creator), now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("created_by", creator))
	publish(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketCreated, ticket.ID, creator, now,
		events.TicketCreatedPayload{Title: ticket.Title, CreatedBy: creator}))
	return ticket, nil
}

// resolveAssociations checks region and application ids and defaults the
// assignment group from the first region that has one.
func (s *TicketService) resolveAssociations(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket) error {
	for _, id := range ticket.RegionIDs {
		region, err := repos.Regions.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !region.Active) {
			return apperrors.NewValidationError("unknown region", map[string]any{"region_id": id})
		}
		if err != nil {
			return err
		}
		if ticket.AssignmentGroup == nil && region.DefaultAssignmentGroup != nil {
			group := *region.DefaultAssignmentGroup
			ticket.AssignmentGroup = &group
		}
	}
	for _, id := range ticket.ApplicationIDs {
		app, err := repos.Applications.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !app.Active) {
			return apperrors.NewValidationError("unknown application", map[string]any{"application_id": id})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateTicket applies a partial patch. Tracked field changes each get a
// FIELD_UPDATED entry; every call records one UPDATED entry.
func (s *TicketService) UpdateTicket(ctx context.Context, id string, patch TicketPatch, actor string) (ticket *domain.Ticket, err error) {
	ctx, span := startSpan(ctx, "TicketService.UpdateTicket", attribute.String("ticket_id", id))
	defer func() { endSpan(span, err) }()

	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, apperrors.NewValidationError("title must not be empty", map[string]any{"field": "title"})
	}
	if patch.ImpactCount != nil && *patch.ImpactCount < 0 {
		return nil, apperrors.NewValidationError("impact count must not be negative", map[string]any{"field": "impact_count"})
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.now()
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Tickets.GetForUpdate(ctx, id)
		if err != nil {
			return ticketNotFound(err, id)
		}

		changes := applyPatch(current, patch)
		current.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, current); err != nil {
			return ticketNotFound(err, id)
		}
		for _, c := range changes {
			entry := domain.NewFieldAuditEntry(id, domain.AuditFieldUpdated, actor, c.field, c.oldValue, c.newValue)
			if err := appendAudit(ctx, repos, entry, now); err != nil {
				return err
			}
		}
		if err := appendAudit(ctx, repos, domain.NewAuditEntry(id, domain.AuditUpdated, actor), now); err != nil {
			return err
		}
		ticket = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

type fieldChange struct {
	field    string
	oldValue string
	newValue string
}

func applyPatch(t *domain.Ticket, p TicketPatch) []fieldChange {
	var changes []fieldChange
	trackInt := func(field string, dst **int, val *int) {
		if val == nil {
			return
		}
		old := intText(*dst)
		v := *val
		*dst = &v
		if next := intText(*dst); next != old {
			changes = append(changes, fieldChange{field, old, next})
		}
	}
	trackString := func(field string, dst **string, val *string) {
		if val == nil {
			return
		}
		old := strText(*dst)
		v := *val
		*dst = &v
		if v != old {
			changes = append(changes, fieldChange{field, old, v})
		}
	}
	setString := func(dst **string, val *string) {
		if val != nil {
			v := *val
			*dst = &v
		}
	}

	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.ImpactCount != nil {
		trackInt("impactCount", &t.ImpactCount, p.ImpactCount)
		t.PriorityScore = domain.PriorityScore(*t.ImpactCount)
	}
	if p.Priority != nil {
		clamped := domain.ClampPriority(*p.Priority)
		trackInt("priority", &t.Priority, &clamped)
	}
	trackInt("targetResolutionHours", &t.TargetResolutionHours, p.TargetResolutionHours)
	trackString("assignedTo", &t.AssignedTo, p.AssignedTo)
	trackString("assignmentGroup", &t.AssignmentGroup, p.AssignmentGroup)
	setString(&t.RootCause, p.RootCause)
	setString(&t.Workaround, p.Workaround)
	setString(&t.PermanentFix, p.PermanentFix)
	trackString("incidentLink", &t.IncidentLink, p.IncidentLink)
	trackString("changeRequestLink", &t.ChangeRequestLink, p.ChangeRequestLink)
	trackString("knowledgeLink", &t.KnowledgeLink, p.KnowledgeLink)
	return changes
}

// ChangeStatus moves the ticket along the lifecycle table.
func (s *TicketService) ChangeStatus(ctx context.Context, id string, target domain.TicketStatus, actor string) (ticket *domain.Ticket, err error) {
	ctx, span := startSpan(ctx, "TicketService.ChangeStatus",
		attribute.String("ticket_id", id), attribute.String("target", string(target)))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.now()
	var change *statusChange
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Tickets.GetForUpdate(ctx, id)
		if err != nil {
			return ticketNotFound(err, id)
		}
		change, err = transitionTicket(ctx, repos, current, target, actor, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket status changed",
		zap.String("ticket_id", id),
		zap.String("from", string(change.from)),
		zap.String("to", string(change.to)))
	publish(ctx, s.dispatcher, s.logger, change.event(actor, now))
	return change.ticket, nil
}

// SoftDelete flags the ticket deleted; its status is left as is.
func (s *TicketService) SoftDelete(ctx context.Context, id string, actor string) (err error) {
	ctx, span := startSpan(ctx, "TicketService.SoftDelete", attribute.String("ticket_id", id))
	defer func() { endSpan(span, err) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	now := s.now()
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		current, err := repos.Tickets.GetForUpdate(ctx, id)
		if err != nil {
			return ticketNotFound(err, id)
		}
		current.Deleted = true
		current.UpdatedAt = now
		if err := repos.Tickets.Update(ctx, current); err != nil {
			return ticketNotFound(err, id)
		}
		entry := domain.NewFieldAuditEntry(id, domain.AuditDeleted, actor, "deleted", "false", "true")
		return appendAudit(ctx, repos, entry, now)
	})
	if err != nil {
		return err
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", id), zap.String("actor", actor))
	return nil
}

// GetTicket returns a live ticket.
func (s *TicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.store.Repos().Tickets.GetByID(ctx, id)
	if err != nil {
		return nil, ticketNotFound(err, id)
	}
	return ticket, nil
}

// ListTickets searches live tickets, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.store.Repos().Tickets.List(ctx, repository.TicketFilter{
		Statuses:        filter.Statuses,
		Classifications: filter.Classifications,
		RegionID:        filter.RegionID,
		AssignedTo:      filter.AssignedTo,
		CreatedBy:       filter.CreatedBy,
		SearchTerm:      filter.SearchTerm,
		Limit:           filter.Limit,
		Offset:          filter.Offset,
	})
}

// AuditTrail returns the ledger of a live ticket, newest first.
func (s *TicketService) AuditTrail(ctx context.Context, id string) ([]domain.AuditLogEntry, error) {
	repos := s.store.Repos()
	if _, err := repos.Tickets.GetByID(ctx, id); err != nil {
		return nil, ticketNotFound(err, id)
	}
	return repos.Audit.ListByTicket(ctx, id)
}

// GetArticle returns the knowledge article drafted when the ticket was resolved.
func (s *TicketService) GetArticle(ctx context.Context, ticketID string) (*domain.KnowledgeArticle, error) {
	repos := s.store.Repos()
	if _, err := repos.Tickets.GetByID(ctx, ticketID); err != nil {
		return nil, ticketNotFound(err, ticketID)
	}
	article, err := repos.Articles.GetByTicket(ctx, ticketID)
	if err != nil {
		return nil, mapRepoErr(err, "knowledge article", map[string]any{"ticket_id": ticketID})
	}
	return article, nil
}

// AddComment appends a note to a live ticket.
func (s *TicketService) AddComment(ctx context.Context, ticketID, author, body string) (*domain.TicketComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", map[string]any{"field": "body"})
	}
	comment := &domain.TicketComment{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		Author:    author,
		Body:      body,
		CreatedAt: s.now(),
	}
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Tickets.GetByID(ctx, ticketID); err != nil {
			return ticketNotFound(err, ticketID)
		}
		return repos.Comments.Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListComments returns the notes of a live ticket, oldest first.
func (s *TicketService) ListComments(ctx context.Context, ticketID string) ([]domain.TicketComment, error) {
	repos := s.store.Repos()
	if _, err := repos.Tickets.GetByID(ctx, ticketID); err != nil {
		return nil, ticketNotFound(err, ticketID)
	}
	return repos.Comments.ListByTicket(ctx, ticketID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
