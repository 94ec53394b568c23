package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/events"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository"
	apperrors "github.com/praveen2025work/ticketapp-sub000/pkg/util/errorutil"
)

var tracer = otel.Tracer("github.com/praveen2025work/ticketapp-sub000/internal/service")

// Clock returns the current time; injected so tests can pin it.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// mapRepoErr converts repository sentinels into the caller-facing taxonomy.
func mapRepoErr(err error, resource string, details map[string]any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewPersistenceConflict(resource, details)
	}
	var de *apperrors.DomainError
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("%s: %w", resource, err)
}

func ticketNotFound(err error, id string) error {
	return mapRepoErr(err, "ticket", map[string]any{"ticket_id": id})
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// statusChange describes a committed transition, published after commit.
type statusChange struct {
	ticket *domain.Ticket
	from   domain.TicketStatus
	to     domain.TicketStatus
}

func (c *statusChange) event(actor string, at time.Time) events.Event {
	return events.NewEvent(events.EventTicketStatusChanged, c.ticket.ID, actor, at, events.TicketStatusChangedPayload{
		Title:     c.ticket.Title,
		CreatedBy: c.ticket.CreatedBy,
		OldStatus: c.from,
		NewStatus: c.to,
	})
}

// transitionTicket validates and applies a status change inside a transaction,
// persisting the ticket and its STATUS_CHANGED entry together. Entering
// RESOLVED or CLOSED marks the display indicator done; RESOLVED also stamps the
// resolution time and drafts the knowledge article once.
func transitionTicket(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, target domain.TicketStatus, actor string, now time.Time) (*statusChange, error) {
	from := ticket.Status
	if err := domain.ValidateTransition(from, target); err != nil {
		return nil, err
	}

	ticket.Status = target
	ticket.UpdatedAt = now
	switch target {
	case domain.TicketStatusResolved:
		resolved := now
		ticket.ResolvedAt = &resolved
		ticket.RagStatus = domain.RagDone
		if err := ensureArticle(ctx, repos, ticket, actor, now); err != nil {
			return nil, err
		}
	case domain.TicketStatusClosed:
		ticket.RagStatus = domain.RagDone
	}

	if err := repos.Tickets.Update(ctx, ticket); err != nil {
		return nil, ticketNotFound(err, ticket.ID)
	}
	entry := domain.NewFieldAuditEntry(ticket.ID, domain.AuditStatusChanged, actor, "status", string(from), string(target))
	entry.CreatedAt = now
	if err := repos.Audit.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append audit: %w", err)
	}
	return &statusChange{ticket: ticket, from: from, to: target}, nil
}

func ensureArticle(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, actor string, now time.Time) error {
	_, err := repos.Articles.GetByTicket(ctx, ticket.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("load article: %w", err)
	}
	article := &domain.KnowledgeArticle{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		Title:     "KB: " + ticket.Title,
		Content:   articleContent(ticket),
		Status:    domain.ArticleStatusDraft,
		CreatedBy: actor,
		CreatedAt: now,
	}
	if err := repos.Articles.Create(ctx, article); err != nil && !errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

func articleContent(t *domain.Ticket) string {
	var b strings.Builder
	section := func(title string, value *string) {
		b.WriteString("## " + title + "\n")
		if value != nil && strings.TrimSpace(*value) != "" {
			b.WriteString(strings.TrimSpace(*value))
		} else {
			b.WriteString("Not recorded.")
		}
		b.WriteString("\n\n")
	}
	b.WriteString(strings.TrimSpace(t.Description) + "\n\n")
	section("Root cause", t.RootCause)
	section("Workaround", t.Workaround)
	section("Permanent fix", t.PermanentFix)
	return strings.TrimRight(b.String(), "\n")
}

func appendAudit(ctx context.Context, repos repository.Repositories, entry *domain.AuditLogEntry, now time.Time) error {
	entry.CreatedAt = now
	if err := repos.Audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

func intText(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func strText(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
