package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/events"
	"github.com/praveen2025work/ticketapp-sub000/internal/notify"
)

// UserLookup resolves a username to a directory entry.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*domain.AppUser, error)
}

// NotificationService turns domain events into notification intents.
// Delivery is fire-and-forget: handlers never fail the publishing operation.
type NotificationService struct {
	dispatcher           events.Dispatcher
	mail                 notify.Sink
	alerts               notify.Sink
	users                UserLookup
	escalationRecipients []string
	logger               *zap.Logger
}

// NotificationDependencies bundles collaborators. Alerts and Users are optional.
type NotificationDependencies struct {
	Dispatcher           events.Dispatcher
	Mail                 notify.Sink
	Alerts               notify.Sink
	Users                UserLookup
	EscalationRecipients []string
	Logger               *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher:           deps.Dispatcher,
		mail:                 deps.Mail,
		alerts:               deps.Alerts,
		users:                deps.Users,
		escalationRecipients: deps.EscalationRecipients,
		logger:               loggerOrNop(deps.Logger),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventApprovalRequested, n.handleApprovalRequested)
	n.dispatcher.Subscribe(events.EventApprovalDecided, n.handleApprovalDecided)
	n.dispatcher.Subscribe(events.EventEscalationRaised, n.handleEscalationRaised)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.String("actor", event.Actor))
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	n.send(ctx, n.mail, notify.Notification{
		Recipient: n.recipient(ctx, payload.CreatedBy),
		Subject:   fmt.Sprintf("Ticket %q is now %s", payload.Title, payload.NewStatus),
		Body: fmt.Sprintf("Ticket %s moved from %s to %s (by %s).",
			event.TicketID, payload.OldStatus, payload.NewStatus, event.Actor),
	})
	return nil
}

func (n *NotificationService) handleApprovalRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ApprovalRequestedPayload)
	if !ok {
		return nil
	}
	n.send(ctx, n.mail, notify.Notification{
		Recipient: n.recipient(ctx, payload.Reviewer),
		Subject:   fmt.Sprintf("Approval requested: %s", payload.Title),
		Body: fmt.Sprintf("%s submitted ticket %s for approval. Your role: %s. Approval id: %d.",
			event.Actor, event.TicketID, payload.Role, payload.ApprovalID),
	})
	return nil
}

func (n *NotificationService) handleApprovalDecided(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ApprovalDecidedPayload)
	if !ok {
		return nil
	}
	n.send(ctx, n.mail, notify.Notification{
		Recipient: n.recipient(ctx, payload.Submitter),
		Subject:   fmt.Sprintf("Ticket %q %s by %s", payload.Title, strings.ToLower(string(payload.Decision)), event.Actor),
		Body:      fmt.Sprintf("Approval %d on ticket %s was %s.", payload.ApprovalID, event.TicketID, payload.Decision),
	})
	return nil
}

func (n *NotificationService) handleEscalationRaised(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EscalationRaisedPayload)
	if !ok {
		return nil
	}
	msg := notify.Notification{
		Subject: fmt.Sprintf("[%s] %d open problem tickets classified %s",
			strings.ToUpper(string(payload.Severity)), payload.Count, payload.Classification),
		Body: "Tickets: " + strings.Join(payload.TicketIDs, ", "),
	}
	if n.alerts != nil {
		n.send(ctx, n.alerts, msg)
	}
	for _, recipient := range n.escalationRecipients {
		msg.Recipient = recipient
		n.send(ctx, n.mail, msg)
	}
	return nil
}

// recipient prefers the directory email and falls back to the username.
func (n *NotificationService) recipient(ctx context.Context, username string) string {
	if n.users == nil || username == "" {
		return username
	}
	user, err := n.users.GetByUsername(ctx, username)
	if err != nil || user.Email == "" {
		return username
	}
	return user.Email
}

func (n *NotificationService) send(ctx context.Context, sink notify.Sink, msg notify.Notification) {
	if sink == nil {
		return
	}
	if err := sink.Send(ctx, msg); err != nil {
		n.logger.Warn("notification not sent",
			zap.String("recipient", msg.Recipient),
			zap.String("subject", msg.Subject),
			zap.Error(err))
	}
}
