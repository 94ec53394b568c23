package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/events"
	"github.com/praveen2025work/ticketapp-sub000/internal/notify"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository/memory"
)

type capturingSink struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (c *capturingSink) Send(_ context.Context, n notify.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return nil
}

func TestNotificationService_RoutesEvents(t *testing.T) {
	store := memory.NewStore()
	store.AddUser(domain.AppUser{Username: "rita", Email: "rita@example.com", Role: domain.RoleReviewer, Active: true})
	dispatcher := events.NewInMemoryDispatcher()
	mail := &capturingSink{}
	alerts := &capturingSink{}
	svc := NewNotificationService(NotificationDependencies{
		Dispatcher:           dispatcher,
		Mail:                 mail,
		Alerts:               alerts,
		Users:                store.Repos().Users,
		EscalationRecipients: []string{"ops@example.com"},
		Logger:               zap.NewNop(),
	})
	svc.RegisterHandlers()
	ctx := context.Background()

	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventApprovalRequested, "t-1", "alice", baseTime,
		events.ApprovalRequestedPayload{ApprovalID: 9, Reviewer: "rita", Role: domain.RoleReviewer, Title: "Disk full"})))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventApprovalDecided, "t-1", "rita", baseTime,
		events.ApprovalDecidedPayload{ApprovalID: 9, Decision: domain.DecisionApproved, Submitter: "alice", Title: "Disk full"})))
	require.NoError(t, dispatcher.Publish(ctx, events.NewEvent(events.EventEscalationRaised, "", domain.SystemActor, baseTime,
		events.EscalationRaisedPayload{Classification: domain.ClassificationP, Severity: events.SeverityCritical, Count: 2, TicketIDs: []string{"a", "b"}})))

	require.Len(t, mail.sent, 3)
	assert.Equal(t, "rita@example.com", mail.sent[0].Recipient)
	assert.Contains(t, mail.sent[0].Subject, "Disk full")
	// unknown user falls back to the username
	assert.Equal(t, "alice", mail.sent[1].Recipient)
	assert.Contains(t, mail.sent[1].Subject, "approved")
	assert.Equal(t, "ops@example.com", mail.sent[2].Recipient)
	assert.Contains(t, mail.sent[2].Subject, "[CRITICAL]")

	require.Len(t, alerts.sent, 1)
	assert.Equal(t, "Tickets: a, b", alerts.sent[0].Body)
}
