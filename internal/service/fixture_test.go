package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/events"
	"github.com/praveen2025work/ticketapp-sub000/internal/observability"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	clock     *fakeClock
	recorder  *eventRecorder
	metrics   *observability.Metrics
	tickets   *TicketService
	approvals *ApprovalService
	jobs      *ClassificationService
	dashboard *DashboardService
}

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	clock := &fakeClock{now: baseTime}
	recorder := &eventRecorder{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventApprovalRequested,
		events.EventApprovalDecided,
		events.EventEscalationRaised,
	} {
		dispatcher.Subscribe(et, recorder.handle)
	}
	locks := NewKeyedMutex()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()

	return &fixture{
		ctx:      context.Background(),
		store:    store,
		clock:    clock,
		recorder: recorder,
		metrics:  metrics,
		tickets: NewTicketService(TicketDependencies{
			Store: store, Locks: locks, Dispatcher: dispatcher, Logger: logger, Clock: clock.Now,
		}),
		approvals: NewApprovalService(ApprovalDependencies{
			Store: store, Reviewers: store.Repos().Users, Locks: locks, Dispatcher: dispatcher, Logger: logger, Clock: clock.Now,
		}),
		jobs: NewClassificationService(ClassificationDependencies{
			Store: store, Locks: locks, Dispatcher: dispatcher, Metrics: metrics, Logger: logger, Clock: clock.Now,
		}),
		dashboard: NewDashboardService(DashboardDependencies{
			Store: store, Logger: logger, Clock: clock.Now,
		}),
	}
}

func (f *fixture) addReviewers(usernames ...string) {
	roles := []domain.Role{domain.RoleReviewer, domain.RoleApprover, domain.RoleRTBOwner}
	for i, name := range usernames {
		f.store.AddUser(domain.AppUser{
			ID:       name,
			Username: name,
			Email:    name + "@example.com",
			Role:     roles[i%len(roles)],
			Active:   true,
		})
	}
}

func (f *fixture) createTicket(t *testing.T, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(f.ctx, TicketCreateInput{Title: title, Description: "details"}, "alice")
	require.NoError(t, err)
	return ticket
}

// forceStatus rewrites a stored ticket's status, bypassing the lifecycle table.
func (f *fixture) forceStatus(t *testing.T, id string, status domain.TicketStatus) {
	t.Helper()
	repos := f.store.Repos()
	ticket, err := repos.Tickets.GetByID(f.ctx, id)
	require.NoError(t, err)
	ticket.Status = status
	require.NoError(t, repos.Tickets.Update(f.ctx, ticket))
}

func (f *fixture) auditActions(t *testing.T, id string) []domain.AuditAction {
	t.Helper()
	entries, err := f.store.Repos().Audit.ListByTicket(f.ctx, id)
	require.NoError(t, err)
	out := make([]domain.AuditAction, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}

func countAction(actions []domain.AuditAction, want domain.AuditAction) int {
	n := 0
	for _, a := range actions {
		if a == want {
			n++
		}
	}
	return n
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
