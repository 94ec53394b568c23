package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/events"
	apperrors "github.com/praveen2025work/ticketapp-sub000/pkg/util/errorutil"
)

func submitted(t *testing.T, f *fixture) (*domain.Ticket, []domain.ApprovalRecord) {
	t.Helper()
	f.addReviewers("rita", "arun", "owen")
	ticket := f.createTicket(t, "Payments timeout")
	records, err := f.approvals.SubmitForApproval(f.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	require.Len(t, records, 3)
	return ticket, records
}

func principal(username string, roles ...domain.Role) domain.Principal {
	return domain.Principal{Username: username, Roles: roles}
}

func (f *fixture) status(t *testing.T, id string) domain.TicketStatus {
	t.Helper()
	ticket, err := f.tickets.GetTicket(f.ctx, id)
	require.NoError(t, err)
	return ticket.Status
}

func TestSubmitForApproval_FansOutToReviewers(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	roles := map[domain.Role]string{}
	for _, rec := range records {
		assert.Equal(t, domain.DecisionPending, rec.Decision)
		assert.NotZero(t, rec.ID)
		roles[rec.Role] = rec.Reviewer
	}
	assert.Equal(t, map[domain.Role]string{
		domain.RoleReviewer: "rita",
		domain.RoleApprover: "arun",
		domain.RoleRTBOwner: "owen",
	}, roles)
	assert.Equal(t, 1, countAction(f.auditActions(t, ticket.ID), domain.AuditSubmittedForApproval))
	assert.Len(t, f.recorder.ofType(events.EventApprovalRequested), 3)
}

func TestSubmitForApproval_FallbackToSubmitter(t *testing.T) {
	f := newFixture(t)
	f.store.AddUser(domain.AppUser{Username: "retired", Role: domain.RoleReviewer, Active: false})
	f.store.AddUser(domain.AppUser{Username: "sam", Role: domain.RoleSubmitter, Active: true})
	ticket := f.createTicket(t, "No reviewers")

	records, err := f.approvals.SubmitForApproval(f.ctx, ticket.ID, "alice")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "alice", records[0].Reviewer)
	assert.Equal(t, domain.FallbackApprovalRole, records[0].Role)
}

func TestSubmitForApproval_Preconditions(t *testing.T) {
	f := newFixture(t)
	ticket, _ := submitted(t, f)

	_, err := f.approvals.SubmitForApproval(f.ctx, ticket.ID, "alice")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadySubmitted))

	other := f.createTicket(t, "Already moving")
	_, err = f.tickets.ChangeStatus(f.ctx, other.ID, domain.TicketStatusAssigned, "bob")
	require.NoError(t, err)
	_, err = f.approvals.SubmitForApproval(f.ctx, other.ID, "alice")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeWrongStatus))

	_, err = f.approvals.SubmitForApproval(f.ctx, "missing", "alice")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestApprove_FirstApprovalAssigns(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	rec, err := f.approvals.Approve(f.ctx, records[0].ID, strPtr("looks right"), principal("rita"))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionApproved, rec.Decision)
	require.NotNil(t, rec.DecidedAt)
	assert.Equal(t, "looks right", *rec.Comments)
	assert.Equal(t, domain.TicketStatusAssigned, f.status(t, ticket.ID))

	// a second approval does not transition again
	_, err = f.approvals.Approve(f.ctx, records[1].ID, nil, principal("arun"))
	require.NoError(t, err)

	actions := f.auditActions(t, ticket.ID)
	assert.Equal(t, 2, countAction(actions, domain.AuditApproved))
	assert.Equal(t, 1, countAction(actions, domain.AuditStatusChanged))
	assert.Len(t, f.recorder.ofType(events.EventApprovalDecided), 2)
}

func TestReject_SingleRejectionLeavesTicketNew(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	_, err := f.approvals.Reject(f.ctx, records[0].ID, strPtr("not a problem"), principal("rita"))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, f.status(t, ticket.ID))

	actions := f.auditActions(t, ticket.ID)
	assert.Equal(t, 1, countAction(actions, domain.AuditRejected))
	assert.Zero(t, countAction(actions, domain.AuditStatusChanged))
}

func TestReject_UnanimousRejectionRejectsTicket(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	for i, rec := range records {
		_, err := f.approvals.Reject(f.ctx, rec.ID, nil, principal(rec.Reviewer))
		require.NoError(t, err)
		if i < len(records)-1 {
			assert.Equal(t, domain.TicketStatusNew, f.status(t, ticket.ID))
		}
	}
	assert.Equal(t, domain.TicketStatusRejected, f.status(t, ticket.ID))
	assert.Equal(t, 1, countAction(f.auditActions(t, ticket.ID), domain.AuditStatusChanged))
}

func TestReject_AfterApprovalKeepsAssigned(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	_, err := f.approvals.Reject(f.ctx, records[0].ID, nil, principal("rita"))
	require.NoError(t, err)
	_, err = f.approvals.Approve(f.ctx, records[1].ID, nil, principal("arun"))
	require.NoError(t, err)
	_, err = f.approvals.Reject(f.ctx, records[2].ID, nil, principal("owen"))
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusAssigned, f.status(t, ticket.ID))
}

func TestDecide_WriteOnce(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	_, err := f.approvals.Approve(f.ctx, records[0].ID, strPtr("ok"), principal("rita"))
	require.NoError(t, err)
	before := f.auditActions(t, ticket.ID)

	_, err = f.approvals.Approve(f.ctx, records[0].ID, strPtr("again"), principal("rita"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyDecided))
	_, err = f.approvals.Reject(f.ctx, records[0].ID, strPtr("changed my mind"), principal("rita"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAlreadyDecided))

	stored, err := f.store.Repos().Approvals.GetByID(f.ctx, records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionApproved, stored.Decision)
	assert.Equal(t, "ok", *stored.Comments)
	assert.Equal(t, before, f.auditActions(t, ticket.ID))
	assert.Equal(t, domain.TicketStatusAssigned, f.status(t, ticket.ID))
}

func TestDecide_OnlyAddressedReviewerOrAdmin(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	_, err := f.approvals.Approve(f.ctx, records[0].ID, nil, principal("arun", domain.RoleApprover))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = f.approvals.Reject(f.ctx, records[0].ID, nil, principal("alice", domain.RoleSubmitter))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	stored, err := f.store.Repos().Approvals.GetByID(f.ctx, records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionPending, stored.Decision)
	assert.Equal(t, domain.TicketStatusNew, f.status(t, ticket.ID))
	assert.Zero(t, countAction(f.auditActions(t, ticket.ID), domain.AuditApproved))

	rec, err := f.approvals.Approve(f.ctx, records[0].ID, nil, principal("root", domain.RoleAdmin))
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionApproved, rec.Decision)
	assert.Equal(t, domain.TicketStatusAssigned, f.status(t, ticket.ID))
}

func TestDecide_UnknownApproval(t *testing.T) {
	f := newFixture(t)
	_, err := f.approvals.Approve(f.ctx, 404, nil, principal("rita"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestApprove_ConcurrentApprovalsTransitionOnce(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	var wg sync.WaitGroup
	errs := make([]error, len(records))
	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec domain.ApprovalRecord) {
			defer wg.Done()
			_, errs[i] = f.approvals.Approve(f.ctx, rec.ID, nil, principal(rec.Reviewer))
		}(i, rec)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, domain.TicketStatusAssigned, f.status(t, ticket.ID))
	actions := f.auditActions(t, ticket.ID)
	assert.Equal(t, 1, countAction(actions, domain.AuditStatusChanged))
	assert.Equal(t, 3, countAction(actions, domain.AuditApproved))
}

func TestApprove_ConcurrentSameRecordDecidesOnce(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.approvals.Approve(f.ctx, records[0].ID, nil, principal("rita")); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, countAction(f.auditActions(t, ticket.ID), domain.AuditApproved))
}

func TestApprovals_HiddenWhenTicketDeleted(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	require.NoError(t, f.tickets.SoftDelete(f.ctx, ticket.ID, "admin"))

	_, err := f.approvals.Approve(f.ctx, records[0].ID, nil, principal("rita"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.approvals.ApprovalHistory(f.ctx, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	pending, err := f.approvals.PendingApprovals(f.ctx, "rita")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPendingApprovals(t *testing.T) {
	f := newFixture(t)
	_, records := submitted(t, f)

	pending, err := f.approvals.PendingApprovals(f.ctx, "arun")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, records[1].ID, pending[0].ID)

	_, err = f.approvals.Approve(f.ctx, records[1].ID, nil, principal("arun"))
	require.NoError(t, err)
	pending, err = f.approvals.PendingApprovals(f.ctx, "arun")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestApprovalHistory_SortedByID(t *testing.T) {
	f := newFixture(t)
	ticket, records := submitted(t, f)

	history, err := f.approvals.ApprovalHistory(f.ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i := range history {
		assert.Equal(t, records[i].ID, history[i].ID)
	}
}

func TestDedupeHistory_KeepsEarliestPerReviewerRole(t *testing.T) {
	history := dedupeHistory([]domain.ApprovalRecord{
		{ID: 7, Reviewer: "rita", Role: domain.RoleReviewer},
		{ID: 3, Reviewer: "rita", Role: domain.RoleReviewer},
		{ID: 5, Reviewer: "rita", Role: domain.RoleApprover},
		{ID: 4, Reviewer: "arun", Role: domain.RoleApprover},
	})

	ids := make([]int64, len(history))
	for i, rec := range history {
		ids[i] = rec.ID
	}
	assert.Equal(t, []int64{3, 4, 5}, ids)
}
