package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/events"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository"
	apperrors "github.com/praveen2025work/ticketapp-sub000/pkg/util/errorutil"
)

func TestCreateTicket_ComputesPriorityScore(t *testing.T) {
	f := newFixture(t)

	ticket, err := f.tickets.CreateTicket(f.ctx, TicketCreateInput{
		Title:       "Batch settlement delays",
		ImpactCount: intPtr(10),
		Priority:    intPtr(9),
	}, "alice")
	require.NoError(t, err)

	assert.InDelta(t, 7.2, ticket.PriorityScore, 1e-9)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, domain.ClassificationA, ticket.Classification)
	assert.Equal(t, domain.RagGreen, ticket.RagStatus)
	require.NotNil(t, ticket.Priority)
	assert.Equal(t, 5, *ticket.Priority)
	assert.Equal(t, []domain.AuditAction{domain.AuditCreated}, f.auditActions(t, ticket.ID))
	assert.Len(t, f.recorder.ofType(events.EventTicketCreated), 1)
}

func TestCreateTicket_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.tickets.CreateTicket(f.ctx, TicketCreateInput{Title: "   "}, "alice")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.CreateTicket(f.ctx, TicketCreateInput{Title: "x", RegionIDs: []string{"nowhere"}}, "alice")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.CreateTicket(f.ctx, TicketCreateInput{Title: "x", ApplicationIDs: []string{"ghost"}}, "alice")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	list, err := f.tickets.ListTickets(f.ctx, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateTicket_DefaultsAssignmentGroupFromRegion(t *testing.T) {
	f := newFixture(t)
	f.store.AddRegion(domain.Region{ID: "emea", Name: "EMEA", DefaultAssignmentGroup: strPtr("emea-ops"), Active: true})
	f.store.AddApplication(domain.Application{ID: "ledger", Name: "Ledger", Active: true})

	ticket, err := f.tickets.CreateTicket(f.ctx, TicketCreateInput{
		Title:          "Ledger mismatch",
		RegionIDs:      []string{"emea", "emea"},
		ApplicationIDs: []string{"ledger"},
	}, "alice")
	require.NoError(t, err)
	require.NotNil(t, ticket.AssignmentGroup)
	assert.Equal(t, "emea-ops", *ticket.AssignmentGroup)
	assert.Equal(t, []string{"emea"}, ticket.RegionIDs)

	explicit, err := f.tickets.CreateTicket(f.ctx, TicketCreateInput{
		Title:           "Ledger mismatch 2",
		RegionIDs:       []string{"emea"},
		AssignmentGroup: strPtr("db-team"),
	}, "alice")
	require.NoError(t, err)
	assert.Equal(t, "db-team", *explicit.AssignmentGroup)
}

func TestUpdateTicket_PartialPatchAudit(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Slow reports")

	updated, err := f.tickets.UpdateTicket(f.ctx, ticket.ID, TicketPatch{
		ImpactCount:  intPtr(5),
		Priority:     intPtr(0),
		IncidentLink: strPtr("INC-100"),
		RootCause:    strPtr("missing index"),
	}, "bob")
	require.NoError(t, err)
	assert.InDelta(t, 4.2, updated.PriorityScore, 1e-9)
	assert.Equal(t, 1, *updated.Priority)
	assert.Equal(t, "missing index", *updated.RootCause)
	assert.Equal(t, "Slow reports", updated.Title)

	entries, err := f.tickets.AuditTrail(f.ctx, ticket.ID)
	require.NoError(t, err)
	fields := map[string][2]string{}
	for _, e := range entries {
		if e.Action == domain.AuditFieldUpdated {
			fields[*e.FieldName] = [2]string{*e.OldValue, *e.NewValue}
		}
	}
	assert.Equal(t, map[string][2]string{
		"impactCount":  {"", "5"},
		"priority":     {"", "1"},
		"incidentLink": {"", "INC-100"},
	}, fields)
	assert.Equal(t, domain.AuditUpdated, entries[0].Action)

	// same values again: only the UPDATED entry is added
	_, err = f.tickets.UpdateTicket(f.ctx, ticket.ID, TicketPatch{ImpactCount: intPtr(5), IncidentLink: strPtr("INC-100")}, "bob")
	require.NoError(t, err)
	actions := f.auditActions(t, ticket.ID)
	assert.Equal(t, 3, countAction(actions, domain.AuditFieldUpdated))
	assert.Equal(t, 2, countAction(actions, domain.AuditUpdated))
}

func TestUpdateTicket_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.tickets.UpdateTicket(f.ctx, "missing", TicketPatch{Title: strPtr("x")}, "bob")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestChangeStatus_RejectsEdgesOutsideTable(t *testing.T) {
	f := newFixture(t)

	for _, from := range domain.AllTicketStatuses {
		for _, to := range domain.AllTicketStatuses {
			if domain.ValidateTransition(from, to) == nil {
				continue
			}
			ticket := f.createTicket(t, string(from)+"->"+string(to))
			f.forceStatus(t, ticket.ID, from)

			_, err := f.tickets.ChangeStatus(f.ctx, ticket.ID, to, "bob")
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition), "%s -> %s", from, to)

			stored, err := f.tickets.GetTicket(f.ctx, ticket.ID)
			require.NoError(t, err)
			assert.Equal(t, from, stored.Status)
		}
	}
}

func TestChangeStatus_ResolveDraftsArticleAndMarksDone(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Nightly job fails")
	_, err := f.tickets.UpdateTicket(f.ctx, ticket.ID, TicketPatch{
		RootCause:    strPtr("expired certificate"),
		PermanentFix: strPtr("automated renewal"),
	}, "bob")
	require.NoError(t, err)

	_, err = f.tickets.GetArticle(f.ctx, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	for _, status := range []domain.TicketStatus{
		domain.TicketStatusAssigned,
		domain.TicketStatusInProgress,
		domain.TicketStatusRootCauseIdentified,
		domain.TicketStatusFixInProgress,
		domain.TicketStatusResolved,
	} {
		_, err := f.tickets.ChangeStatus(f.ctx, ticket.ID, status, "bob")
		require.NoError(t, err, status)
	}

	resolved, err := f.tickets.GetTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RagDone, resolved.RagStatus)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, baseTime, *resolved.ResolvedAt)

	article, err := f.tickets.GetArticle(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ArticleStatusDraft, article.Status)
	assert.Contains(t, article.Content, "expired certificate")
	assert.Contains(t, article.Content, "automated renewal")

	closed, err := f.tickets.ChangeStatus(f.ctx, ticket.ID, domain.TicketStatusClosed, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.RagDone, closed.RagStatus)

	again, err := f.tickets.GetArticle(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, article.ID, again.ID)
	assert.Len(t, f.recorder.ofType(events.EventTicketStatusChanged), 6)
}

func TestEnsureArticle_Idempotent(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Cache stampede")

	for i := 0; i < 2; i++ {
		err := f.store.WithinTx(f.ctx, func(repos repository.Repositories) error {
			return ensureArticle(f.ctx, repos, ticket, "bob", baseTime)
		})
		require.NoError(t, err)
	}
	first, err := f.tickets.GetArticle(f.ctx, ticket.ID)
	require.NoError(t, err)
	second, err := f.tickets.GetArticle(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestChangeStatus_ClosedFromNewHasNoArticle(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Duplicate")

	closed, err := f.tickets.ChangeStatus(f.ctx, ticket.ID, domain.TicketStatusClosed, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.RagDone, closed.RagStatus)
	assert.Nil(t, closed.ResolvedAt)

	_, err = f.tickets.GetArticle(f.ctx, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestChangeStatus_AuditFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Queue backlog")

	f.store.FailAuditWrites(errors.New("ledger unavailable"))
	_, err := f.tickets.ChangeStatus(f.ctx, ticket.ID, domain.TicketStatusAssigned, "bob")
	require.Error(t, err)
	f.store.FailAuditWrites(nil)

	stored, err := f.tickets.GetTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)
	assert.Equal(t, ticket.Version, stored.Version)
	assert.Empty(t, f.recorder.ofType(events.EventTicketStatusChanged))
}

func TestSoftDelete_HidesTicketEverywhere(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Searchable outage")
	other := f.createTicket(t, "Other outage")

	require.NoError(t, f.tickets.SoftDelete(f.ctx, ticket.ID, "admin"))

	_, err := f.tickets.GetTicket(f.ctx, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.tickets.AuditTrail(f.ctx, ticket.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.tickets.ChangeStatus(f.ctx, ticket.ID, domain.TicketStatusAssigned, "bob")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.tickets.AddComment(f.ctx, ticket.ID, "bob", "hello")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.True(t, apperrors.HasCode(f.tickets.SoftDelete(f.ctx, ticket.ID, "admin"), apperrors.CodeNotFound))

	list, err := f.tickets.ListTickets(f.ctx, TicketListFilter{SearchTerm: strPtr("outage")})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, other.ID, list[0].ID)

	// the ledger still holds the deletion
	entries, err := f.store.Repos().Audit.ListByTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, domain.AuditDeleted, entries[0].Action)
	assert.Equal(t, "false", *entries[0].OldValue)
	assert.Equal(t, "true", *entries[0].NewValue)
}

func TestListTickets_Filters(t *testing.T) {
	f := newFixture(t)
	a := f.createTicket(t, "Alpha failure")
	f.createTicket(t, "Beta failure")
	_, err := f.tickets.ChangeStatus(f.ctx, a.ID, domain.TicketStatusAssigned, "bob")
	require.NoError(t, err)

	list, err := f.tickets.ListTickets(f.ctx, TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusAssigned}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	list, err = f.tickets.ListTickets(f.ctx, TicketListFilter{SearchTerm: strPtr("BETA")})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Beta failure", list[0].Title)

	list, err = f.tickets.ListTickets(f.ctx, TicketListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestComments(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Intermittent 502s")

	_, err := f.tickets.AddComment(f.ctx, ticket.ID, "bob", "  ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.tickets.AddComment(f.ctx, ticket.ID, "bob", "first")
	require.NoError(t, err)
	_, err = f.tickets.AddComment(f.ctx, ticket.ID, "carol", "second")
	require.NoError(t, err)

	comments, err := f.tickets.ListComments(f.ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Body)
	assert.Equal(t, "carol", comments[1].Author)
}

func TestAuditTrail_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t, "Order matters")
	f.clock.Set(baseTime.Add(time.Hour))
	_, err := f.tickets.ChangeStatus(f.ctx, ticket.ID, domain.TicketStatusAssigned, "bob")
	require.NoError(t, err)

	entries, err := f.tickets.AuditTrail(f.ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditStatusChanged, entries[0].Action)
	assert.Equal(t, domain.AuditCreated, entries[1].Action)
}
