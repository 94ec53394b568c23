// Package memory provides an in-process repository.Store used when no database
// is configured and by service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
	"github.com/praveen2025work/ticketapp-sub000/internal/repository"
)

type state struct {
	tickets      map[string]*domain.Ticket
	approvals    map[int64]*domain.ApprovalRecord
	audit        []domain.AuditLogEntry
	articles     map[string]*domain.KnowledgeArticle
	comments     []domain.TicketComment
	regions      map[string]*domain.Region
	applications map[string]*domain.Application
	users        []domain.AppUser

	nextApprovalID int64
	nextAuditID    int64
}

func newState() *state {
	return &state{
		tickets:      map[string]*domain.Ticket{},
		approvals:    map[int64]*domain.ApprovalRecord{},
		articles:     map[string]*domain.KnowledgeArticle{},
		regions:      map[string]*domain.Region{},
		applications: map[string]*domain.Application{},
	}
}

// clone copies the containers. Stored values are replaced on write, never mutated in place.
func (s *state) clone() *state {
	cp := &state{
		tickets:        make(map[string]*domain.Ticket, len(s.tickets)),
		approvals:      make(map[int64]*domain.ApprovalRecord, len(s.approvals)),
		audit:          append([]domain.AuditLogEntry(nil), s.audit...),
		articles:       make(map[string]*domain.KnowledgeArticle, len(s.articles)),
		comments:       append([]domain.TicketComment(nil), s.comments...),
		regions:        s.regions,
		applications:   s.applications,
		users:          s.users,
		nextApprovalID: s.nextApprovalID,
		nextAuditID:    s.nextAuditID,
	}
	for k, v := range s.tickets {
		cp.tickets[k] = v
	}
	for k, v := range s.approvals {
		cp.approvals[k] = v
	}
	for k, v := range s.articles {
		cp.articles[k] = v
	}
	return cp
}

// Store is a mutex-guarded repository.Store. Transactions run one at a time.
type Store struct {
	mu         sync.Mutex
	st         *state
	auditError error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// view runs fn against some state: either the committed one (locking) or a tx snapshot.
type view func(fn func(*state) error) error

func (s *Store) committed(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) repos(v view) repository.Repositories {
	return repository.Repositories{
		Tickets:      &ticketRepo{v: v},
		Approvals:    &approvalRepo{v: v},
		Audit:        &auditRepo{v: v, store: s},
		Articles:     &articleRepo{v: v},
		Comments:     &commentRepo{v: v},
		Regions:      &regionRepo{v: v},
		Applications: &applicationRepo{v: v},
		Users:        &userRepo{v: v},
	}
}

func (s *Store) Repos() repository.Repositories {
	return s.repos(s.committed)
}

func (s *Store) WithinTx(ctx context.Context, fn func(repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	tx := func(inner func(*state) error) error { return inner(snapshot) }
	if err := fn(s.repos(tx)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.st = snapshot
	return nil
}

// FailAuditWrites makes every subsequent audit append fail with err; nil restores normal writes.
func (s *Store) FailAuditWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditError = err
}

// AddRegion seeds reference data.
func (s *Store) AddRegion(region domain.Region) {
	_ = s.committed(func(st *state) error {
		cp := region
		regions := make(map[string]*domain.Region, len(st.regions)+1)
		for k, v := range st.regions {
			regions[k] = v
		}
		regions[region.ID] = &cp
		st.regions = regions
		return nil
	})
}

// AddApplication seeds reference data.
func (s *Store) AddApplication(app domain.Application) {
	_ = s.committed(func(st *state) error {
		cp := app
		apps := make(map[string]*domain.Application, len(st.applications)+1)
		for k, v := range st.applications {
			apps[k] = v
		}
		apps[app.ID] = &cp
		st.applications = apps
		return nil
	})
}

// AddUser seeds the reviewer directory.
func (s *Store) AddUser(user domain.AppUser) {
	_ = s.committed(func(st *state) error {
		st.users = append(append([]domain.AppUser(nil), st.users...), user)
		return nil
	})
}

type ticketRepo struct{ v view }

func (r *ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.v(func(st *state) error {
		if ticket.Version == 0 {
			ticket.Version = 1
		}
		st.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r *ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.v(func(st *state) error {
		current, ok := st.tickets[ticket.ID]
		if !ok || current.Version != ticket.Version {
			return repository.ErrConflict
		}
		ticket.Version++
		st.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.v(func(st *state) error {
		t, ok := st.tickets[id]
		if !ok || t.Deleted {
			return repository.ErrNotFound
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r *ticketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.v(func(st *state) error {
		for _, t := range sortedTickets(st) {
			if matchesFilter(t, filter) {
				out = append(out, *t.Clone())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (r *ticketRepo) ListOpen(_ context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.v(func(st *state) error {
		for _, t := range sortedTickets(st) {
			if t.IsOpen() {
				out = append(out, *t.Clone())
			}
		}
		return nil
	})
	return out, err
}

func (r *ticketRepo) ListAll(_ context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.v(func(st *state) error {
		for _, t := range sortedTickets(st) {
			out = append(out, *t.Clone())
		}
		return nil
	})
	return out, err
}

func sortedTickets(st *state) []*domain.Ticket {
	list := make([]*domain.Ticket, 0, len(st.tickets))
	for _, t := range st.tickets {
		if !t.Deleted {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
	return list
}

func matchesFilter(t *domain.Ticket, f repository.TicketFilter) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.Classifications) > 0 {
		found := false
		for _, c := range f.Classifications {
			if c == t.Classification {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	if f.RegionID != nil && !containsString(t.RegionIDs, *f.RegionID) {
		return false
	}
	if f.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo) {
		return false
	}
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*f.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(t.Title), term) &&
			!strings.Contains(strings.ToLower(t.Description), term) {
			return false
		}
	}
	return true
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func liveTicket(st *state, ticketID string) bool {
	t, ok := st.tickets[ticketID]
	return ok && !t.Deleted
}

type approvalRepo struct{ v view }

func copyApproval(a *domain.ApprovalRecord) *domain.ApprovalRecord {
	cp := *a
	if a.Comments != nil {
		c := *a.Comments
		cp.Comments = &c
	}
	if a.DecidedAt != nil {
		d := *a.DecidedAt
		cp.DecidedAt = &d
	}
	return &cp
}

func (r *approvalRepo) CreateBatch(_ context.Context, records []*domain.ApprovalRecord) error {
	return r.v(func(st *state) error {
		for _, rec := range records {
			st.nextApprovalID++
			rec.ID = st.nextApprovalID
			st.approvals[rec.ID] = copyApproval(rec)
		}
		return nil
	})
}

func (r *approvalRepo) GetByID(_ context.Context, id int64) (*domain.ApprovalRecord, error) {
	var out *domain.ApprovalRecord
	err := r.v(func(st *state) error {
		rec, ok := st.approvals[id]
		if !ok || !liveTicket(st, rec.TicketID) {
			return repository.ErrNotFound
		}
		out = copyApproval(rec)
		return nil
	})
	return out, err
}

func (r *approvalRepo) GetForUpdate(ctx context.Context, id int64) (*domain.ApprovalRecord, error) {
	return r.GetByID(ctx, id)
}

func (r *approvalRepo) Decide(_ context.Context, record *domain.ApprovalRecord) error {
	return r.v(func(st *state) error {
		current, ok := st.approvals[record.ID]
		if !ok || current.Decision != domain.DecisionPending {
			return repository.ErrConflict
		}
		st.approvals[record.ID] = copyApproval(record)
		return nil
	})
}

func (r *approvalRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.ApprovalRecord, error) {
	return r.collect(func(st *state, rec *domain.ApprovalRecord) bool {
		return rec.TicketID == ticketID
	})
}

func (r *approvalRepo) ListPendingByReviewer(_ context.Context, reviewer string) ([]domain.ApprovalRecord, error) {
	return r.collect(func(st *state, rec *domain.ApprovalRecord) bool {
		return rec.Reviewer == reviewer && rec.Decision == domain.DecisionPending
	})
}

func (r *approvalRepo) CountByTicket(_ context.Context, ticketID string) (int, error) {
	count := 0
	err := r.v(func(st *state) error {
		for _, rec := range st.approvals {
			if rec.TicketID == ticketID {
				count++
			}
		}
		return nil
	})
	return count, err
}

func (r *approvalRepo) collect(match func(*state, *domain.ApprovalRecord) bool) ([]domain.ApprovalRecord, error) {
	var out []domain.ApprovalRecord
	err := r.v(func(st *state) error {
		for _, rec := range st.approvals {
			if liveTicket(st, rec.TicketID) && match(st, rec) {
				out = append(out, *copyApproval(rec))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type auditRepo struct {
	v     view
	store *Store
}

func (r *auditRepo) Append(_ context.Context, entry *domain.AuditLogEntry) error {
	return r.v(func(st *state) error {
		if r.store.auditError != nil {
			return r.store.auditError
		}
		st.nextAuditID++
		entry.ID = st.nextAuditID
		st.audit = append(st.audit, *entry)
		return nil
	})
}

func (r *auditRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.AuditLogEntry, error) {
	var out []domain.AuditLogEntry
	err := r.v(func(st *state) error {
		for _, e := range st.audit {
			if e.TicketID == ticketID {
				out = append(out, e)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}

type articleRepo struct{ v view }

func (r *articleRepo) Create(_ context.Context, article *domain.KnowledgeArticle) error {
	return r.v(func(st *state) error {
		if _, exists := st.articles[article.TicketID]; exists {
			return repository.ErrConflict
		}
		cp := *article
		st.articles[article.TicketID] = &cp
		return nil
	})
}

func (r *articleRepo) GetByTicket(_ context.Context, ticketID string) (*domain.KnowledgeArticle, error) {
	var out *domain.KnowledgeArticle
	err := r.v(func(st *state) error {
		a, ok := st.articles[ticketID]
		if !ok || !liveTicket(st, ticketID) {
			return repository.ErrNotFound
		}
		cp := *a
		out = &cp
		return nil
	})
	return out, err
}

type commentRepo struct{ v view }

func (r *commentRepo) Create(_ context.Context, comment *domain.TicketComment) error {
	return r.v(func(st *state) error {
		st.comments = append(st.comments, *comment)
		return nil
	})
}

func (r *commentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketComment, error) {
	var out []domain.TicketComment
	err := r.v(func(st *state) error {
		for _, c := range st.comments {
			if c.TicketID == ticketID {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

type regionRepo struct{ v view }

func (r *regionRepo) GetByID(_ context.Context, id string) (*domain.Region, error) {
	var out *domain.Region
	err := r.v(func(st *state) error {
		region, ok := st.regions[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := *region
		out = &cp
		return nil
	})
	return out, err
}

func (r *regionRepo) ListActive(_ context.Context) ([]domain.Region, error) {
	var out []domain.Region
	err := r.v(func(st *state) error {
		for _, region := range st.regions {
			if region.Active {
				out = append(out, *region)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

type applicationRepo struct{ v view }

func (r *applicationRepo) GetByID(_ context.Context, id string) (*domain.Application, error) {
	var out *domain.Application
	err := r.v(func(st *state) error {
		app, ok := st.applications[id]
		if !ok {
			return repository.ErrNotFound
		}
		cp := *app
		out = &cp
		return nil
	})
	return out, err
}

type userRepo struct{ v view }

func (r *userRepo) GetByUsername(_ context.Context, username string) (*domain.AppUser, error) {
	var out *domain.AppUser
	err := r.v(func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				cp := u
				out = &cp
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *userRepo) ListActiveByRoles(_ context.Context, roles []domain.Role) ([]domain.AppUser, error) {
	var out []domain.AppUser
	err := r.v(func(st *state) error {
		for _, u := range st.users {
			if !u.Active {
				continue
			}
			for _, role := range roles {
				if u.Role == role {
					out = append(out, u)
					break
				}
			}
		}
		return nil
	})
	return out, err
}
