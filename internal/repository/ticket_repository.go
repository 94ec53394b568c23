package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

// TicketFilter captures list and search parameters.
type TicketFilter struct {
	Statuses        []domain.TicketStatus
	Classifications []domain.Classification
	RegionID        *string
	AssignedTo      *string
	CreatedBy       *string
	SearchTerm      *string
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence. Soft-deleted rows are never returned.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes the ticket if its version is unchanged and bumps ticket.Version.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListOpen(ctx context.Context) ([]domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `id, title, description, created_by, status, classification, rag_status,
               impact_count, priority, priority_score, target_resolution_hours, assigned_to,
               assignment_group, root_cause, workaround, permanent_fix, incident_link,
               change_request_link, knowledge_link, region_ids, application_ids, ticket_age_days,
               resolved_at, deleted, version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (` + ticketColumns + `)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`
	if ticket.Version == 0 {
		ticket.Version = 1
	}
	_, err := r.db.Exec(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.CreatedBy,
		ticket.Status,
		ticket.Classification,
		ticket.RagStatus,
		ticket.ImpactCount,
		ticket.Priority,
		ticket.PriorityScore,
		ticket.TargetResolutionHours,
		ticket.AssignedTo,
		ticket.AssignmentGroup,
		ticket.RootCause,
		ticket.Workaround,
		ticket.PermanentFix,
		ticket.IncidentLink,
		ticket.ChangeRequestLink,
		ticket.KnowledgeLink,
		ticket.RegionIDs,
		ticket.ApplicationIDs,
		ticket.TicketAgeDays,
		ticket.ResolvedAt,
		ticket.Deleted,
		ticket.Version,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	)
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, classification=$4, rag_status=$5,
            impact_count=$6, priority=$7, priority_score=$8, target_resolution_hours=$9, assigned_to=$10,
            assignment_group=$11, root_cause=$12, workaround=$13, permanent_fix=$14, incident_link=$15,
            change_request_link=$16, knowledge_link=$17, region_ids=$18, application_ids=$19,
            ticket_age_days=$20, resolved_at=$21, deleted=$22, updated_at=$23, version=version+1
        WHERE id=$24 AND version=$25`
	cmd, err := r.db.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Classification,
		ticket.RagStatus,
		ticket.ImpactCount,
		ticket.Priority,
		ticket.PriorityScore,
		ticket.TargetResolutionHours,
		ticket.AssignedTo,
		ticket.AssignmentGroup,
		ticket.RootCause,
		ticket.Workaround,
		ticket.PermanentFix,
		ticket.IncidentLink,
		ticket.ChangeRequestLink,
		ticket.KnowledgeLink,
		ticket.RegionIDs,
		ticket.ApplicationIDs,
		ticket.TicketAgeDays,
		ticket.ResolvedAt,
		ticket.Deleted,
		ticket.UpdatedAt,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND deleted=FALSE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 AND deleted=FALSE FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"deleted=FALSE"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Classifications) > 0 {
		placeholders := make([]string, len(filter.Classifications))
		for i, c := range filter.Classifications {
			args = append(args, c)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("classification IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RegionID != nil {
		args = append(args, *filter.RegionID)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(region_ids)", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)
	return r.query(ctx, query, args...)
}

func (r *ticketRepository) ListOpen(ctx context.Context) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets
        WHERE deleted=FALSE AND status NOT IN ('RESOLVED','CLOSED','REJECTED')
        ORDER BY created_at ASC`
	return r.query(ctx, query)
}

func (r *ticketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE deleted=FALSE ORDER BY created_at ASC`
	return r.query(ctx, query)
}

func (r *ticketRepository) query(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.CreatedBy,
		&ticket.Status,
		&ticket.Classification,
		&ticket.RagStatus,
		&ticket.ImpactCount,
		&ticket.Priority,
		&ticket.PriorityScore,
		&ticket.TargetResolutionHours,
		&ticket.AssignedTo,
		&ticket.AssignmentGroup,
		&ticket.RootCause,
		&ticket.Workaround,
		&ticket.PermanentFix,
		&ticket.IncidentLink,
		&ticket.ChangeRequestLink,
		&ticket.KnowledgeLink,
		&ticket.RegionIDs,
		&ticket.ApplicationIDs,
		&ticket.TicketAgeDays,
		&ticket.ResolvedAt,
		&ticket.Deleted,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
