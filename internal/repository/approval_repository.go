package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

// ApprovalRepository persists reviewer gates. Records belonging to deleted tickets are hidden.
type ApprovalRepository interface {
	CreateBatch(ctx context.Context, records []*domain.ApprovalRecord) error
	GetByID(ctx context.Context, id int64) (*domain.ApprovalRecord, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.ApprovalRecord, error)
	// Decide stores the verdict only while the stored record is still PENDING.
	Decide(ctx context.Context, record *domain.ApprovalRecord) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ApprovalRecord, error)
	ListPendingByReviewer(ctx context.Context, reviewer string) ([]domain.ApprovalRecord, error)
	CountByTicket(ctx context.Context, ticketID string) (int, error)
}

type approvalRepository struct {
	db DBTX
}

// NewApprovalRepository builds repository.
func NewApprovalRepository(db DBTX) ApprovalRepository {
	return &approvalRepository{db: db}
}

const approvalColumns = `a.id, a.ticket_id, a.reviewer, a.role, a.decision, a.comments, a.decided_at, a.created_at`

func (r *approvalRepository) CreateBatch(ctx context.Context, records []*domain.ApprovalRecord) error {
	const query = `
        INSERT INTO approval_records (ticket_id, reviewer, role, decision, comments, decided_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query, rec.TicketID, rec.Reviewer, rec.Role, rec.Decision, rec.Comments, rec.DecidedAt, rec.CreatedAt)
	}
	results := r.db.SendBatch(ctx, batch)
	defer results.Close()
	for _, rec := range records {
		if err := results.QueryRow().Scan(&rec.ID); err != nil {
			return err
		}
	}
	return results.Close()
}

func (r *approvalRepository) GetByID(ctx context.Context, id int64) (*domain.ApprovalRecord, error) {
	const query = `SELECT ` + approvalColumns + `
        FROM approval_records a JOIN tickets t ON t.id = a.ticket_id
        WHERE a.id=$1 AND t.deleted=FALSE`
	rec, err := scanApproval(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return rec, nil
}

func (r *approvalRepository) GetForUpdate(ctx context.Context, id int64) (*domain.ApprovalRecord, error) {
	const query = `SELECT ` + approvalColumns + `
        FROM approval_records a JOIN tickets t ON t.id = a.ticket_id
        WHERE a.id=$1 AND t.deleted=FALSE
        FOR UPDATE OF a`
	rec, err := scanApproval(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFoundOr(err)
	}
	return rec, nil
}

func (r *approvalRepository) Decide(ctx context.Context, record *domain.ApprovalRecord) error {
	const query = `
        UPDATE approval_records SET decision=$1, comments=$2, decided_at=$3
        WHERE id=$4 AND decision='PENDING'`
	cmd, err := r.db.Exec(ctx, query, record.Decision, record.Comments, record.DecidedAt, record.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (r *approvalRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ApprovalRecord, error) {
	const query = `SELECT ` + approvalColumns + `
        FROM approval_records a JOIN tickets t ON t.id = a.ticket_id
        WHERE a.ticket_id=$1 AND t.deleted=FALSE
        ORDER BY a.id ASC`
	return r.query(ctx, query, ticketID)
}

func (r *approvalRepository) ListPendingByReviewer(ctx context.Context, reviewer string) ([]domain.ApprovalRecord, error) {
	const query = `SELECT ` + approvalColumns + `
        FROM approval_records a JOIN tickets t ON t.id = a.ticket_id
        WHERE a.reviewer=$1 AND a.decision='PENDING' AND t.deleted=FALSE
        ORDER BY a.id ASC`
	return r.query(ctx, query, reviewer)
}

func (r *approvalRepository) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	const query = `SELECT COUNT(*) FROM approval_records WHERE ticket_id=$1`
	var count int
	if err := r.db.QueryRow(ctx, query, ticketID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *approvalRepository) query(ctx context.Context, query string, args ...any) ([]domain.ApprovalRecord, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ApprovalRecord
	for rows.Next() {
		rec, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func scanApproval(row pgx.Row) (*domain.ApprovalRecord, error) {
	var rec domain.ApprovalRecord
	if err := row.Scan(
		&rec.ID,
		&rec.TicketID,
		&rec.Reviewer,
		&rec.Role,
		&rec.Decision,
		&rec.Comments,
		&rec.DecidedAt,
		&rec.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}
