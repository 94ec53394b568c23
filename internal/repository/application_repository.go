package repository

import (
	"context"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

// ApplicationRepository reads impacted-application reference data.
type ApplicationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Application, error)
}

type applicationRepository struct {
	db DBTX
}

// NewApplicationRepository constructs repository.
func NewApplicationRepository(db DBTX) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	const query = `
        SELECT id, name, region_id, is_active, created_at
        FROM applications WHERE id=$1`
	var app domain.Application
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&app.ID,
		&app.Name,
		&app.RegionID,
		&app.Active,
		&app.CreatedAt,
	); err != nil {
		return nil, notFoundOr(err)
	}
	return &app, nil
}
