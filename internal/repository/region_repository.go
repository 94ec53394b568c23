package repository

import (
	"context"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

// RegionRepository reads region reference data.
type RegionRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Region, error)
	ListActive(ctx context.Context) ([]domain.Region, error)
}

type regionRepository struct {
	db DBTX
}

// NewRegionRepository constructs repository.
func NewRegionRepository(db DBTX) RegionRepository {
	return &regionRepository{db: db}
}

func (r *regionRepository) GetByID(ctx context.Context, id string) (*domain.Region, error) {
	const query = `
        SELECT id, name, default_assignment_group, is_active, created_at
        FROM regions WHERE id=$1`
	var region domain.Region
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&region.ID,
		&region.Name,
		&region.DefaultAssignmentGroup,
		&region.Active,
		&region.CreatedAt,
	); err != nil {
		return nil, notFoundOr(err)
	}
	return &region, nil
}

func (r *regionRepository) ListActive(ctx context.Context) ([]domain.Region, error) {
	const query = `
        SELECT id, name, default_assignment_group, is_active, created_at
        FROM regions WHERE is_active=TRUE ORDER BY name ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Region
	for rows.Next() {
		var region domain.Region
		if err := rows.Scan(
			&region.ID,
			&region.Name,
			&region.DefaultAssignmentGroup,
			&region.Active,
			&region.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, region)
	}
	return result, rows.Err()
}
