package repository

import (
	"context"

	"github.com/praveen2025work/ticketapp-sub000/internal/domain"
)

// UserRepository is the directory of people who act on tickets.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.AppUser, error)
	// ListActiveByRoles returns active users holding any of the roles, oldest first.
	ListActiveByRoles(ctx context.Context, roles []domain.Role) ([]domain.AppUser, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository instantiates the repository.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, username, email, display_name, role, active_flag, created_at, updated_at`

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.AppUser, error) {
	const query = `SELECT ` + userColumns + ` FROM app_users WHERE username=$1`

	var user domain.AppUser
	if err := r.db.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.DisplayName,
		&user.Role,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

func (r *userRepository) ListActiveByRoles(ctx context.Context, roles []domain.Role) ([]domain.AppUser, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	const query = `SELECT ` + userColumns + `
        FROM app_users WHERE active_flag=TRUE AND role = ANY($1)
        ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AppUser
	for rows.Next() {
		var user domain.AppUser
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.DisplayName,
			&user.Role,
			&user.Active,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
