package repositories

import (
	"context"
	"fmt"

	"wmscore/internal/models"
)

type UserRepository interface {
	ListByRole(ctx context.Context, role string) ([]*models.User, error)
}

type userRepo struct {
	db Database
}

func NewUserRepo(db Database) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) ListByRole(ctx context.Context, role string) ([]*models.User, error) {
	query := `SELECT id, name, email, role FROM users WHERE role = $1 ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, role)
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
