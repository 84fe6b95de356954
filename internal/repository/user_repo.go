package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"readinglab-backend/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, name, role, avatar_url FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Name, &user.Role, &user.AvatarURL)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (r *UserRepo) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, role, avatar_url FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Role, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, name, role, avatar_url) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Name, u.Role, u.AvatarURL,
	)
	if err != nil {
		if errors.Is(conflict(err), ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Update overwrites name, role and avatar_url and returns the stored row.
func (r *UserRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	out := &models.User{}
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET name = $2, role = $3, avatar_url = $4
		WHERE id = $1
		RETURNING id, name, role, avatar_url
	`, u.ID, u.Name, u.Role, u.AvatarURL).Scan(&out.ID, &out.Name, &out.Role, &out.AvatarURL)
	if err != nil {
		return nil, notFound(err)
	}
	return out, nil
}

// Delete removes the user. Their material assignments go with them.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	var deleted string
	err := r.pool.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	if err != nil {
		return notFound(err)
	}
	return nil
}
