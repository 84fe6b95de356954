package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"readinglab-backend/internal/models"
)

type FormRepo struct {
	pool *pgxpool.Pool
}

func NewFormRepo(pool *pgxpool.Pool) *FormRepo {
	return &FormRepo{pool: pool}
}

func (r *FormRepo) List(ctx context.Context) ([]models.FormTemplate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title, type, content, questions, created_at FROM form_templates ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	defer rows.Close()

	var forms []models.FormTemplate
	for rows.Next() {
		var f models.FormTemplate
		if err := rows.Scan(&f.ID, &f.Title, &f.Type, &f.Content, &f.Questions, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan form: %w", err)
		}
		forms = append(forms, f)
	}
	return forms, rows.Err()
}

func (r *FormRepo) Create(ctx context.Context, f *models.FormTemplate) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.Questions == nil {
		f.Questions = []string{}
	}

	query := `INSERT INTO form_templates (id, title, type, content, questions)
		VALUES ($1, $2, $3, $4, $5) RETURNING created_at`

	return r.pool.QueryRow(ctx, query, f.ID, f.Title, f.Type, f.Content, f.Questions).Scan(&f.CreatedAt)
}

func (r *FormRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM form_templates WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
