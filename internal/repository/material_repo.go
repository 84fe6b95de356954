package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"readinglab-backend/internal/models"
)

type MaterialRepo struct {
	pool *pgxpool.Pool
}

func NewMaterialRepo(pool *pgxpool.Pool) *MaterialRepo {
	return &MaterialRepo{pool: pool}
}

const materialColumns = `m.id, m.title, m.author, m.type, m.content, m.cover_url,
	COALESCE(array_agg(a.user_id ORDER BY a.user_id) FILTER (WHERE a.user_id IS NOT NULL), '{}')`

func scanMaterial(row pgx.Row) (*models.Material, error) {
	m := &models.Material{}
	err := row.Scan(&m.ID, &m.Title, &m.Author, &m.Type, &m.Content, &m.CoverURL, &m.AssignedToUserIDs)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MaterialRepo) List(ctx context.Context) ([]models.Material, error) {
	query := `SELECT ` + materialColumns + `
		FROM materials m
		LEFT JOIN material_assignments a ON a.material_id = m.id
		GROUP BY m.id
		ORDER BY m.created_at, m.id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var materials []models.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		materials = append(materials, *m)
	}
	return materials, rows.Err()
}

func (r *MaterialRepo) GetByID(ctx context.Context, id string) (*models.Material, error) {
	query := `SELECT ` + materialColumns + `
		FROM materials m
		LEFT JOIN material_assignments a ON a.material_id = m.id
		WHERE m.id = $1
		GROUP BY m.id`

	m, err := scanMaterial(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return m, nil
}

func (r *MaterialRepo) Create(ctx context.Context, m *models.Material) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.AssignedToUserIDs == nil {
		m.AssignedToUserIDs = []string{}
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO materials (id, title, author, type, content, cover_url) VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.Title, m.Author, m.Type, m.Content, m.CoverURL,
	)
	if err != nil {
		return fmt.Errorf("insert material: %w", err)
	}
	return nil
}

// Assign adds userIDs to the material's assignment set. Existing assignments
// are kept.
func (r *MaterialRepo) Assign(ctx context.Context, materialID string, userIDs []string) (*models.Material, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin assign: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM materials WHERE id = $1)", materialID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check material: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO material_assignments (material_id, user_id)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING
	`, materialID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("insert assignments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit assign: %w", err)
	}
	return r.GetByID(ctx, materialID)
}

// Delete removes the material and, by cascade, its assignments.
func (r *MaterialRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM materials WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
