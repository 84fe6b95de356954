// Package directory resolves users, materials and their assignments, and the
// research form templates. It never sees the activity log.
package directory

import (
	"context"

	"readinglab-backend/internal/models"
	"readinglab-backend/internal/repository"
)

// ErrNotFound is returned for unknown users, materials and forms.
var ErrNotFound = repository.ErrNotFound

// ErrUserExists is returned when creating a user whose id is taken.
var ErrUserExists = repository.ErrConflict

type Directory interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error

	ListMaterials(ctx context.Context) ([]models.Material, error)
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
	CreateMaterial(ctx context.Context, m *models.Material) error
	AssignMaterial(ctx context.Context, materialID string, userIDs []string) (*models.Material, error)
	DeleteMaterial(ctx context.Context, id string) error

	ListForms(ctx context.Context) ([]models.FormTemplate, error)
	CreateForm(ctx context.Context, f *models.FormTemplate) error
	DeleteForm(ctx context.Context, id string) error
}

// Postgres backs the directory with the pgx repositories.
type Postgres struct {
	users     *repository.UserRepo
	materials *repository.MaterialRepo
	forms     *repository.FormRepo
}

func NewPostgres(users *repository.UserRepo, materials *repository.MaterialRepo, forms *repository.FormRepo) *Postgres {
	return &Postgres{users: users, materials: materials, forms: forms}
}

func (p *Postgres) GetUser(ctx context.Context, id string) (*models.User, error) {
	return p.users.GetByID(ctx, id)
}

func (p *Postgres) ListUsers(ctx context.Context) ([]models.User, error) {
	return p.users.List(ctx)
}

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	return p.users.Create(ctx, u)
}

func (p *Postgres) UpdateUser(ctx context.Context, u *models.User) (*models.User, error) {
	return p.users.Update(ctx, u)
}

func (p *Postgres) DeleteUser(ctx context.Context, id string) error {
	return p.users.Delete(ctx, id)
}

func (p *Postgres) ListMaterials(ctx context.Context) ([]models.Material, error) {
	return p.materials.List(ctx)
}

func (p *Postgres) GetMaterial(ctx context.Context, id string) (*models.Material, error) {
	return p.materials.GetByID(ctx, id)
}

func (p *Postgres) CreateMaterial(ctx context.Context, m *models.Material) error {
	return p.materials.Create(ctx, m)
}

func (p *Postgres) AssignMaterial(ctx context.Context, materialID string, userIDs []string) (*models.Material, error) {
	return p.materials.Assign(ctx, materialID, userIDs)
}

func (p *Postgres) DeleteMaterial(ctx context.Context, id string) error {
	return p.materials.Delete(ctx, id)
}

func (p *Postgres) ListForms(ctx context.Context) ([]models.FormTemplate, error) {
	return p.forms.List(ctx)
}

func (p *Postgres) CreateForm(ctx context.Context, f *models.FormTemplate) error {
	return p.forms.Create(ctx, f)
}

func (p *Postgres) DeleteForm(ctx context.Context, id string) error {
	return p.forms.Delete(ctx, id)
}
