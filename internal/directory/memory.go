package directory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"readinglab-backend/internal/models"
)

// Memory is a process-local directory used when no database is configured
// and in tests.
type Memory struct {
	mu        sync.RWMutex
	users     []models.User
	materials []models.Material
	forms     []models.FormTemplate
	now       func() time.Time
}

func NewMemory(users []models.User, materials []models.Material, forms []models.FormTemplate) *Memory {
	m := &Memory{now: time.Now}
	m.users = append(m.users, users...)
	for _, mat := range materials {
		m.materials = append(m.materials, cloneMaterial(mat))
	}
	for _, f := range forms {
		m.forms = append(m.forms, cloneForm(f))
	}
	return m
}

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.ID == id {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.User, len(m.users))
	copy(out, m.users)
	return out, nil
}

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.userIndex(u.ID) >= 0 {
		return ErrUserExists
	}
	m.users = append(m.users, *u)
	return nil
}

func (m *Memory) UpdateUser(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.userIndex(u.ID)
	if i < 0 {
		return nil, ErrNotFound
	}
	m.users[i] = *u
	out := m.users[i]
	return &out, nil
}

// DeleteUser removes the user and drops them from every assignment set.
func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.userIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	m.users = append(m.users[:i], m.users[i+1:]...)

	for j := range m.materials {
		ids := m.materials[j].AssignedToUserIDs[:0]
		for _, uid := range m.materials[j].AssignedToUserIDs {
			if uid != id {
				ids = append(ids, uid)
			}
		}
		m.materials[j].AssignedToUserIDs = ids
	}
	return nil
}

func (m *Memory) ListMaterials(_ context.Context) ([]models.Material, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Material, 0, len(m.materials))
	for _, mat := range m.materials {
		out = append(out, cloneMaterial(mat))
	}
	return out, nil
}

func (m *Memory) GetMaterial(_ context.Context, id string) (*models.Material, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.materialIndex(id); i >= 0 {
		mat := cloneMaterial(m.materials[i])
		return &mat, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateMaterial(_ context.Context, mat *models.Material) error {
	if mat.ID == "" {
		mat.ID = uuid.New().String()
	}
	if mat.AssignedToUserIDs == nil {
		mat.AssignedToUserIDs = []string{}
	}

	m.mu.Lock()
	m.materials = append(m.materials, cloneMaterial(*mat))
	m.mu.Unlock()
	return nil
}

// AssignMaterial adds userIDs to the assignment set, keeping existing entries.
func (m *Memory) AssignMaterial(_ context.Context, materialID string, userIDs []string) (*models.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.materialIndex(materialID)
	if i < 0 {
		return nil, ErrNotFound
	}

	mat := &m.materials[i]
	for _, id := range userIDs {
		if !mat.AssignedTo(id) {
			mat.AssignedToUserIDs = append(mat.AssignedToUserIDs, id)
		}
	}

	out := cloneMaterial(*mat)
	return &out, nil
}

func (m *Memory) DeleteMaterial(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.materialIndex(id)
	if i < 0 {
		return ErrNotFound
	}
	m.materials = append(m.materials[:i], m.materials[i+1:]...)
	return nil
}

func (m *Memory) ListForms(_ context.Context) ([]models.FormTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.FormTemplate, 0, len(m.forms))
	for i := len(m.forms) - 1; i >= 0; i-- {
		out = append(out, cloneForm(m.forms[i]))
	}
	return out, nil
}

func (m *Memory) CreateForm(_ context.Context, f *models.FormTemplate) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = m.now()
	}

	m.mu.Lock()
	m.forms = append(m.forms, cloneForm(*f))
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeleteForm(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, f := range m.forms {
		if f.ID == id {
			m.forms = append(m.forms[:i], m.forms[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) userIndex(id string) int {
	for i := range m.users {
		if m.users[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) materialIndex(id string) int {
	for i := range m.materials {
		if m.materials[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneMaterial(mat models.Material) models.Material {
	mat.AssignedToUserIDs = append([]string{}, mat.AssignedToUserIDs...)
	return mat
}

func cloneForm(f models.FormTemplate) models.FormTemplate {
	if f.Questions != nil {
		f.Questions = append([]string{}, f.Questions...)
	}
	return f
}
