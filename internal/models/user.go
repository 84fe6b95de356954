package models

type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleParticipant Role = "PARTICIPANT"
)

type User struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Role      Role    `json:"role"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

func (u User) IsParticipant() bool {
	return u.Role == RoleParticipant
}

type CreateUserRequest struct {
	ID        string  `json:"id" validate:"required,max=64"`
	Name      string  `json:"name" validate:"required"`
	Role      Role    `json:"role" validate:"required,oneof=ADMIN PARTICIPANT"`
	AvatarURL *string `json:"avatar_url"`
}

// UpdateUserRequest patches a user. Absent fields are left unchanged.
type UpdateUserRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1"`
	Role      *Role   `json:"role" validate:"omitempty,oneof=ADMIN PARTICIPANT"`
	AvatarURL *string `json:"avatar_url"`
}
