package models

import "time"

type MaterialType string

const (
	MaterialText  MaterialType = "TEXT"
	MaterialHTML  MaterialType = "HTML"
	MaterialImage MaterialType = "IMAGE"
	MaterialVideo MaterialType = "VIDEO"
	MaterialAudio MaterialType = "AUDIO"
)

type Material struct {
	ID                string       `json:"id"`
	Title             string       `json:"title"`
	Author            string       `json:"author"`
	Type              MaterialType `json:"type"`
	Content           string       `json:"content"` // URL for media, body for text/html
	CoverURL          string       `json:"cover_url"`
	AssignedToUserIDs []string     `json:"assigned_to_user_ids"`
}

// AssignedTo reports whether userID is in the material's assignment set.
func (m Material) AssignedTo(userID string) bool {
	for _, id := range m.AssignedToUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type FormType string

const (
	FormConsent       FormType = "CONSENT"
	FormQuestionnaire FormType = "QUESTIONNAIRE"
)

type FormTemplate struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      FormType  `json:"type"`
	Content   string    `json:"content"`
	Questions []string  `json:"questions,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateMaterialRequest struct {
	Title    string       `json:"title" validate:"required"`
	Author   string       `json:"author"`
	Type     MaterialType `json:"type" validate:"required,oneof=TEXT HTML IMAGE VIDEO AUDIO"`
	Content  string       `json:"content" validate:"required"`
	CoverURL string       `json:"cover_url"`
}

type AssignMaterialRequest struct {
	UserIDs []string `json:"user_ids" validate:"required,min=1,dive,required"`
}

type CreateFormRequest struct {
	Title     string   `json:"title" validate:"required"`
	Type      FormType `json:"type" validate:"required,oneof=CONSENT QUESTIONNAIRE"`
	Content   string   `json:"content"`
	Questions []string `json:"questions"`
}
