package models

// ChatMessage is one earlier turn of a reader's conversation with the assistant.
type ChatMessage struct {
	Role    string `json:"role" validate:"omitempty,oneof=user assistant"` // "user" or "assistant"
	Content string `json:"content"`
}

// AskRequest is the payload of a reader question about the open material.
type AskRequest struct {
	Question string        `json:"question" validate:"required,max=2000"`
	History  []ChatMessage `json:"history" validate:"max=20,dive"`
}

type AskResponse struct {
	Reply string `json:"reply"`
}
