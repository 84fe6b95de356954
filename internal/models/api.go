package models

// WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type LogActivityRequest struct {
	Action     Action `json:"action" validate:"required,max=64"`
	Details    string `json:"details" validate:"max=4000"`
	MaterialID string `json:"material_id"`
}

type OpenSessionRequest struct {
	MaterialID string `json:"material_id" validate:"required"`
}

// SessionEventRequest reports one interaction inside an open reading session.
// MediaKind applies to MEDIA_PLAY and MEDIA_PAUSE.
type SessionEventRequest struct {
	Action    Action `json:"action" validate:"required,max=64"`
	Details   string `json:"details" validate:"max=4000"`
	MediaKind string `json:"media_kind" validate:"omitempty,oneof=Video Audio"`
}

type ProgressRequest struct {
	Percent *int `json:"percent" validate:"required,min=0,max=100"`
}

// LoginRequest picks a study identity from the directory.
type LoginRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	User        User   `json:"user"`
}
