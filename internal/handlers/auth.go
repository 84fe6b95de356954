package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"readinglab-backend/internal/directory"
	"readinglab-backend/internal/models"
)

type userGetter interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

type tokenIssuer interface {
	GenerateAccessToken(user models.User, ttl time.Duration) (string, error)
}

type userSessionCloser interface {
	CloseUser(userID string) int
}

// AuthHandler is the study sign-in: a participant picks their directory
// identity and receives a bearer token. LOGIN and LOGOUT are logged like any
// other activity.
type AuthHandler struct {
	users    userGetter
	tokens   tokenIssuer
	sessions userSessionCloser
	log      eventLogger
	ttl      time.Duration
}

func NewAuthHandler(users userGetter, tokens tokenIssuer, sessions userSessionCloser, log eventLogger, ttl time.Duration) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, sessions: sessions, log: log, ttl: ttl}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.users.GetUser(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Unknown user", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load user", r))
		}
		return
	}

	token, err := h.tokens.GenerateAccessToken(*user, h.ttl)
	if err != nil {
		log.Printf("auth: sign token for %s: %v", user.ID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}

	h.log.Log(*user, models.ActionLogin, "User logged in", "")
	writeJSON(w, http.StatusOK, models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int(h.ttl.Seconds()),
		User:        *user,
	})
}

// Logout closes the caller's open reading views before logging LOGOUT, so
// their CLOSE_MATERIAL events come first.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	closed := h.sessions.CloseUser(user.ID)
	h.log.Log(user, models.ActionLogout, "User logged out", "")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Logged out successfully",
		"closed_sessions": closed,
	})
}
