package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"readinglab-backend/internal/directory"
	"readinglab-backend/internal/models"
	"readinglab-backend/internal/session"
)

type sessionManager interface {
	Open(user models.User, material models.Material) (uuid.UUID, *session.Tracker, error)
	Get(id uuid.UUID, userID string) (*session.Tracker, error)
	Info(id uuid.UUID, userID string) (session.Info, error)
	Heartbeat(id uuid.UUID, userID string) error
	Close(id uuid.UUID, userID string) (models.CloseDetails, error)
}

type materialGetter interface {
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
}

// ReaderAssistant answers a reader's question about the material they have open.
type ReaderAssistant interface {
	Answer(ctx context.Context, material models.Material, question string, history []models.ChatMessage) (string, error)
}

// SessionHandler serves a participant's reading view: one session per open
// material, with interactions logged as they happen.
type SessionHandler struct {
	sessions  sessionManager
	materials materialGetter
	assistant ReaderAssistant
}

// NewSessionHandler wires the handler. assistant may be nil, in which case
// questions are still logged but answered with AI_UNAVAILABLE.
func NewSessionHandler(sessions sessionManager, materials materialGetter, assistant ReaderAssistant) *SessionHandler {
	return &SessionHandler{sessions: sessions, materials: materials, assistant: assistant}
}

func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.OpenSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	material, err := h.materials.GetMaterial(r.Context(), req.MaterialID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Material not found", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load material", r))
		}
		return
	}

	if user.Role != models.RoleAdmin && !material.AssignedTo(user.ID) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Material is not assigned to you", r))
		return
	}

	id, _, err := h.sessions.Open(user, *material)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
		return
	}

	info, err := h.sessions.Info(id, user.ID)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session":  info,
		"material": material,
	})
}

// RecordEvent logs one reader interaction. Lifecycle actions other than
// FINISH_READING go through Open and Close instead.
func (h *SessionHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	tracker, user, ok := h.loadTracker(w, r)
	if !ok {
		return
	}

	var req models.SessionEventRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var err error
	switch req.Action {
	case models.ActionOpenMaterial, models.ActionCloseMaterial:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Use the session open and close endpoints", r))
		return
	case models.ActionMediaPlay, models.ActionMediaPause:
		kind := session.MediaKind(req.MediaKind)
		if kind == "" {
			kind = mediaKindFor(tracker.Material().Type)
		}
		if req.Action == models.ActionMediaPlay {
			err = tracker.MediaPlay(kind)
		} else {
			err = tracker.MediaPause(kind)
		}
	case models.ActionAIQuery:
		err = tracker.AIQuery(req.Details)
	case models.ActionGenerateImage:
		err = tracker.GenerateImage()
	case models.ActionGenerateVideo:
		err = tracker.GenerateVideo()
	case models.ActionStartTTS:
		err = tracker.StartTTS()
	case models.ActionPauseTTS:
		err = tracker.PauseTTS()
	case models.ActionResumeTTS:
		err = tracker.ResumeTTS()
	case models.ActionStopTTS:
		err = tracker.StopTTS()
	case models.ActionFinishReading:
		err = tracker.FinishReading()
	default:
		if req.Action.Category() == models.CategoryAdmin {
			writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Admin actions are recorded by the admin endpoints", r))
			return
		}
		err = tracker.Record(req.Action, req.Details)
	}
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	log.Printf("session: %s recorded %s on %s", user.ID, req.Action, tracker.Material().ID)
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Event recorded"})
}

func (h *SessionHandler) Progress(w http.ResponseWriter, r *http.Request) {
	tracker, _, ok := h.loadTracker(w, r)
	if !ok {
		return
	}

	var req models.ProgressRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := tracker.SetProgress(*req.Percent); err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"scroll_progress_percent": tracker.Progress()})
}

func (h *SessionHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	if err := h.sessions.Heartbeat(sessionID, user.ID); err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Heartbeat recorded"})
}

// Ask logs the question first, then asks the assistant. The log entry stands
// even if the answer never comes.
func (h *SessionHandler) Ask(w http.ResponseWriter, r *http.Request) {
	tracker, _, ok := h.loadTracker(w, r)
	if !ok {
		return
	}

	var req models.AskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := tracker.AIQuery(req.Question); err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	if h.assistant == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("AI_UNAVAILABLE", "AI assistant is not configured", r))
		return
	}

	reply, err := h.assistant.Answer(r.Context(), tracker.Material(), req.Question, req.History)
	if err != nil {
		log.Printf("session: assistant error on %s: %v", tracker.Material().ID, err)
		writeJSON(w, http.StatusBadGateway, errorResp("AI_ERROR", "Failed to get AI response", r))
		return
	}

	writeJSON(w, http.StatusOK, models.AskResponse{Reply: reply})
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}

	details, err := h.sessions.Close(sessionID, user.ID)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Session closed",
		"details": details,
	})
}

func (h *SessionHandler) loadTracker(w http.ResponseWriter, r *http.Request) (*session.Tracker, models.User, bool) {
	user, ok := requireUser(w, r)
	if !ok {
		return nil, models.User{}, false
	}
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return nil, models.User{}, false
	}

	tracker, err := h.sessions.Get(sessionID, user.ID)
	if err != nil {
		h.writeSessionError(w, r, err)
		return nil, models.User{}, false
	}
	return tracker, user, true
}

func (h *SessionHandler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrClosed):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Session not found or already closed", r))
	case errors.Is(err, session.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid session ID", r))
		return uuid.Nil, false
	}
	return id, true
}

func mediaKindFor(t models.MaterialType) session.MediaKind {
	if t == models.MaterialAudio {
		return session.MediaAudio
	}
	return session.MediaVideo
}
