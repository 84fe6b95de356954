package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"readinglab-backend/internal/directory"
	"readinglab-backend/internal/models"
)

const (
	defaultActivityLimit = 100
	maxActivityLimit     = 1000
)

type activityLog interface {
	Log(user models.User, action models.Action, details, materialID string) models.Event
	Snapshot() []models.Event
}

type ActivityHandler struct {
	log       activityLog
	materials materialGetter
}

func NewActivityHandler(log activityLog, materials materialGetter) *ActivityHandler {
	return &ActivityHandler{log: log, materials: materials}
}

// Log appends an event on behalf of the caller. Admin actions are only
// logged by the admin endpoints, and OPEN_MATERIAL/CLOSE_MATERIAL only by
// the session endpoints. A participant may only reference a material that
// is assigned to them.
func (h *ActivityHandler) Log(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.LogActivityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if req.Action.Category() == models.CategoryAdmin {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Admin actions are recorded by the admin endpoints", r))
		return
	}
	if req.Action == models.ActionOpenMaterial || req.Action == models.ActionCloseMaterial {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Use the session open and close endpoints", r))
		return
	}

	if req.MaterialID != "" {
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
	}

	ev := h.log.Log(user, req.Action, req.Details, req.MaterialID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"event": ev,
	})
}

// List returns the log newest first. Participants only see their own events.
func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	limit := defaultActivityLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be a positive integer", r))
			return
		}
		limit = min(n, maxActivityLimit)
	}

	userFilter := q.Get("user_id")
	if user.Role != models.RoleAdmin {
		if userFilter != "" && userFilter != user.ID {
			writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
			return
		}
		userFilter = user.ID
	}
	materialFilter := q.Get("material_id")
	actionFilter := models.Action(q.Get("action"))

	snapshot := h.log.Snapshot()
	events := make([]models.Event, 0, min(limit, len(snapshot)))
	for _, ev := range snapshot {
		if userFilter != "" && ev.UserID != userFilter {
			continue
		}
		if materialFilter != "" && ev.MaterialID != materialFilter {
			continue
		}
		if actionFilter != "" && ev.Action != actionFilter {
			continue
		}
		events = append(events, ev)
		if len(events) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
