package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"readinglab-backend/internal/directory"
	"readinglab-backend/internal/models"
	"readinglab-backend/internal/stats"
)

type eventSnapshotter interface {
	Snapshot() []models.Event
}

type statsDirectory interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	ListMaterials(ctx context.Context) ([]models.Material, error)
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
}

type StatsHandler struct {
	log eventSnapshotter
	dir statsDirectory
	loc *time.Location
}

func NewStatsHandler(log eventSnapshotter, dir statsDirectory, loc *time.Location) *StatsHandler {
	return &StatsHandler{log: log, dir: dir, loc: loc}
}

// Dashboard is the admin overview: participant reads and AI queries plus the
// hourly activity histogram.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.dir.ListUsers(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load users", r))
		return
	}

	writeJSON(w, http.StatusOK, stats.Dashboard(h.log.Snapshot(), stats.IndexUsers(users), h.loc))
}

func (h *StatsHandler) Participants(w http.ResponseWriter, r *http.Request) {
	users, err := h.dir.ListUsers(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load users", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"participants": stats.ParticipantSummaries(h.log.Snapshot(), users),
	})
}

type readingListItem struct {
	models.Material
	Read bool `json:"read"`
}

// MyProgress returns the caller's completion over their assigned materials.
func (h *StatsHandler) MyProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	materials, err := h.dir.ListMaterials(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load materials", r))
		return
	}

	snapshot := h.log.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"completion":      stats.ComputeCompletion(snapshot, user.ID, stats.AssignedMaterialIDs(materials, user.ID)),
		"reading_seconds": stats.ReadingTime(snapshot, user.ID),
		"ai_queries":      stats.CountUserAction(snapshot, user.ID, models.ActionAIQuery),
	})
}

// ReadingList returns the materials assigned to the caller with read flags.
func (h *StatsHandler) ReadingList(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	materials, err := h.dir.ListMaterials(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load materials", r))
		return
	}

	read := stats.ReadMaterials(h.log.Snapshot(), user.ID)
	items := make([]readingListItem, 0)
	for _, m := range materials {
		if !m.AssignedTo(user.ID) {
			continue
		}
		_, done := read[m.ID]
		items = append(items, readingListItem{Material: m, Read: done})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"materials": items,
	})
}

// MaterialState lists a material's assignees and whether each has read it.
func (h *StatsHandler) MaterialState(w http.ResponseWriter, r *http.Request) {
	material, ok := h.loadMaterial(w, r)
	if !ok {
		return
	}

	users, err := h.dir.ListUsers(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load users", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"material_id": material.ID,
		"assignees":   stats.MaterialAssignmentState(h.log.Snapshot(), *material, stats.IndexUsers(users)),
	})
}

// ReadState answers whether user_id (default: the caller) opened the
// material. Participants may only ask about themselves.
func (h *StatsHandler) ReadState(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	target := r.URL.Query().Get("user_id")
	if target == "" {
		target = user.ID
	}
	if target != user.ID && user.Role != models.RoleAdmin {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	material, ok := h.loadMaterial(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":     target,
		"material_id": material.ID,
		"read":        stats.ReadState(h.log.Snapshot(), target, material.ID),
	})
}

func (h *StatsHandler) loadMaterial(w http.ResponseWriter, r *http.Request) (*models.Material, bool) {
	material, err := h.dir.GetMaterial(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Material not found", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load material", r))
		}
		return nil, false
	}
	return material, true
}
