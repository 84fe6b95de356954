package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"readinglab-backend/internal/directory"
	"readinglab-backend/internal/models"
)

type eventLogger interface {
	Log(user models.User, action models.Action, details, materialID string) models.Event
}

type adminDirectory interface {
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

// AdminHandler manages study users, the material library and research
// forms. Material and form mutations are written to the activity log under
// the admin's name.
type AdminHandler struct {
	dir adminDirectory
	log eventLogger
}

func NewAdminHandler(dir adminDirectory, log eventLogger) *AdminHandler {
	return &AdminHandler{dir: dir, log: log}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.dir.ListUsers(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load users", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.dir.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeUserError(w, r, err, "Failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user := &models.User{ID: req.ID, Name: req.Name, Role: req.Role, AvatarURL: req.AvatarURL}
	if err := h.dir.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, directory.ErrUserExists) {
			writeJSON(w, http.StatusConflict, errorRespWithFields("CONFLICT", "User already exists",
				map[string]string{"id": req.ID}, r))
			return
		}
		log.Printf("admin: create user: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create user", r))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": user})
}

// UpdateUser applies the fields present in the request. Events already in
// the activity log keep the name the user had when they were written.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.dir.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeUserError(w, r, err, "Failed to load user")
		return
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.AvatarURL != nil {
		user.AvatarURL = req.AvatarURL
	}

	updated, err := h.dir.UpdateUser(r.Context(), user)
	if err != nil {
		h.writeUserError(w, r, err, "Failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": updated})
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if id == admin.ID {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "You cannot delete your own account", r))
		return
	}

	if err := h.dir.DeleteUser(r.Context(), id); err != nil {
		h.writeUserError(w, r, err, "Failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

func (h *AdminHandler) writeUserError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, directory.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "User not found", r))
		return
	}
	log.Printf("admin: %s: %v", msg, err)
	writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", msg, r))
}

func (h *AdminHandler) ListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := h.dir.ListMaterials(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load materials", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"materials": materials})
}

func (h *AdminHandler) CreateMaterial(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateMaterialRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	material := &models.Material{
		Title:             req.Title,
		Author:            req.Author,
		Type:              req.Type,
		Content:           req.Content,
		CoverURL:          req.CoverURL,
		AssignedToUserIDs: []string{},
	}
	if err := h.dir.CreateMaterial(r.Context(), material); err != nil {
		log.Printf("admin: create material: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create material", r))
		return
	}

	h.log.Log(admin, models.ActionCreateMaterial, fmt.Sprintf("Created %s", material.Title), "")
	writeJSON(w, http.StatusCreated, map[string]interface{}{"material": material})
}

// AssignMaterial adds participants to a material's assignment set. Unknown
// user ids reject the whole request.
func (h *AdminHandler) AssignMaterial(w http.ResponseWriter, r *http.Request) {
	var req models.AssignMaterialRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	for _, id := range req.UserIDs {
		if _, err := h.dir.GetUser(r.Context(), id); err != nil {
			if errors.Is(err, directory.ErrNotFound) {
				writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Unknown user",
					map[string]string{"user_ids": id}, r))
			} else {
				writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load users", r))
			}
			return
		}
	}

	material, err := h.dir.AssignMaterial(r.Context(), chi.URLParam(r, "id"), req.UserIDs)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Material not found", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to assign material", r))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"material": material})
}

// DeleteMaterial removes a material and its assignments. Events that
// reference it stay in the activity log.
func (h *AdminHandler) DeleteMaterial(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	material, err := h.dir.GetMaterial(r.Context(), id)
	if err == nil {
		err = h.dir.DeleteMaterial(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Material not found", r))
		} else {
			log.Printf("admin: delete material: %v", err)
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete material", r))
		}
		return
	}

	h.log.Log(admin, models.ActionDeleteMaterial, fmt.Sprintf("Deleted %s", material.Title), "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Material deleted"})
}

func (h *AdminHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.dir.ListForms(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load forms", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"forms": forms})
}

func (h *AdminHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateFormRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	form := &models.FormTemplate{
		Title:     req.Title,
		Type:      req.Type,
		Content:   req.Content,
		Questions: req.Questions,
	}
	if err := h.dir.CreateForm(r.Context(), form); err != nil {
		log.Printf("admin: create form: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create form", r))
		return
	}

	h.log.Log(admin, models.ActionCreateForm, fmt.Sprintf("Created %s", form.Title), "")
	writeJSON(w, http.StatusCreated, map[string]interface{}{"form": form})
}

func (h *AdminHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireUser(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	forms, err := h.dir.ListForms(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load forms", r))
		return
	}
	title := ""
	for _, f := range forms {
		if f.ID == id {
			title = f.Title
			break
		}
	}

	if err := h.dir.DeleteForm(r.Context(), id); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Form not found", r))
		} else {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete form", r))
		}
		return
	}

	h.log.Log(admin, models.ActionDeleteForm, fmt.Sprintf("Deleted %s", title), "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Form deleted"})
}
