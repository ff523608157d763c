package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ladlehq/ladle/internal/api"
	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/service"
)

type RecipeService interface {
	Create(ctx context.Context, input service.CreateRecipeInput) (*domain.Recipe, error)
	GetByID(ctx context.Context, id string) (*domain.Recipe, error)
	Update(ctx context.Context, input service.UpdateRecipeInput) (*domain.Recipe, *domain.RecipeVersion, error)
	Delete(ctx context.Context, recipeID string) error
	DeleteVersion(ctx context.Context, versionID string) error
	GetVersions(ctx context.Context, recipeID string) ([]*domain.RecipeVersion, error)
	List(ctx context.Context, input service.ListRecipesInput) (*service.ListRecipesOutput, error)
}

// DocumentProvider exposes the current vector document for a recipe.
type DocumentProvider interface {
	CurrentDocument(ctx context.Context, recipeID string) (*domain.VectorDocument, error)
}

type RecipeHandler struct {
	svc  RecipeService
	docs DocumentProvider
}

func NewRecipeHandler(svc RecipeService, docs DocumentProvider) *RecipeHandler {
	return &RecipeHandler{svc: svc, docs: docs}
}

type CreateRecipeRequest struct {
	ProjectID string `json:"project_id,omitempty"`
	Title     string `json:"title"`
	BodyMD    string `json:"body_md"`
}

type UpdateRecipeRequest struct {
	Title  string `json:"title"`
	BodyMD string `json:"body_md"`
}

type RecipeResponse struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id,omitempty"`
	ShortID   string `json:"short_id"`
	Title     string `json:"title"`
	PhotoKey  string `json:"photo_key,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type RecipeVersionResponse struct {
	ID            string `json:"id"`
	RecipeID      string `json:"recipe_id"`
	VersionNumber int64  `json:"version_number"`
	Title         string `json:"title"`
	BodyMD        string `json:"body_md"`
	CreatedAt     string `json:"created_at"`
}

type DocumentResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	ShortID   string `json:"short_id"`
	VersionID string `json:"version_id"`
	RecipeID  string `json:"recipe_id"`
	IsCurrent bool   `json:"is_current"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ListRecipesResponse struct {
	Items   []*RecipeResponse `json:"items"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

const timeLayout = "2006-01-02T15:04:05Z"

func recipeToResponse(rec *domain.Recipe) *RecipeResponse {
	return &RecipeResponse{
		ID:        rec.ID,
		ProjectID: rec.ProjectID,
		ShortID:   rec.ShortID,
		Title:     rec.Title,
		PhotoKey:  rec.PhotoKey,
		CreatedAt: rec.CreatedAt.Format(timeLayout),
		UpdatedAt: rec.UpdatedAt.Format(timeLayout),
	}
}

func versionToResponse(v *domain.RecipeVersion) *RecipeVersionResponse {
	return &RecipeVersionResponse{
		ID:            v.ID,
		RecipeID:      v.RecipeID,
		VersionNumber: v.VersionNumber,
		Title:         v.Title,
		BodyMD:        v.BodyMD,
		CreatedAt:     v.CreatedAt.Format(timeLayout),
	}
}

func documentToResponse(d *domain.VectorDocument) *DocumentResponse {
	return &DocumentResponse{
		ID:        d.ID,
		Title:     d.Title,
		ShortID:   d.ShortID,
		VersionID: d.VersionID,
		RecipeID:  d.RecipeID,
		IsCurrent: d.IsCurrent,
		CreatedAt: d.CreatedAt.Format(timeLayout),
		UpdatedAt: d.UpdatedAt.Format(timeLayout),
	}
}

func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.BodyMD == "" {
		api.Error(w, http.StatusBadRequest, "body_md is required")
		return
	}

	recipe, err := h.svc.Create(r.Context(), service.CreateRecipeInput{
		ProjectID: req.ProjectID,
		Title:     req.Title,
		BodyMD:    req.BodyMD,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, recipeToResponse(recipe))
}

func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	recipe, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, recipeToResponse(recipe))
}

func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.BodyMD == "" {
		api.Error(w, http.StatusBadRequest, "body_md is required")
		return
	}

	recipe, version, err := h.svc.Update(r.Context(), service.UpdateRecipeInput{
		RecipeID: id,
		Title:    req.Title,
		BodyMD:   req.BodyMD,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"recipe":  recipeToResponse(recipe),
		"version": versionToResponse(version),
	})
}

func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

func (h *RecipeHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	versionID := chi.URLParam(r, "versionID")
	if versionID == "" {
		api.Error(w, http.StatusBadRequest, "versionID is required")
		return
	}

	if err := h.svc.DeleteVersion(r.Context(), versionID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

func (h *RecipeHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	versions, err := h.svc.GetVersions(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]*RecipeVersionResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, versionToResponse(v))
	}

	api.Success(w, http.StatusOK, out)
}

// GetDocument returns the current vector document backing a recipe's search
// presence. 404 when the recipe has no embedded current version yet.
func (h *RecipeHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.docs.CurrentDocument(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	out, err := h.svc.List(r.Context(), service.ListRecipesInput{
		ProjectID: r.URL.Query().Get("project_id"),
		Cursor:    r.URL.Query().Get("cursor"),
		Limit:     limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*RecipeResponse, 0, len(out.Items))
	for _, rec := range out.Items {
		items = append(items, recipeToResponse(rec))
	}

	api.Success(w, http.StatusOK, ListRecipesResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}
