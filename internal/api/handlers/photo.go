package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ladlehq/ladle/internal/api"
	"github.com/ladlehq/ladle/internal/service"
)

type PhotoService interface {
	InitUpload(ctx context.Context, recipeID, filename, contentType string) (*service.InitPhotoUploadResult, error)
	ConfirmUpload(ctx context.Context, recipeID, storageKey string) error
	DownloadURL(ctx context.Context, recipeID string) (string, error)
}

type PhotoHandler struct {
	svc PhotoService
}

func NewPhotoHandler(svc PhotoService) *PhotoHandler {
	return &PhotoHandler{svc: svc}
}

type InitPhotoUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type InitPhotoUploadResponse struct {
	StorageKey string `json:"storage_key"`
	UploadURL  string `json:"upload_url"`
}

type ConfirmPhotoUploadRequest struct {
	StorageKey string `json:"storage_key"`
}

type PhotoURLResponse struct {
	URL string `json:"url"`
}

func (h *PhotoHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req InitPhotoUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if req.ContentType == "" {
		api.Error(w, http.StatusBadRequest, "content_type is required")
		return
	}

	result, err := h.svc.InitUpload(r.Context(), id, req.Filename, req.ContentType)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, InitPhotoUploadResponse{
		StorageKey: result.StorageKey,
		UploadURL:  result.UploadURL,
	})
}

func (h *PhotoHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req ConfirmPhotoUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.StorageKey == "" {
		api.Error(w, http.StatusBadRequest, "storage_key is required")
		return
	}

	if err := h.svc.ConfirmUpload(r.Context(), id, req.StorageKey); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

func (h *PhotoHandler) GetURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.DownloadURL(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if url == "" {
		api.Error(w, http.StatusNotFound, "recipe has no photo")
		return
	}

	api.Success(w, http.StatusOK, PhotoURLResponse{URL: url})
}
