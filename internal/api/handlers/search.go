package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ladlehq/ladle/internal/api"
	"github.com/ladlehq/ladle/internal/domain"
	"github.com/ladlehq/ladle/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) ([]*domain.DocumentMatch, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query      string   `json:"query"`
	Limit      int      `json:"limit,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	ProjectIDs []string `json:"project_ids,omitempty"`
}

type SearchResultResponse struct {
	ID         int64   `json:"id"`
	Title      string  `json:"title"`
	ShortID    string  `json:"short_id"`
	VersionID  string  `json:"version_id"`
	RecipeID   string  `json:"recipe_id"`
	Similarity float64 `json:"similarity"`
}

type SearchResponse struct {
	Results []*SearchResultResponse `json:"results"`
	Count   int                     `json:"count"`
}

func matchToResponse(m *domain.DocumentMatch) *SearchResultResponse {
	return &SearchResultResponse{
		ID:         m.ID,
		Title:      m.Title,
		ShortID:    m.ShortID,
		VersionID:  m.VersionID,
		RecipeID:   m.RecipeID,
		Similarity: m.Similarity,
	}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	matches, err := h.svc.Search(r.Context(), service.SearchInput{
		Query:      req.Query,
		Limit:      req.Limit,
		Threshold:  req.Threshold,
		ProjectIDs: req.ProjectIDs,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*SearchResultResponse, 0, len(matches))
	for _, m := range matches {
		results = append(results, matchToResponse(m))
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: results, Count: len(results)})
}
