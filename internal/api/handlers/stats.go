package handlers

import (
	"context"
	"net/http"

	"github.com/ladlehq/ladle/internal/api"
	"github.com/ladlehq/ladle/internal/domain"
)

type StatsService interface {
	Stats(ctx context.Context) (*domain.StoreStats, error)
}

type StatsHandler struct {
	svc StatsService
}

func NewStatsHandler(svc StatsService) *StatsHandler {
	return &StatsHandler{svc: svc}
}

type StatsResponse struct {
	Total   int64 `json:"total"`
	Current int64 `json:"current"`
	Deleted int64 `json:"deleted"`
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, StatsResponse{
		Total:   stats.Total,
		Current: stats.Current,
		Deleted: stats.Deleted,
	})
}
