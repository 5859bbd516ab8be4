package handler

import (
	"context"
	"net/http"

	"github.com/lessonlift/backend/internal/domain"
)

// StatsSource aggregates lesson activity across all users.
type StatsSource interface {
	Stats(ctx context.Context) (*domain.AdminStats, error)
}

type AdminHandler struct {
	stats StatsSource
}

func NewAdminHandler(stats StatsSource) *AdminHandler {
	return &AdminHandler{stats: stats}
}

// GetStats handles GET /api/admin/stats.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		Error(w, r, domain.ErrInternal("failed to load stats", err))
		return
	}
	JSON(w, http.StatusOK, stats)
}
