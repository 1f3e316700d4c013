package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/FarmMarket/internal/service"
	"github.com/utafrali/FarmMarket/pkg/httputil"
)

// StatsHandler serves the farmer and customer dashboards.
type StatsHandler struct {
	service *service.StatsService
	logger  *slog.Logger
}

// NewStatsHandler creates a new stats HTTP handler.
func NewStatsHandler(svc *service.StatsService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		service: svc,
		logger:  logger,
	}
}

// FarmerStats handles GET /api/farmer/stats
func (h *StatsHandler) FarmerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.FarmerStats(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}

// CustomerStats handles GET /api/customer/stats
func (h *StatsHandler) CustomerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.CustomerStats(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: stats})
}
