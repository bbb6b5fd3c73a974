// Package plans serves the plan catalog.
package plans

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nusapalma/nusapalma/internal/http/response"
	"github.com/nusapalma/nusapalma/internal/plan"
)

// Service returns the catalog.
type Service interface {
	GetPlans() map[string]plan.Plan
}

// Handler answers GET /subscription/plans.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Daftar paket langganan
// @Description Mengembalikan seluruh paket beserta harga, durasi dan fitur.
// @Tags Subscription
// @Produce json
// @Success 200 {object} response.Response
// @Router /subscription/plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.plans"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans := h.service.GetPlans()
	log.Debug("plans listed", slog.Int("count", len(plans)))
	render.JSON(w, r, response.OK("Paket langganan berhasil diambil", plans))
}
