// Package subscribe activates a free plan directly.
package subscribe

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/nusapalma/nusapalma/internal/http/middlewarectx"
	"github.com/nusapalma/nusapalma/internal/http/response"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
	"github.com/nusapalma/nusapalma/internal/models"
	"github.com/nusapalma/nusapalma/internal/plan"
)

// Request names the plan.
type Request struct {
	Plan string `json:"plan" validate:"max=32" example:"free"`
}

// Service activates plans without a payment.
type Service interface {
	Subscribe(ctx context.Context, userID, planKey string) (*models.Subscription, error)
	GetPlans() map[string]plan.Plan
}

// Handler answers POST /subscription/subscribe.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Berlangganan paket gratis
// @Description Paket berbayar harus melalui pembayaran.
// @Tags Subscription
// @Accept json
// @Produce json
// @Param request body Request true "Paket"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /subscription/subscribe [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.subscribe"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		log.Error("user not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(middlewarectx.MsgNotAuthenticated))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Info("failed to decode request body", sl.Err(err))
		response.RenderInvalid(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		response.RenderInvalid(w, r, err)
		return
	}

	sub, err := h.service.Subscribe(r.Context(), user.ID, req.Plan)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	name := sub.Plan
	if p, ok := h.service.GetPlans()[sub.Plan]; ok {
		name = p.Name
	}
	render.JSON(w, r, response.OK("Berhasil berlangganan paket "+name, sub))
}
