// Package createpayment records a pending payment for a plan.
package createpayment

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
)

// Request selects a plan and a payment method. Unknown values are reported
// by the service with their own messages.
type Request struct {
	Plan   string `json:"plan" validate:"max=32" example:"premium"`
	Method string `json:"method" validate:"max=32" example:"qris"`
}

// Service creates payments.
type Service interface {
	CreatePayment(ctx context.Context, userID, planKey, method string) (*models.Payment, error)
}

// Handler answers POST /subscription/create-payment.
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
// @Summary Buat pembayaran
// @Description Membuat pembayaran pending untuk paket. Berlaku 24 jam.
// @Tags Subscription
// @Accept json
// @Produce json
// @Param request body Request true "Paket dan metode pembayaran"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /subscription/create-payment [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.createpayment"
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

	payment, err := h.service.CreatePayment(r.Context(), user.ID, req.Plan, req.Method)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK("Pembayaran berhasil dibuat", payment))
}
