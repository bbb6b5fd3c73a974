// Package verifypayment confirms a pending payment and activates its plan.
package verifypayment

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
	"github.com/nusapalma/nusapalma/internal/services/subscription"
)

// Request names the payment to verify.
type Request struct {
	PaymentID string `json:"paymentId" validate:"required,max=64" example:"PAY-1741600000000-42"`
}

// Service verifies payments.
type Service interface {
	VerifyPayment(ctx context.Context, userID, paymentID string) (*subscription.VerifyResult, error)
}

// Handler answers POST /subscription/verify-payment.
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
// @Summary Verifikasi pembayaran
// @Description Memverifikasi pembayaran pending milik pengguna dan mengaktifkan paketnya.
// @Tags Subscription
// @Accept json
// @Produce json
// @Param request body Request true "ID pembayaran"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /subscription/verify-payment [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.verifypayment"
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

	res, err := h.service.VerifyPayment(r.Context(), user.ID, req.PaymentID)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OK("Pembayaran berhasil diverifikasi dan langganan diaktifkan", res))
}
