// Package paymentlist shows the caller's payment history.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nusapalma/nusapalma/internal/config"
	"github.com/nusapalma/nusapalma/internal/http/middlewarectx"
	"github.com/nusapalma/nusapalma/internal/http/response"
	"github.com/nusapalma/nusapalma/internal/models"
)

// MsgInvalidPaging is returned for non-numeric or negative limit/offset.
const MsgInvalidPaging = "Parameter limit atau offset tidak valid"

// Page is the list payload.
type Page struct {
	Payments []models.Payment `json:"payments"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// Service lists payments.
type Service interface {
	ListPayments(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error)
}

// Handler answers GET /subscription/payments.
type Handler struct {
	log     *slog.Logger
	service Service
	paging  config.Pagination
}

// New creates a Handler.
func New(log *slog.Logger, service Service, paging config.Pagination) *Handler {
	return &Handler{log: log, service: service, paging: paging}
}

// ServeHTTP godoc
// @Summary Riwayat pembayaran
// @Description Pembayaran milik pengguna, terbaru lebih dulu.
// @Tags Subscription
// @Produce json
// @Param limit query int false "Jumlah maksimum"
// @Param offset query int false "Lewati sejumlah baris"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /subscription/payments [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"
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

	limit, err := queryInt(r, "limit", h.paging.DefaultLimit)
	if err != nil || limit <= 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(MsgInvalidPaging))
		return
	}
	if h.paging.MaxLimit > 0 && limit > h.paging.MaxLimit {
		limit = h.paging.MaxLimit
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error(MsgInvalidPaging))
		return
	}

	payments, err := h.service.ListPayments(r.Context(), user.ID, limit, offset)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}

	log.Debug("payments listed", slog.Int("count", len(payments)))
	render.JSON(w, r, response.OK("Riwayat pembayaran berhasil diambil", Page{
		Payments: payments,
		Limit:    limit,
		Offset:   offset,
	}))
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
