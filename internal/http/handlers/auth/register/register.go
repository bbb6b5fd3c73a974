// Package register creates a password account on the free plan.
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/nusapalma/nusapalma/internal/http/response"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
	"github.com/nusapalma/nusapalma/internal/services/auth"
)

// Request holds the registration fields.
type Request struct {
	Name     string `json:"name" validate:"required,max=100" example:"Budi Santoso"`
	Email    string `json:"email" validate:"required,email" example:"budi@example.com"`
	Password string `json:"password" validate:"required,min=6" example:"rahasia123"`
	Phone    string `json:"phone" validate:"max=20" example:"081234567890"`
}

// Service registers accounts.
type Service interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
}

// Handler answers POST /auth/register.
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
// @Summary Registrasi
// @Description Membuat akun baru dengan paket gratis dan langsung mengembalikan token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Data pendaftaran"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

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

	session, err := h.service.Register(r.Context(), auth.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK("Registrasi berhasil", session))
}
