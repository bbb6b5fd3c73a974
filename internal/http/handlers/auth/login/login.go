// Package login exchanges email and password for an access token.
package login

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

// Request holds the login credentials.
type Request struct {
	Email    string `json:"email" validate:"required,email" example:"budi@example.com"`
	Password string `json:"password" validate:"required" example:"rahasia123"`
}

// Service logs users in.
type Service interface {
	Login(ctx context.Context, email, password string) (*auth.Session, error)
}

// Handler answers POST /auth/login.
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
// @Summary Login
// @Description Mengembalikan token JWT dan data pengguna.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Email dan password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Router /auth/login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"
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

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	log.Info("login success", slog.String("user_id", session.User.ID))
	render.JSON(w, r, response.OK("Login berhasil", session))
}
