// Package oauth signs in with an identity asserted by Google or Facebook.
package oauth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nusapalma/nusapalma/internal/http/response"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
	"github.com/nusapalma/nusapalma/internal/services/auth"
)

// Request is the identity the client received from the provider.
type Request struct {
	Provider   string `json:"provider" example:"google"`
	Email      string `json:"email" example:"budi@example.com"`
	Name       string `json:"name" example:"Budi Santoso"`
	Picture    string `json:"picture"`
	ProviderID string `json:"providerId"`
}

// Service signs in OAuth identities.
type Service interface {
	OAuthLogin(ctx context.Context, in auth.OAuthInput) (*auth.Session, error)
}

// Handler answers POST /auth/oauth.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Login OAuth
// @Description Membuat atau menautkan akun berdasarkan email dari Google atau Facebook.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body Request true "Identitas dari penyedia"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/oauth [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.oauth"
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

	session, err := h.service.OAuthLogin(r.Context(), auth.OAuthInput{
		Provider:   req.Provider,
		Email:      req.Email,
		Name:       req.Name,
		Picture:    req.Picture,
		ProviderID: req.ProviderID,
	})
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	render.JSON(w, r, response.OK("Login berhasil", session))
}
