// Package me returns the authenticated user.
package me

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/nusapalma/nusapalma/internal/http/middlewarectx"
	"github.com/nusapalma/nusapalma/internal/http/response"
)

// Handler answers GET /auth/me.
type Handler struct {
	log *slog.Logger
}

// New creates a Handler.
func New(log *slog.Logger) *Handler {
	return &Handler{log: log}
}

// ServeHTTP godoc
// @Summary Data pengguna saat ini
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/me [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		h.log.Error("user not found in context", slog.String("op", "handlers.auth.me"))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(middlewarectx.MsgNotAuthenticated))
		return
	}
	render.JSON(w, r, response.OK("Data user berhasil diambil", user))
}
