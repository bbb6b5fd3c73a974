// Package updateprofile changes the caller's editable profile fields.
package updateprofile

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

// Request lists the editable fields. Omitted fields keep their value.
type Request struct {
	Name           *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Phone          *string  `json:"phone" validate:"omitempty,max=20"`
	Address        *string  `json:"address" validate:"omitempty,max=255"`
	Province       *string  `json:"province" validate:"omitempty,max=100"`
	City           *string  `json:"city" validate:"omitempty,max=100"`
	PlantationArea *float64 `json:"plantationArea" validate:"omitempty,gte=0"`
	ProfilePicture *string  `json:"profilePicture" validate:"omitempty,max=512"`
}

// Service updates profiles.
type Service interface {
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*models.User, error)
}

// Handler answers PUT /users/profile.
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
// @Summary Ubah profil
// @Description Email, paket langganan dan peran tidak dapat diubah di sini.
// @Tags Users
// @Accept json
// @Produce json
// @Param request body Request true "Field yang diubah"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Router /users/profile [put]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.updateprofile"
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

	updated, err := h.service.UpdateProfile(r.Context(), user.ID, models.ProfileUpdate{
		Name:           req.Name,
		Phone:          req.Phone,
		Address:        req.Address,
		Province:       req.Province,
		City:           req.City,
		PlantationArea: req.PlantationArea,
		ProfilePicture: req.ProfilePicture,
	})
	if err != nil {
		response.RenderError(w, r, log, err)
		return
	}
	render.JSON(w, r, response.OK("Profil berhasil diperbarui", updated))
}
