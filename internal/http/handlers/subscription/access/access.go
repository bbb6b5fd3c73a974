// Package access lets a client probe whether the caller may use features of a tier.
package access

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"

	accesstier "github.com/nusapalma/nusapalma/internal/access"
	"github.com/nusapalma/nusapalma/internal/http/middlewarectx"
	"github.com/nusapalma/nusapalma/internal/http/response"
	"github.com/nusapalma/nusapalma/internal/plan"
)

// Result is returned when access is granted.
type Result struct {
	Plan          string `json:"plan"`
	CurrentPlan   string `json:"currentPlan"`
	EffectivePlan string `json:"effectivePlan"`
}

// Handler answers GET /subscription/access/{plan} through RequirePlan.
type Handler struct {
	log     *slog.Logger
	catalog *plan.Catalog
	now     func() time.Time
}

// New creates a Handler. now may be nil.
func New(log *slog.Logger, catalog *plan.Catalog, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{log: log, catalog: catalog, now: now}
}

// ServeHTTP godoc
// @Summary Cek akses paket
// @Description 200 bila paket pengguna memenuhi tingkat yang diminta, 403 bila tidak atau langganan berakhir.
// @Tags Subscription
// @Produce json
// @Param plan path string true "Kunci paket" Enums(free, basic, premium, enterprise)
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Router /subscription/access/{plan} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.access"
	log := h.log.With(slog.String("op", op))

	required := chi.URLParam(r, "plan")
	if _, err := h.catalog.Get(required); err != nil {
		response.RenderError(w, r, log, err)
		return
	}

	granted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ := middlewarectx.UserFromContext(r.Context())
		render.JSON(w, r, response.OK("Akses diizinkan", Result{
			Plan:          required,
			CurrentPlan:   user.SubscriptionPlan,
			EffectivePlan: accesstier.EffectivePlan(user.SubscriptionPlan, user.SubscriptionEndDate, h.now()),
		}))
	})
	middlewarectx.RequirePlan(required, h.now, log)(granted).ServeHTTP(w, r)
}
