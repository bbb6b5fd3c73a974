// Package health reports whether the API and its dependencies are reachable.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/nusapalma/nusapalma/internal/http/response"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
)

// Pinger checks one dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the health payload.
type Status struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// Handler answers GET /health.
type Handler struct {
	log     *slog.Logger
	pingers map[string]Pinger
	timeout time.Duration
}

// New creates a Handler over the named dependencies.
func New(log *slog.Logger, pingers map[string]Pinger) *Handler {
	return &Handler{log: log, pingers: pingers, timeout: 2 * time.Second}
}

// ServeHTTP godoc
// @Summary Health check
// @Description 200 bila semua dependensi dapat dihubungi, 503 bila tidak.
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	st := Status{Status: "ok", Checks: make(map[string]string, len(h.pingers)), Timestamp: time.Now().UTC()}
	for name, p := range h.pingers {
		if err := p.Ping(ctx); err != nil {
			h.log.Warn("dependency unreachable", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			st.Checks[name] = "down"
			st.Status = "degraded"
			continue
		}
		st.Checks[name] = "up"
	}

	if st.Status != "ok" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, response.OK("NusaPalma API berjalan", st))
}
