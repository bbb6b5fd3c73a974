// Package middlewarectx holds the HTTP middleware of the API: bearer token
// authentication, the subscription tier gate, per-client rate limiting and CORS.
//
// JWTMiddleware stores the authenticated *models.User in the request context;
// handlers read it back with UserFromContext.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/nusapalma/nusapalma/internal/http/response"
	"github.com/nusapalma/nusapalma/internal/lib/sl"
	"github.com/nusapalma/nusapalma/internal/models"
)

// Key is the type of request context keys set here.
type Key string

// UserKey holds the authenticated *models.User.
const UserKey Key = "user"

// MsgNoToken is returned when the Authorization header is missing.
const MsgNoToken = "Tidak memiliki akses, silakan login terlebih dahulu"

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// WithUser returns ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserKey, user)
}

// UserFromContext returns the user stored by JWTMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(UserKey).(*models.User)
	return u, ok && u != nil
}

// JWTMiddleware rejects requests without a valid bearer token of an active
// user with 401 and stores the user in the context otherwise.
func JWTMiddleware(auth Authenticator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Info("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(MsgNoToken))
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				log.Warn("authentication failed", slog.String("remote_addr", r.RemoteAddr), sl.Err(err))
				response.RenderError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
