package middlewarectx

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/nusapalma/nusapalma/internal/access"
	"github.com/nusapalma/nusapalma/internal/http/response"
)

// Gate messages.
const (
	MsgNotAuthenticated     = "User tidak terautentikasi"
	MsgSubscriptionExpired  = "Langganan Anda telah berakhir. Silakan perpanjang langganan Anda."
	msgInsufficientTemplate = "Fitur ini memerlukan langganan %s atau lebih tinggi"
)

// RequirePlan admits users whose tier ranks at least required and whose
// subscription has not ended. It only reads the stored user.
func RequirePlan(required string, now func() time.Time, log *slog.Logger) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(MsgNotAuthenticated))
				return
			}

			decision := access.Check(user.SubscriptionPlan, user.SubscriptionEndDate, required, now())
			switch decision.Reason {
			case access.ReasonExpired:
				log.Info("subscription expired", slog.String("user_id", user.ID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(MsgSubscriptionExpired))
				return
			case access.ReasonInsufficient:
				log.Info("insufficient subscription level",
					slog.String("user_id", user.ID),
					slog.String("plan", user.SubscriptionPlan),
					slog.String("required", required))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(fmt.Sprintf(msgInsufficientTemplate, required)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
