package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/nusapalma/nusapalma/docs"
	"github.com/nusapalma/nusapalma/internal/config"
	"github.com/nusapalma/nusapalma/internal/grpc/health"
	"github.com/nusapalma/nusapalma/internal/http/handlers/auth/login"
	"github.com/nusapalma/nusapalma/internal/http/handlers/auth/me"
	"github.com/nusapalma/nusapalma/internal/http/handlers/auth/oauth"
	"github.com/nusapalma/nusapalma/internal/http/handlers/auth/register"
	healthhandler "github.com/nusapalma/nusapalma/internal/http/handlers/health"
	"github.com/nusapalma/nusapalma/internal/http/handlers/payment/paymentlist"
	"github.com/nusapalma/nusapalma/internal/http/handlers/subscription/access"
	"github.com/nusapalma/nusapalma/internal/http/handlers/subscription/createpayment"
	"github.com/nusapalma/nusapalma/internal/http/handlers/subscription/mysubscription"
	"github.com/nusapalma/nusapalma/internal/http/handlers/subscription/plans"
	"github.com/nusapalma/nusapalma/internal/http/handlers/subscription/subscribe"
	"github.com/nusapalma/nusapalma/internal/http/handlers/subscription/verifypayment"
	"github.com/nusapalma/nusapalma/internal/http/handlers/users/changepassword"
	"github.com/nusapalma/nusapalma/internal/http/handlers/users/profile"
	"github.com/nusapalma/nusapalma/internal/http/handlers/users/updateprofile"
	"github.com/nusapalma/nusapalma/internal/http/middlewarectx"
	"github.com/nusapalma/nusapalma/internal/metrics"
	"github.com/nusapalma/nusapalma/internal/plan"
)

// SubscriptionService is everything the subscription routes call.
type SubscriptionService interface {
	plans.Service
	createpayment.Service
	verifypayment.Service
	subscribe.Service
	mysubscription.Service
	paymentlist.Service
}

// AccountService is everything the auth and user routes call.
type AccountService interface {
	middlewarectx.Authenticator
	login.Service
	register.Service
	oauth.Service
	profile.Service
	updateprofile.Service
	changepassword.Service
}

// Deps are the collaborators of the router.
type Deps struct {
	Log           *slog.Logger
	Config        *config.Config
	Catalog       *plan.Catalog
	Subscriptions SubscriptionService
	Accounts      AccountService
	Metrics       *metrics.Metrics
	Pingers       map[string]health.Pinger
	Now           func() time.Time
}

// RegisterRoutes mounts every endpoint on r.
func RegisterRoutes(r chi.Router, d Deps) {
	log := d.Log
	cfg := d.Config

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		d.Metrics.Middleware,
		middlewarectx.CORS(cfg.HTTPServer.CORSOrigins),
	)

	pingers := make(map[string]healthhandler.Pinger, len(d.Pingers))
	for name, p := range d.Pingers {
		pingers[name] = p
	}
	r.Get("/health", healthhandler.New(log, pingers).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)

	general := middlewarectx.NewClientLimiter(cfg.RateLimit.Window, cfg.RateLimit.Max)
	strict := middlewarectx.NewClientLimiter(cfg.RateLimit.Window, cfg.RateLimit.AuthMax)
	authenticated := middlewarectx.JWTMiddleware(d.Accounts, log)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(general.Middleware(log))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(strict.Middleware(log))
				r.Post("/register", register.New(log, d.Accounts).ServeHTTP)
				r.Post("/login", login.New(log, d.Accounts).ServeHTTP)
				r.Post("/oauth", oauth.New(log, d.Accounts).ServeHTTP)
			})
			r.With(authenticated).Get("/me", me.New(log).ServeHTTP)
		})

		r.Route("/subscription", func(r chi.Router) {
			r.Get("/plans", plans.New(log, d.Subscriptions).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/create-payment", createpayment.New(log, d.Subscriptions).ServeHTTP)
				r.Post("/verify-payment", verifypayment.New(log, d.Subscriptions).ServeHTTP)
				r.Post("/subscribe", subscribe.New(log, d.Subscriptions).ServeHTTP)
				r.Get("/my-subscription", mysubscription.New(log, d.Subscriptions).ServeHTTP)
				r.Get("/payments", paymentlist.New(log, d.Subscriptions, cfg.Pagination).ServeHTTP)
				r.Get("/access/{plan}", access.New(log, d.Catalog, d.Now).ServeHTTP)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/profile", profile.New(log, d.Accounts).ServeHTTP)
			r.Put("/profile", updateprofile.New(log, d.Accounts).ServeHTTP)
			r.Put("/change-password", changepassword.New(log, d.Accounts).ServeHTTP)
		})
	})
}
