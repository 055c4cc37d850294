package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-token-auth/internal/config"
	"go-token-auth/internal/handler"
	"go-token-auth/internal/metrics"
	"go-token-auth/internal/middleware"
)

type Handlers struct {
	Token  *handler.TokenHandler
	User   *handler.UserHandler
	Health *handler.HealthHandler
}

// New mounts the token API under cfg.APIPrefix. m may be nil, in which case
// /metrics is not served.
func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, handlers Handlers, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(m))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)

	r.Get("/health", handlers.Health.Live)
	r.Get("/ready", handlers.Health.Ready)
	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	api := func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Post("/generate-token", handlers.Token.GenerateToken)
		api.Post("/verify-token", handlers.Token.VerifyToken)

		api.Group(func(protected chi.Router) {
			protected.Use(authMiddleware.RequireAuth)
			protected.Get("/get-user-data", handlers.User.GetUserData)
			protected.Post("/change-password", handlers.User.ChangePassword)
		})
	}

	if cfg.APIPrefix == "" {
		r.Group(api)
	} else {
		r.Route(cfg.APIPrefix, api)
	}

	return r
}
