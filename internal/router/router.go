package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/keygate-dev/keygate/internal/middleware"
	"github.com/keygate-dev/keygate/internal/middleware/metrics"
	"github.com/keygate-dev/keygate/internal/setup"
)

// New creates and configures the chi router with all routes.
func New(deps *setup.Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.Public.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// JSON API only, no scripts/styles needed
	csp := "default-src 'none'; frame-ancestors 'none'"
	r.Use(mw.SecurityHeadersWithCSP(deps.Config.Public.SecureCookies, csp))

	h := deps.Handler
	authMw := deps.AuthMiddleware

	r.Get("/api/health", h.Health)
	r.Get("/api/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh-token", h.RefreshToken)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password/{token}", h.ResetPassword)
		r.Get("/verify-email/{token}", h.VerifyEmail)

		r.Group(func(r chi.Router) {
			r.Use(authMw.NeedAuth())
			r.Post("/logout", h.Logout)
			r.Get("/profile", h.Profile)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMw.AdminOnly())
		r.Get("/users", h.Users)
		r.Get("/users/{id}", h.User)
		r.Delete("/users/{id}", h.DeleteUser)
		r.Patch("/users/{id}/role", h.UpdateUserRole)
	})

	// Avoid 404s for CORS preflight requests
	r.MethodFunc("OPTIONS", "/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}
