package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/KabriAcid/ScrynCard-sub001/internal/health"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/handler"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/middleware"
	"github.com/KabriAcid/ScrynCard-sub001/internal/http/response"
)

type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	SessionHandler      *handler.SessionHandler
	AdminHandler        *handler.AdminHandler
	PoliticianHandler   *handler.PoliticianHandler
	Verifier            middleware.AccessVerifier
	Logger              *slog.Logger
	LoginRateLimitRPM   int
	RefreshRateLimitRPM int
	LoginRateLimiter    RateLimiterFunc
	RefreshRateLimiter  RateLimiterFunc
	Readiness           *health.ProbeRunner
	EnableOTelHTTP      bool
}

type RateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	logger := dep.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.SecurityHeaders)

	loginLimiter := dep.LoginRateLimiter
	if loginLimiter == nil {
		loginLimiter = middleware.NewRateLimiter(middleware.NewLocalLimiter(), dep.LoginRateLimitRPM, time.Minute, middleware.FailClosed, "login", logger).Middleware()
	}
	refreshLimiter := dep.RefreshRateLimiter
	if refreshLimiter == nil {
		refreshLimiter = middleware.NewRateLimiter(middleware.NewLocalLimiter(), dep.RefreshRateLimitRPM, time.Minute, middleware.FailOpen, "refresh", logger).Middleware()
	}
	requireAuth := middleware.RequireAuth(dep.Verifier)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, response.CodeDependencyUnready, "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(loginLimiter).Post("/login", dep.AuthHandler.Login)
			r.With(refreshLimiter).Post("/refresh", dep.AuthHandler.Refresh)
			r.With(requireAuth).Post("/logout", dep.AuthHandler.Logout)
			r.With(requireAuth).Post("/logout-all", dep.AuthHandler.LogoutAll)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me/sessions", dep.SessionHandler.List)
			r.Delete("/me/sessions/{id}", dep.SessionHandler.Revoke)
		})

		r.With(middleware.RequirePolitician(dep.Verifier)).Get("/politician/profile", dep.PoliticianHandler.Profile)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(dep.Verifier))
			r.Get("/users/{id}/sessions", dep.AdminHandler.ListUserSessions)
			r.Post("/users/{id}/revoke-sessions", dep.AdminHandler.RevokeUserSessions)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
