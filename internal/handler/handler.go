package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/roadside-ops/mission-log/backend/internal/config"
	"github.com/roadside-ops/mission-log/backend/internal/domain"
	"github.com/roadside-ops/mission-log/backend/internal/ratelimit"
	"github.com/roadside-ops/mission-log/backend/internal/service"
	"github.com/roadside-ops/mission-log/backend/internal/session"
)

type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Missions *service.MissionService
	Stats    *service.StatsService
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	config       *config.Config
	auth         *service.AuthService
	users        *service.UserService
	missions     *service.MissionService
	stats        *service.StatsService
	sessions     *session.Store
	apiLimiter   *ratelimit.Limiter
	loginLimiter *ratelimit.Limiter
	healthChecks map[string]HealthCheck
	static       http.Handler

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, svc Services, sessions *session.Store, rdb *redis.Client, checks map[string]HealthCheck) *Handler {
	window := time.Duration(cfg.RateLimit.Window) * time.Second

	return &Handler{
		config:       cfg,
		auth:         svc.Auth,
		users:        svc.Users,
		missions:     svc.Missions,
		stats:        svc.Stats,
		sessions:     sessions,
		apiLimiter:   ratelimit.New(rdb, "api", cfg.RateLimit.APIMax, window),
		loginLimiter: ratelimit.New(rdb, "login", cfg.RateLimit.LoginMax, window),
		healthChecks: checks,
		static:       http.FileServer(http.Dir(cfg.Server.StaticDir)),

		Mux: chi.NewRouter(),
	}
}

func (h *Handler) RegisterRoutes() {
	if h.config.Server.TrustProxy {
		h.Mux.Use(h.realIP)
	}
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", h.Health)
	h.Mux.Handle("/metrics", promhttp.Handler())

	h.Mux.Route("/api", func(r chi.Router) {
		r.Use(h.rateLimit(h.apiLimiter))

		r.With(h.rateLimit(h.loginLimiter)).Post("/login", h.Login)
		r.Get("/auth/check", h.AuthCheck)

		// everything below needs a session
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/logout", h.Logout)

			r.Route("/missions", func(r chi.Router) {
				r.Use(h.require(domain.CapabilityDriver))
				r.Post("/", h.CreateMission)
				r.Get("/", h.ListMissions)
				// registered before /{id} so "export" is never read as an id
				r.With(h.require(domain.CapabilityAdmin)).Get("/export/csv", h.ExportMissionsCSV)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetMission)
					r.With(h.require(domain.CapabilityAdmin)).Put("/", h.UpdateMission)
					r.With(h.require(domain.CapabilityAdmin)).Delete("/", h.DeleteMission)
				})
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(h.require(domain.CapabilityAdmin))
				r.Get("/", h.ListUsers)
				r.Post("/", h.CreateUser)
				r.Put("/{id}", h.UpdateUser)
				r.Post("/{id}/change-password", h.ResetUserPassword)
			})

			r.With(h.require(domain.CapabilityAdmin)).Get("/stats", h.GetStats)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			h.errorResponse(w, r, http.StatusNotFound, "endpoint not found")
		})
	})

	// pages
	h.Mux.Get("/", h.Index)
	h.Mux.With(h.requirePage(domain.CapabilityAdmin)).Get("/admin.html", h.static.ServeHTTP)
	h.Mux.With(h.requirePage(domain.CapabilityDriver)).Get("/driver.html", h.static.ServeHTTP)
	h.Mux.Get("/*", h.static.ServeHTTP)
}
