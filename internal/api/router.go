package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/shift"
)

type RouterConfig struct {
	Service *shift.Service
	Logger  *zap.Logger
	// PgPool and Redis are optional; readiness reports them as disabled when nil.
	PgPool         *pgxpool.Pool
	Redis          *redis.Client
	MetricsHandler http.Handler
	Env            string
	Version        string
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	svc := cfg.Service

	r.Route("/patients", func(r chi.Router) {
		r.Post("/", createPatientHandler(svc))
		r.Get("/", listPatientsHandler(svc))
		r.Get("/{id}", getPatientHandler(svc))
		r.Patch("/{id}", updatePatientHandler(svc))
		r.Delete("/{id}", deletePatientHandler(svc))
	})

	r.Route("/shifts", func(r chi.Router) {
		r.Post("/", createShiftHandler(svc))
		r.Get("/", listShiftsHandler(svc))
		r.Get("/{id}", getShiftHandler(svc))
		r.Patch("/{id}", updateShiftHandler(svc))
		r.Delete("/{id}", deleteShiftHandler(svc))
		r.Post("/{id}/status", setStatusHandler(svc))
		r.Post("/{id}/reschedule", rescheduleHandler(svc))
	})

	r.Get("/slots", availableSlotsHandler(svc))

	r.Post("/series/preview", previewSeriesHandler(svc))
	r.Post("/series", createSeriesHandler(svc))

	return r
}
