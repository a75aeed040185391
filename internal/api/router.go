package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/booking"
	"github.com/medagenda/scheduling-service/internal/policy"
	"github.com/medagenda/scheduling-service/internal/schedule"
	"github.com/medagenda/scheduling-service/internal/slots"
	"github.com/medagenda/scheduling-service/internal/workflow"
)

type RouterConfig struct {
	Schedule  *schedule.Service
	Slots     *slots.Service
	Booking   *booking.Service
	Policies  policy.Repository
	Workflows workflow.Store
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
	Log       zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(ActorMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Availability management
	r.Route("/schedule", func(r chi.Router) {
		r.Post("/rules", createRuleHandler(cfg.Schedule))
		r.Get("/rules", listRulesHandler(cfg.Schedule))
		r.Put("/rules/{id}", updateRuleHandler(cfg.Schedule))
		r.Delete("/rules/{id}", deleteRuleHandler(cfg.Schedule))
		r.Post("/rules/duplicate-day", duplicateDayHandler(cfg.Schedule))

		r.Post("/blackouts", createBlackoutHandler(cfg.Schedule))
		r.Get("/blackouts", listBlackoutsHandler(cfg.Schedule))
		r.Delete("/blackouts/{id}", deleteBlackoutHandler(cfg.Schedule))

		r.Get("/slots", slotsHandler(cfg.Slots))
	})

	// Booking and transitions
	r.Post("/appointments", createBookingHandler(cfg.Booking))
	r.Get("/appointments", listAppointmentsHandler(cfg.Booking))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/status", transitionHandler(cfg.Booking))
	r.Get("/appointments/{id}/history", appointmentHistoryHandler(cfg.Booking))

	// Runtime configuration
	r.Route("/config", func(r chi.Router) {
		r.Get("/policy", getPolicyHandler(cfg.Policies))
		r.Put("/policy", putPolicyHandler(cfg.Policies))
		r.Get("/workflow", getWorkflowHandler(cfg.Workflows))
		r.Put("/workflow", putWorkflowHandler(cfg.Workflows))
	})

	return r
}
