package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/api"
	"github.com/medagenda/scheduling-service/internal/booking"
	"github.com/medagenda/scheduling-service/internal/config"
	"github.com/medagenda/scheduling-service/internal/db"
	"github.com/medagenda/scheduling-service/internal/directory"
	"github.com/medagenda/scheduling-service/internal/policy"
	redisclient "github.com/medagenda/scheduling-service/internal/redis"
	"github.com/medagenda/scheduling-service/internal/schedule"
	"github.com/medagenda/scheduling-service/internal/slots"
	"github.com/medagenda/scheduling-service/internal/workflow"
)

const version = "1.0.0"

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "api-server").Logger()
	log.Info().Msg("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("configuration loaded")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	// Collaborator clients
	catalog := directory.NewCatalogClient(cfg.CatalogBaseURL, cfg.CollaboratorTimeout, log)
	patients := directory.NewPatientsClient(cfg.PatientsBaseURL, cfg.CollaboratorTimeout, log)
	professionals := directory.NewProfessionalsClient(cfg.ProfessionalsBaseURL, cfg.CollaboratorTimeout, log)

	// Wiring
	workflows := workflow.NewPgStore(pgPool)
	policies := policy.NewPgRepository(pgPool)
	bookingRepo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisAgendaLocker(rdb, cfg.LockTTL)

	scheduleRepo := schedule.NewPgRepository(pgPool)

	bookingSvc := booking.NewService(bookingRepo, locker, workflows, policies,
		catalog, patients, professionals, scheduleRepo, log)
	scheduleSvc := schedule.NewService(scheduleRepo, bookingSvc, log)
	slotsSvc := slots.NewService(scheduleSvc, bookingSvc, catalog, bookingSvc, log)

	router := api.NewRouter(api.RouterConfig{
		Schedule:  scheduleSvc,
		Slots:     slotsSvc,
		Booking:   bookingSvc,
		Policies:  policies,
		Workflows: workflows,
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
		Log:       log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
