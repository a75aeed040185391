package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/medagenda/scheduling-service/internal/booking"
	"github.com/medagenda/scheduling-service/internal/config"
	"github.com/medagenda/scheduling-service/internal/db"
	"github.com/medagenda/scheduling-service/internal/directory"
	"github.com/medagenda/scheduling-service/internal/policy"
	redisclient "github.com/medagenda/scheduling-service/internal/redis"
	"github.com/medagenda/scheduling-service/internal/schedule"
	"github.com/medagenda/scheduling-service/internal/workflow"
)

// The enrich worker backfills name snapshots in the appointment audit
// trail. Bookings keep working when the directory services are down;
// the rows they leave behind carry "unknown" names until this worker
// resolves them.

const enrichBatchSize = 100

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "enrich-worker").Logger()
	log.Info().Msg("enrich-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load error")
	}
	log.Info().Str("env", cfg.Env).Dur("interval", cfg.WorkerInterval).Msg("configuration loaded")

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

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()

	catalog := directory.NewCatalogClient(cfg.CatalogBaseURL, cfg.CollaboratorTimeout, log)
	patients := directory.NewPatientsClient(cfg.PatientsBaseURL, cfg.CollaboratorTimeout, log)
	professionals := directory.NewProfessionalsClient(cfg.ProfessionalsBaseURL, cfg.CollaboratorTimeout, log)

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisAgendaLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, workflow.NewPgStore(pgPool), policy.NewPgRepository(pgPool),
		catalog, patients, professionals, schedule.NewPgRepository(pgPool), log)

	// Run once at startup
	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping enrich worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	updated, err := svc.EnrichHistory(runCtx, enrichBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("enrich run error")
		return
	}
	log.Info().Int("rows", updated).Dur("took", time.Since(start)).Msg("enrich run complete")
}
