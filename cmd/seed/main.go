package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medagenda/scheduling-service/internal/db"
	"github.com/medagenda/scheduling-service/internal/interval"
	"github.com/medagenda/scheduling-service/internal/policy"
	"github.com/medagenda/scheduling-service/internal/workflow"
)

const professionalCount = 25

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	seedCtx := context.Background()
	if err := seedDefaults(seedCtx, pool); err != nil {
		log.Fatalf("seed defaults: %v", err)
	}
	if err := seedRules(seedCtx, pool); err != nil {
		log.Fatalf("seed availability rules: %v", err)
	}
	if err := seedBlackouts(seedCtx, pool); err != nil {
		log.Fatalf("seed blackouts: %v", err)
	}
	if err := seedAppointments(seedCtx, pool); err != nil {
		log.Fatalf("seed appointments: %v", err)
	}

	log.Println("seed complete")
}

// seedDefaults writes the default policy row and the default workflow
// definition so a fresh database behaves like the clinic expects.
func seedDefaults(ctx context.Context, pool *pgxpool.Pool) error {
	if err := policy.NewPgRepository(pool).Save(ctx, policy.Default()); err != nil {
		return err
	}
	if err := workflow.NewPgStore(pool).Save(ctx, workflow.Default()); err != nil {
		return err
	}
	log.Println("policy and workflow defaults seeded")
	return nil
}

func seedRules(ctx context.Context, pool *pgxpool.Pool) error {
	log.Printf("seeding availability for %d professionals", professionalCount)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for prof := int64(1); prof <= professionalCount; prof++ {
		placeID := int64(gofakeit.Number(1, 4))

		// Monday through Friday mornings, most with an afternoon block.
		for weekday := 0; weekday <= 4; weekday++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO availability_rules
					(professional_id, place_id, service_id, weekday, start_minute, end_minute, active, created_at, updated_at)
				VALUES ($1, $2, NULL, $3, $4, $5, true, now(), now())
			`, prof, placeID, weekday, 8*60, 12*60)
			if err != nil {
				return err
			}

			if gofakeit.Bool() {
				_, err := tx.Exec(ctx, `
					INSERT INTO availability_rules
						(professional_id, place_id, service_id, weekday, start_minute, end_minute, active, created_at, updated_at)
					VALUES ($1, $2, NULL, $3, $4, $5, true, now(), now())
				`, prof, placeID, weekday, 14*60, 18*60)
				if err != nil {
					return err
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Println("availability rules seeded")
	return nil
}

func seedBlackouts(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	count := 0
	for prof := int64(1); prof <= professionalCount; prof++ {
		// A few upcoming absences per professional.
		for i := 0; i < gofakeit.Number(1, 3); i++ {
			day := time.Now().AddDate(0, 0, gofakeit.Number(3, 45))
			start := time.Date(day.Year(), day.Month(), day.Day(), gofakeit.Number(8, 15), 0, 0, 0, time.UTC)
			end := start.Add(time.Duration(gofakeit.Number(1, 4)) * time.Hour)

			_, err := tx.Exec(ctx, `
				INSERT INTO blackout_periods (professional_id, start_at, end_at, reason, created_at)
				VALUES ($1, $2, $3, $4, now())
			`, prof, start, end, gofakeit.RandomString([]string{"training", "congress", "personal leave", "maintenance"}))
			if err != nil {
				return err
			}
			count++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Printf("%d blackout periods seeded", count)
	return nil
}

// seedAppointments fills tomorrow's agendas with a sprinkling of booked
// slots so slot listings and conflict paths have something to chew on.
func seedAppointments(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tomorrow := time.Now().AddDate(0, 0, 1)
	date := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC)
	if interval.Weekday(date) > 4 {
		// Weekend, skip: no availability rules cover it.
		return tx.Commit(ctx)
	}

	count := 0
	for prof := int64(1); prof <= professionalCount; prof++ {
		start := interval.MinuteOfDay(8 * 60)
		for slot := 0; slot < 8; slot++ {
			if gofakeit.Bool() {
				start += 30
				continue
			}
			patientID := int64(gofakeit.Number(1, 5000))
			_, err := tx.Exec(ctx, `
				INSERT INTO appointments
					(professional_id, patient_id, place_id, service_id, date, start_minute, end_minute, status, patient_note, staff_note, active, created_at, updated_at)
				VALUES ($1, $2, 1, NULL, $3, $4, $5, 'pending', $6, '', true, now(), now())
			`, prof, patientID, date, start, start+30, gofakeit.Sentence(6))
			if err != nil {
				return err
			}
			count++
			start += 30
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Printf("%d appointments seeded for %s", count, date.Format("2006-01-02"))
	return nil
}
