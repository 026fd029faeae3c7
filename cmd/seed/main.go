package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-shift-scheduling/internal/config"
	"github.com/hackgods/clinic-shift-scheduling/internal/db"
	"github.com/hackgods/clinic-shift-scheduling/internal/logging"
	redisclient "github.com/hackgods/clinic-shift-scheduling/internal/redis"
	"github.com/hackgods/clinic-shift-scheduling/internal/schedule"
	"github.com/hackgods/clinic-shift-scheduling/internal/shift"
)

type seedOptions struct {
	dsn      string
	patients int
	from     string
	days     int
	perDay   int
	seed     uint64
}

var details = []string{
	"first visit",
	"follow-up",
	"bring previous results",
	"fasting required",
	"lab review",
}

func main() {
	_ = godotenv.Load()

	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the calendar with fake patients and shifts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.dsn, "dsn", "", "postgres DSN (defaults to $POSTGRES_DSN)")
	flags.IntVar(&opts.patients, "patients", 200, "patients to create")
	flags.StringVar(&opts.from, "from", schedule.FormatDate(time.Now()), "first calendar date to fill (YYYY-MM-DD)")
	flags.IntVar(&opts.days, "days", 14, "calendar days to fill")
	flags.IntVar(&opts.perDay, "per-day", 8, "shifts to attempt per day")
	flags.Uint64Var(&opts.seed, "seed", uint64(time.Now().UnixNano()), "random seed")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, opts seedOptions) error {
	overrides := map[string]any{}
	if opts.dsn != "" {
		overrides["POSTGRES_DSN"] = opts.dsn
	}
	cfg, err := config.LoadWith(overrides)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	start, err := schedule.ParseDate(opts.from)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(connectCtx, cfg.PostgresDSN, db.PoolOptions{})
	cancel()
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	// Seeding may run next to a live api-server, so bookings take the same
	// Redis date lock.
	rdb, err := redisclient.NewRedisClient(ctx, redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = rdb.Close() }()

	locker := redisclient.NewRedisDateLocker(rdb, redisclient.LockOptions{
		TTL:        cfg.LockTTL,
		Retries:    cfg.LockRetries,
		RetryDelay: cfg.LockRetryDelay,
	})
	svc := shift.NewService(shift.NewPgRepository(pool), locker, cfg.Scheduling,
		shift.WithLogger(logger.Named("shift")))
	faker := gofakeit.New(opts.seed)

	patients, err := seedPatients(ctx, svc, faker, opts.patients)
	if err != nil {
		return err
	}
	logger.Info("patients seeded", zap.Int("count", len(patients)))
	if len(patients) == 0 {
		return nil
	}

	slots := schedule.GenerateDaySlots(cfg.Scheduling.SlotGranularity)
	created, conflicts, busy := 0, 0, 0
	for d := 0; d < opts.days; d++ {
		date := schedule.FormatDate(start.AddDate(0, 0, d))
		for i := 0; i < opts.perDay; i++ {
			note := faker.RandomString(details)
			_, err := svc.CreateShift(ctx, shift.ShiftInput{
				PatientID: patients[faker.Number(0, len(patients)-1)],
				Date:      date,
				StartTime: slots[faker.Number(0, len(slots)-1)].Value,
				Duration:  15 * faker.Number(2, 4),
				Status:    shift.StatusPending,
				Details:   &note,
			})
			var ce *shift.ConflictError
			switch {
			case errors.As(err, &ce):
				conflicts++
			case errors.Is(err, shift.ErrCalendarBusy):
				busy++
			case err != nil:
				return fmt.Errorf("seed shift on %s: %w", date, err)
			default:
				created++
			}
		}
	}

	logger.Info("seed complete",
		zap.Int("shifts", created),
		zap.Int("conflicts_skipped", conflicts),
		zap.Int("busy_skipped", busy),
	)
	return nil
}

func seedPatients(ctx context.Context, svc *shift.Service, faker *gofakeit.Faker, count int) ([]int64, error) {
	ids := make([]int64, 0, count)
	for i := 0; i < count; i++ {
		p, err := svc.CreatePatient(ctx, shift.PatientInput{
			Name:     faker.FirstName(),
			Lastname: faker.LastName(),
			DNI:      faker.DigitN(8),
		})
		var pe *shift.PersistenceError
		if errors.As(err, &pe) {
			// National ID collision; skip.
			continue
		}
		if err != nil {
			return ids, fmt.Errorf("seed patient: %w", err)
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}
