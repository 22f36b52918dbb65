package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/backstage/services/scheduler/models"
	"example.com/backstage/services/scheduler/notify"
	"example.com/backstage/services/scheduler/repositories"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the maintenance worker",
	Long:  `Start the background worker that prunes the notification log on a schedule and reports growth and duplicate-pattern signals`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	log.Info().Msg("Starting worker")

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DBSource), &gorm.Config{})
	if err != nil {
		return err
	}

	if cfg.EnableMigrations {
		if err := models.SetupModels(db); err != nil {
			return err
		}
	}

	notificationRepo := repositories.NewNotificationRepository(db)
	retention := notify.NewRetention(notificationRepo)

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		// The scheduled pass uses tighter thresholds than the inline
		// cleanup so a backlog actively shrinks between requests.
		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.WorkerInterval),
			gocron.NewTask(func() {
				runMaintenance(ctx, retention)
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		// Shutdown the scheduler
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

// runMaintenance performs one scheduled retention pass and computes the
// alerting signals. The signals only log; they never mutate state.
func runMaintenance(ctx context.Context, retention *notify.Retention) {
	deleted, err := retention.Cleanup(ctx, cfg.NotifyWorkerMaxAgeHours, cfg.NotifyWorkerMaxRecords)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled notification cleanup failed")
	} else {
		log.Info().Int64("deleted", deleted).Msg("Scheduled notification cleanup completed")
	}

	rate, err := retention.RateSignal(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute notification rate signal")
	} else if rate > 0 {
		log.Info().Int64("entries_last_5m", rate).Msg("Notification rate signal")
	}

	patterns, err := retention.DuplicateSignal(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute duplicate-pattern signal")
		return
	}
	for _, p := range patterns {
		log.Warn().
			Str("event_type", p.EventType).
			Str("entity_id", p.EntityID).
			Int64("count", p.Count).
			Msg("Duplicate notification pattern detected")
	}
}
