package cmd

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/backstage/services/scheduler/notify"
	"example.com/backstage/services/scheduler/repositories"
)

var (
	monitorInterval time.Duration
	monitorDuration time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Sample the notification log and report growth",
	Long:  `Sample the notification change log at a fixed interval for a fixed duration, then report the growth rate and any duplicate notification patterns`,
	RunE:  runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 10*time.Second, "sampling interval")
	monitorCmd.Flags().DurationVar(&monitorDuration, "duration", time.Minute, "total monitoring duration")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	db, err := gorm.Open(postgres.Open(cfg.DBSource), &gorm.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}

	notificationRepo := repositories.NewNotificationRepository(db)
	retention := notify.NewRetention(notificationRepo)

	ctx, cancel := context.WithTimeout(context.Background(), monitorDuration)
	defer cancel()

	startCount, err := notificationRepo.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read initial count")
	}
	startID, err := notificationRepo.LatestID(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read initial latest id")
	}
	startedAt := time.Now()

	log.Info().
		Int64("entries", startCount).
		Uint("latest_id", startID).
		Dur("interval", monitorInterval).
		Dur("duration", monitorDuration).
		Msg("Monitoring notification log")

	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			count, err := notificationRepo.Count(ctx)
			if err != nil {
				return errors.Wrap(err, "failed to sample count")
			}
			latest, err := notificationRepo.LatestID(ctx)
			if err != nil {
				return errors.Wrap(err, "failed to sample latest id")
			}
			log.Info().
				Int64("entries", count).
				Uint("latest_id", latest).
				Msg("Sample")
		case <-ctx.Done():
			return report(notificationRepo, retention, startCount, startID, startedAt)
		}
	}
}

// report summarizes the monitoring run: growth rate over the sampled
// window plus any duplicate notification patterns
func report(repo *repositories.NotificationRepository, retention *notify.Retention, startCount int64, startID uint, startedAt time.Time) error {
	// The monitoring context has expired; use a fresh one for the report
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	endCount, err := repo.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read final count")
	}
	endID, err := repo.LatestID(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read final latest id")
	}

	elapsed := time.Since(startedAt)
	created := int64(endID) - int64(startID)
	perMinute := float64(created) / elapsed.Minutes()

	log.Info().
		Int64("entries_start", startCount).
		Int64("entries_end", endCount).
		Int64("created", created).
		Float64("created_per_minute", perMinute).
		Dur("elapsed", elapsed).
		Msg("Monitoring report")

	patterns, err := retention.DuplicateSignal(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to compute duplicate patterns")
	}
	if len(patterns) == 0 {
		log.Info().Msg("No duplicate notification patterns detected")
		return nil
	}
	for _, p := range patterns {
		log.Warn().
			Str("event_type", p.EventType).
			Str("entity_id", p.EntityID).
			Int64("count", p.Count).
			Msg("Duplicate notification pattern detected")
	}
	return nil
}
