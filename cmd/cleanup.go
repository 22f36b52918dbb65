package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/backstage/services/scheduler/notify"
	"example.com/backstage/services/scheduler/repositories"
)

var cleanupYes bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Prune the notification log",
	Long:  `Interactively prune the notification change log by age, by count, or truncate it entirely`,
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupYes, "yes", false, "skip the confirmation prompt for full truncation")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	db, err := gorm.Open(postgres.Open(cfg.DBSource), &gorm.Config{})
	if err != nil {
		return errors.Wrap(err, "failed to connect to database")
	}

	retention := notify.NewRetention(repositories.NewNotificationRepository(db))
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Notification log cleanup")
	fmt.Println("  1) age-based    - delete entries older than 24 hours")
	fmt.Println("  2) count-based  - keep only the newest 200 entries")
	fmt.Println("  3) full truncate - delete everything")
	fmt.Println("  4) custom age   - delete entries older than N hours")
	fmt.Print("Choose [1-4]: ")

	choice, err := reader.ReadString('\n')
	if err != nil {
		return errors.Wrap(err, "failed to read choice")
	}

	var deleted int64
	switch strings.TrimSpace(choice) {
	case "1":
		deleted, err = retention.SimpleCleanup(ctx, 24)
	case "2":
		deleted, err = retention.KeepMostRecent(ctx, 200)
	case "3":
		if !cleanupYes {
			fmt.Print("This deletes every entry. Type 'yes' to continue: ")
			confirm, readErr := reader.ReadString('\n')
			if readErr != nil {
				return errors.Wrap(readErr, "failed to read confirmation")
			}
			if strings.TrimSpace(confirm) != "yes" {
				fmt.Println("Aborted")
				return nil
			}
		}
		deleted, err = retention.PurgeAll(ctx)
	case "4":
		fmt.Print("Delete entries older than how many hours? ")
		hoursRaw, readErr := reader.ReadString('\n')
		if readErr != nil {
			return errors.Wrap(readErr, "failed to read hours")
		}
		hours, convErr := strconv.Atoi(strings.TrimSpace(hoursRaw))
		if convErr != nil || hours <= 0 {
			return errors.New("hours must be a positive integer")
		}
		deleted, err = retention.SimpleCleanup(ctx, hours)
	default:
		return errors.New("invalid choice")
	}

	if err != nil {
		return errors.Wrap(err, "cleanup failed")
	}

	fmt.Printf("Deleted %d entries\n", deleted)
	return nil
}
