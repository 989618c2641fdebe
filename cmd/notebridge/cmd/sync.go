package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrlokans/notebridge/internal/progress"
	"github.com/mrlokans/notebridge/internal/scheduler"
)

var syncSchedule string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run imports periodically on a schedule",
	Long: `Keeps running and triggers an import on a cron schedule, picking up pages
added since the previous run. Stops cleanly on ctrl-C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		schedule := syncSchedule
		if schedule == "" {
			schedule = cfg.Sync.Schedule
		}

		s, err := scheduler.New(schedule, func(ctx context.Context) error {
			_, err := runImport(ctx, progress.Nop{})
			return err
		})
		if err != nil {
			return err
		}

		fmt.Printf("Sync running on schedule %q, press ctrl-C to stop.\n", schedule)
		s.Start()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-ctx.Done()

		fmt.Println("\nStopping sync...")
		s.Stop()
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncSchedule, "schedule", "", "cron schedule (default: SYNC_SCHEDULE, hourly)")
	rootCmd.AddCommand(syncCmd)
}
