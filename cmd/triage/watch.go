package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/triagekit/triage/internal/notify"
	"github.com/triagekit/triage/internal/queue"
	"github.com/triagekit/triage/internal/tracker"
)

var (
	watchInterval int
	watchNoNotify bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the tracker and notify on newly arrived items",
	Long: `Polls the repository on a fixed cadence, diffs each snapshot
against the previously seen items, and reports additions. The first
poll seeds the known set silently, so restarting never re-notifies
about items that were already open.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Repo.Owner == "" {
			return fmt.Errorf("no repository configured (set repo.owner and repo.name)")
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		pollCfg := cfg.Poll
		if watchInterval > 0 {
			pollCfg.IntervalSeconds = watchInterval
		}

		gh := tracker.NewGitHub(cfg.Repo, logger)
		hub := notify.NewHub()

		var notifier notify.Notifier
		if !watchNoNotify {
			notifier = notify.NewDesktopNotifier()
		}
		dispatcher := notify.NewDispatcher(notifier, hub, logger)

		scheduler := queue.NewScheduler(gh, dispatcher, pollCfg, logger)
		scheduler.Start(ctx)
		defer scheduler.Stop()

		events, unsubscribe := hub.Subscribe()
		defer unsubscribe()

		fmt.Printf("Watching %s every %s (ctrl-c to stop)\n", cfg.Repo.Slug(), scheduler.Interval())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case <-sigCh:
				fmt.Println("\nStopping...")
				return nil
			case event := <-events:
				displayNewItems(event)
			}
		}
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "poll interval in seconds (overrides config)")
	watchCmd.Flags().BoolVar(&watchNoNotify, "no-notify", false, "disable desktop notifications")
	rootCmd.AddCommand(watchCmd)
}
