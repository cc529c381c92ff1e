package main

import (
	"context"
	"fmt"
	"os/user"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/triagekit/triage/internal/analysis"
	"github.com/triagekit/triage/internal/config"
	"github.com/triagekit/triage/internal/storage"
	"github.com/triagekit/triage/internal/storage/sqlite"
	"github.com/triagekit/triage/internal/tracker"
	"github.com/triagekit/triage/internal/types"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Inspect and mutate item labels",
}

var labelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the repository's labels",
	RunE: func(cmd *cobra.Command, args []string) error {
		gh := tracker.NewGitHub(cfg.Repo, logger)
		labels, err := gh.ListLabels(cmd.Context())
		if err != nil {
			return err
		}

		for _, label := range labels {
			name := color.New(color.FgCyan).Sprint(label.Name)
			if label.Description != "" {
				fmt.Printf("%s  %s\n", name, label.Description)
			} else {
				fmt.Println(name)
			}
		}
		return nil
	},
}

var labelsAddCmd = &cobra.Command{
	Use:   "add <number> <label>",
	Short: "Add a label to an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateLabel(cmd.Context(), args[0], args[1], storage.ActionAdded)
	},
}

var labelsRemoveCmd = &cobra.Command{
	Use:   "remove <number> <label>",
	Short: "Remove a label from an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutateLabel(cmd.Context(), args[0], args[1], storage.ActionRemoved)
	},
}

var labelsSuggestCmd = &cobra.Command{
	Use:   "suggest <number>",
	Short: "Ask the analysis service which labels fit an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number: %s", args[0])
		}

		gh := tracker.NewGitHub(cfg.Repo, logger)
		item, err := findIssue(cmd.Context(), gh, number)
		if err != nil {
			return err
		}

		available, err := gh.ListLabels(cmd.Context())
		if err != nil {
			return err
		}
		names := make([]string, len(available))
		for i, l := range available {
			names[i] = l.Name
		}

		client, err := analysis.NewClient(cfg.Analysis.Model)
		if err != nil {
			return err
		}

		suggested, err := client.SuggestLabels(cmd.Context(), *item, names)
		if err != nil {
			return err
		}

		if len(suggested) == 0 {
			fmt.Println("No label suggestions.")
			return nil
		}
		for _, label := range suggested {
			fmt.Println(color.New(color.FgCyan).Sprint(label))
		}
		return nil
	},
}

// mutateLabel applies the mutation through the tracker and records the
// audit event. Audit failures are logged, not fatal: the tracker is
// the source of truth.
func mutateLabel(ctx context.Context, numberArg, label, action string) error {
	number, err := strconv.Atoi(numberArg)
	if err != nil {
		return fmt.Errorf("invalid issue number: %s", numberArg)
	}

	gh := tracker.NewGitHub(cfg.Repo, logger)
	switch action {
	case storage.ActionAdded:
		err = gh.AddLabel(ctx, number, label)
	case storage.ActionRemoved:
		err = gh.RemoveLabel(ctx, number, label)
	}
	if err != nil {
		return err
	}

	recordLabelAudit(ctx, number, label, action)
	fmt.Printf("%s label %q on #%d\n", action, label, number)
	return nil
}

func recordLabelAudit(ctx context.Context, number int, label, action string) {
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Warn("label audit unavailable", "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	actor := "unknown"
	if u, err := user.Current(); err == nil {
		actor = u.Username
	}

	event := storage.LabelEvent{
		Kind:   types.KindIssue,
		Number: number,
		Label:  label,
		Action: action,
		Actor:  actor,
	}
	if err := store.RecordLabelEvent(ctx, event); err != nil {
		logger.Warn("failed to record label audit event", "error", err)
	}
}

// findIssue locates one issue in a fresh snapshot
func findIssue(ctx context.Context, gh *tracker.GitHub, number int) (*types.Item, error) {
	snapshot, err := gh.FetchSnapshot(ctx, config.Filters{})
	if err != nil {
		return nil, err
	}
	for _, item := range snapshot.Issues {
		if item.Number == number {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("open issue #%d not found", number)
}

func init() {
	labelsCmd.AddCommand(labelsListCmd)
	labelsCmd.AddCommand(labelsAddCmd)
	labelsCmd.AddCommand(labelsRemoveCmd)
	labelsCmd.AddCommand(labelsSuggestCmd)
	rootCmd.AddCommand(labelsCmd)
}
