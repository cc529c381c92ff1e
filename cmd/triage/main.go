package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/triagekit/triage/internal/config"
	"github.com/triagekit/triage/internal/logging"
)

// Version is stamped by the release build
var Version = "dev"

var (
	cfgPath string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Repository triage daemon with AI-assisted analysis",
	Long: `triage watches a repository's open issues and discussions,
notifies you when new items arrive, lets you apply labels, and hands
free-text analysis off to an external AI agent.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}

		// Interactive chat keeps stderr clean for the conversation.
		quiet := cmd.Name() == "chat"
		logger, err = logging.Setup(cfg.Log.File, cfg.Log.Level, quiet)
		if err != nil {
			return err
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the triage version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("triage %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	defer func() { _ = logging.Close() }()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
