package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/triagekit/triage/internal/analysis"
	"github.com/triagekit/triage/internal/session"
	"github.com/triagekit/triage/internal/storage/sqlite"
	"github.com/triagekit/triage/internal/types"
)

var chatCatchUp bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive analysis conversation about the open queue",
	Long: `Opens a streaming conversation with the analysis service.
Assistant output renders incrementally as it arrives; tool activity is
shown inline. Use /quit to exit, /catchup for an initial briefing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		transport, err := analysis.NewCLITransport(ctx, analysis.CLIConfig{
			Command:      cfg.Analysis.Command,
			Model:        cfg.Analysis.Model,
			SystemPrompt: chatSystemPrompt(),
		}, logger)
		if err != nil {
			return fmt.Errorf("start analysis service: %w", err)
		}

		renderer := newChatRenderer()
		sess := session.New(transport, renderer.update, logger)
		defer func() {
			persistHistory(context.Background(), sess.History())
			_ = sess.Close()
		}()

		go sess.Run(ctx)

		rl, err := readline.NewEx(&readline.Config{
			Prompt:          color.New(color.FgGreen).Sprint("> "),
			InterruptPrompt: "^C",
			EOFPrompt:       "/quit",
		})
		if err != nil {
			return fmt.Errorf("failed to create readline: %w", err)
		}
		defer func() { _ = rl.Close() }()

		if chatCatchUp {
			if err := submitAndWait(ctx, sess, func() error { return sess.CatchUp(ctx) }); err != nil {
				return err
			}
		}

		for {
			line, err := rl.Readline()
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}

			line = strings.TrimSpace(line)
			switch {
			case line == "":
				continue
			case line == "/quit" || line == "/exit":
				return nil
			case line == "/catchup":
				err = submitAndWait(ctx, sess, func() error { return sess.CatchUp(ctx) })
			default:
				err = submitAndWait(ctx, sess, func() error { return sess.SendMessage(ctx, line) })
			}

			if err == session.ErrBusy {
				fmt.Println("(still thinking, hold on)")
				continue
			}
			if err != nil {
				if sess.AuthRequired() {
					return session.ErrAuthRequired
				}
				fmt.Println(color.New(color.FgRed).Sprintf("error: %v", err))
			}
			if !sess.Connected() {
				fmt.Println("(analysis service disconnected)")
				return nil
			}
		}
	},
}

// submitAndWait sends one prompt and blocks until the turn finalizes
// or the channel drops.
func submitAndWait(ctx context.Context, sess *session.Session, send func() error) error {
	if err := send(); err != nil {
		return err
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !sess.Loading() || !sess.Connected() {
				fmt.Println()
				return nil
			}
		}
	}
}

// chatRenderer prints streaming history updates incrementally. Each
// update carries the whole buffer; only the unseen suffix is printed.
type chatRenderer struct {
	mu      sync.Mutex
	printed map[string]int
}

func newChatRenderer() *chatRenderer {
	return &chatRenderer{printed: make(map[string]int)}
}

func (r *chatRenderer) update(msg types.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := r.printed[msg.ID]
	if len(msg.Content) <= seen {
		return
	}
	fmt.Print(msg.Content[seen:])
	r.printed[msg.ID] = len(msg.Content)
}

// persistHistory saves finalized conversation entries for later review
func persistHistory(ctx context.Context, history []types.Message) {
	if len(history) == 0 {
		return
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Warn("conversation history not persisted", "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		if err := store.SaveMessage(ctx, msg); err != nil {
			logger.Warn("failed to save message", "id", msg.ID, "error", err)
			return
		}
	}
}

func chatSystemPrompt() string {
	if cfg.Repo.Owner == "" {
		return ""
	}
	return fmt.Sprintf("You are helping triage the %s repository's open issues and discussions.", cfg.Repo.Slug())
}

func init() {
	chatCmd.Flags().BoolVar(&chatCatchUp, "catch-up", false, "request an initial briefing on start")
	rootCmd.AddCommand(chatCmd)
}
