// Package analysis provides the two clients for the external analysis
// service: a duplex stream transport over the claude CLI, and a
// one-shot API client for label suggestions.
package analysis

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/triagekit/triage/internal/stream"
)

// eventBuffer bounds pending inbound events before the reader blocks
const eventBuffer = 64

// maxLineBytes caps a single stream-json line (tool results can be large)
const maxLineBytes = 1024 * 1024

// CLITransport runs the claude CLI in stream-json mode as the duplex
// channel to the analysis service. Request frames go to the child's
// stdin as JSON lines; stream events are scanned off stdout. The
// events channel closes when the child's stdout closes.
type CLITransport struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan stream.Event
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// CLIConfig configures the spawned analysis process
type CLIConfig struct {
	// Command is the CLI binary name, normally "claude"
	Command string
	// Model is passed through to the CLI
	Model string
	// WorkingDir is where the process runs (repo checkout)
	WorkingDir string
	// SystemPrompt is appended to the CLI's system prompt, if set
	SystemPrompt string
}

// NewCLITransport spawns the analysis process and starts scanning its
// output. Callers must Close the transport to reap the child.
func NewCLITransport(ctx context.Context, cfg CLIConfig, logger *slog.Logger) (*CLITransport, error) {
	if cfg.Command == "" {
		cfg.Command = "claude"
	}
	if logger == nil {
		logger = slog.Default()
	}

	args := []string{
		"--input-format", "stream-json",
		"--output-format", "stream-json",
		"--verbose",
	}
	if cfg.Model != "" {
		args = append(args, "--model", cfg.Model)
	}
	if cfg.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", cfg.SystemPrompt)
	}

	cmd := exec.CommandContext(ctx, cfg.Command, args...)
	if cfg.WorkingDir != "" {
		cmd.Dir = cfg.WorkingDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cfg.Command, err)
	}

	t := &CLITransport{
		cmd:    cmd,
		stdin:  stdin,
		events: make(chan stream.Event, eventBuffer),
		logger: logger,
	}

	go t.scanEvents(stdout)
	go t.drainStderr(stderr)

	return t, nil
}

// Send marshals one request frame and writes it as a JSON line
func (t *CLITransport) Send(ctx context.Context, frame any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transport closed")
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if _, err := t.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Events returns the inbound event channel. Closed on process exit.
func (t *CLITransport) Events() <-chan stream.Event {
	return t.events
}

// Close shuts down stdin and reaps the child process
func (t *CLITransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	_ = t.stdin.Close()
	if t.cmd.Process != nil {
		_ = t.cmd.Process.Kill()
	}
	return t.cmd.Wait()
}

// scanEvents reads stdout lines and parses each into a stream event.
// Lines that are not valid envelopes are skipped: the CLI interleaves
// diagnostics with the protocol on some versions.
func (t *CLITransport) scanEvents(stdout io.Reader) {
	defer close(t.events)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		event, err := stream.ParseEvent([]byte(line))
		if err != nil {
			t.logger.Debug("skipping unparseable stream line", "error", err)
			continue
		}
		t.events <- event
	}
	if err := scanner.Err(); err != nil {
		t.logger.Warn("stream scan ended", "error", err)
	}
}

// drainStderr keeps the child from blocking on a full stderr pipe and
// surfaces its diagnostics at debug level.
func (t *CLITransport) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		t.logger.Debug("analysis stderr", "line", scanner.Text())
	}
}
