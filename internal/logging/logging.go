// Package logging sets up the process-wide slog logger: colorized
// stderr output for interactive use plus a rotated log file.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

var fileWriter *lumberjack.Logger

// Setup builds a logger writing to both stderr and a rotated file.
// When quiet is true (interactive chat, machine output) only the file
// handler is attached.
func Setup(logFile, level string, quiet bool) (*slog.Logger, error) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logDir := filepath.Dir(logFile)
	if logDir != "" && logDir != "." {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}

	fileWriter = &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	fileHandler := tint.NewHandler(fileWriter, &tint.Options{
		Level:      lvl,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	})

	if quiet {
		return slog.New(fileHandler), nil
	}

	noColor := !isatty.IsTerminal(os.Stderr.Fd()) || os.Getenv("NO_COLOR") != ""
	stderrHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})

	return slog.New(&multiHandler{handlers: []slog.Handler{fileHandler, stderrHandler}}), nil
}

// Close flushes and closes the rotated log file, if one was opened
func Close() error {
	if fileWriter != nil {
		return fileWriter.Close()
	}
	return nil
}

type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, h := range m.handlers {
		if err := h.Handle(ctx, record); err != nil {
			return err
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
