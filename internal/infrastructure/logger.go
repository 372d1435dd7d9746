package infrastructure

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/JaimeStill/casestudio/internal/config"
)

// NewLogger builds the service logger from cfg. Output goes to stderr and,
// when a file is configured, to a size-rotated log file as well.
func NewLogger(cfg *config.LoggingConfig) *slog.Logger {
	return slog.New(newHandler(cfg, writer(cfg)))
}

func writer(cfg *config.LoggingConfig) io.Writer {
	if cfg.File == "" {
		return os.Stderr
	}
	return io.MultiWriter(os.Stderr, &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
	})
}

func newHandler(cfg *config.LoggingConfig, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
