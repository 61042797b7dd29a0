package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vanshika/ownergraph/backend/internal/config"
)

// New builds a slog.Logger writing to stdout.
func New(cfg config.LoggingConfig) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter builds a slog.Logger writing to w. Colored output takes
// precedence over the text/json format switch.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.IncludeCaller,
	}

	var handler slog.Handler
	switch {
	case cfg.Colored:
		handler = NewPrettyHandler(w, PrettyHandlerOptions{SlogOpts: opts})
	case strings.EqualFold(cfg.Format, "json"):
		handler = slog.NewJSONHandler(w, &opts)
	default:
		handler = slog.NewTextHandler(w, &opts)
	}

	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
