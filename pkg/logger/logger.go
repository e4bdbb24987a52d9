package logger

import (
	"log/slog"
	"os"
)

// Setup builds the process-wide slog.Logger for the given environment and
// installs it as the default logger, so packages that call slog.Info/Error
// directly (rather than threading a *slog.Logger through) still log
// consistently. Production gets a JSON handler for log-aggregator parsing;
// anything else gets a human-readable text handler at debug level.
func Setup(env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler).With("service", "authcore")
	slog.SetDefault(log)
	return log
}
