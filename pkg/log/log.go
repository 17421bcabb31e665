// Package log configures structured logging and adapts it to the engine's logger sink.
package log

import (
	"log/slog"
	"os"

	"github.com/dukex/bundleflow/pkg/models"
)

func ParseLevel(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Setup(logLevel string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	})))
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

// Sink adapts a slog logger to the run logger sink. Data, when present, is
// attached under the "data" key.
func Sink(logger *slog.Logger) models.LogFunc {
	return func(level models.LogLevel, message string, data any) {
		args := []any{}
		if data != nil {
			args = append(args, "data", data)
		}

		switch level {
		case models.LogLevelWarn:
			logger.Warn(message, args...)
		case models.LogLevelError:
			logger.Error(message, args...)
		default:
			logger.Info(message, args...)
		}
	}
}
