package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithRequest returns a logger with request context fields attached.
// Use this for all logging while serving one tool call.
func WithRequest(requestID string, simulation bool) *slog.Logger {
	return slog.With(
		"request_id", requestID,
		"simulation", simulation,
	)
}

// WithEvent returns a logger scoped to the supply-chain event an action was taken for.
func WithEvent(logger *slog.Logger, eventID, action string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(
		"event_id", eventID,
		"action", action,
	)
}
