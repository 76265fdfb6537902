package application

import (
	"context"
	"log/slog"

	"github.com/example/meetingsync/internal/logging"
)

// serviceLogger resolves the effective logger for an operation, preferring a
// logger attached to the context over the service's own.
func serviceLogger(ctx context.Context, base *slog.Logger, operation string, attrs ...any) *slog.Logger {
	logger := logging.Resolve(ctx, base)

	pairs := []any{"service", "meetings", "operation", operation}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}
