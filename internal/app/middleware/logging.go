package middleware

import (
	"context"
	"log/slog"
	"time"

	"rentals/internal/app/commands"
	"rentals/internal/app/queries"
	"rentals/internal/domain/shared/failure"
)

// Logging writes one line per command with its outcome. Business failures are
// logged at info, everything else at error.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		panic("middleware: logger required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			started := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			logOutcome(ctx, logger, "command", cmd.Key(), time.Since(started), err)
			return res, err
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	if logger == nil {
		panic("middleware: logger required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			started := time.Now()
			res, err := next.Ask(ctx, q)
			logOutcome(ctx, logger, "query", q.Key(), time.Since(started), err)
			return res, err
		})
	}
}

func logOutcome(ctx context.Context, logger *slog.Logger, kind, key string, took time.Duration, err error) {
	attrs := []any{"kind", kind, "key", key, "duration_ms", took.Milliseconds()}
	if err == nil {
		logger.DebugContext(ctx, "handled", attrs...)
		return
	}
	if k, ok := failure.KindOf(err); ok && k != failure.Internal {
		logger.InfoContext(ctx, "rejected", append(attrs, "error_kind", string(k), "error", err.Error())...)
		return
	}
	logger.ErrorContext(ctx, "failed", append(attrs, "error", err)...)
}
