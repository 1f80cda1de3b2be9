package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"rentals/internal/app/commands"
	"rentals/internal/app/queries"
	"rentals/internal/domain/shared/failure"
)

// CommandMiddleware wraps a command bus with additional behavior (logging, tx, etc.).
type CommandMiddleware func(next commands.Bus) commands.Bus

// QueryMiddleware wraps a query bus with extra behavior.
type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands builds a command bus wrapped with the provided middleware (outermost first).
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// ChainQueries builds a query bus with middleware applied.
func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type queryFunc func(ctx context.Context, query queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

// Recovery turns a panic inside a handler into an internal failure so that
// nothing escapes the bus boundary.
func Recovery(logger *slog.Logger) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (res any, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					res, err = nil, recovered(ctx, logger, cmd.Key(), rec)
				}
			}()
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryRecovery(logger *slog.Logger) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (res any, err error) {
			defer func() {
				if rec := recover(); rec != nil {
					res, err = nil, recovered(ctx, logger, q.Key(), rec)
				}
			}()
			return next.Ask(ctx, q)
		})
	}
}

func recovered(ctx context.Context, logger *slog.Logger, key string, rec any) error {
	if logger != nil {
		logger.ErrorContext(ctx, "handler panic", "key", key, "panic", rec, "stack", string(debug.Stack()))
	}
	return failure.Wrap(failure.Internal, failure.InternalMessage, fmt.Errorf("panic in %s: %v", key, rec))
}
