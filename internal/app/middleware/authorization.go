package middleware

import (
	"context"
	"strings"

	"rentals/internal/app/commands"
	"rentals/internal/domain/shared/failure"
)

var ErrActorRequired = failure.New(failure.Unauthorized, "middleware: acting user is required")

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// ActorCommand is implemented by commands issued on behalf of a user.
type ActorCommand interface {
	commands.Command
	Actor() string
}

// ActorAuthorizer rejects user commands that arrive without an actor.
// Ownership checks stay in the domain lifecycle.
type ActorAuthorizer struct{}

func (ActorAuthorizer) Authorize(_ context.Context, message any) error {
	cmd, ok := message.(ActorCommand)
	if !ok {
		return nil
	}
	if strings.TrimSpace(cmd.Actor()) == "" {
		return ErrActorRequired
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}
