package rentals

import (
	"log/slog"

	"rentals/internal/app/commands"
	rentalhandlers "rentals/internal/app/handlers/rentals"
	"rentals/internal/app/middleware"
	"rentals/internal/app/queries"
)

// Options wires the service. Validator, Idempotency and Logger are optional.
type Options struct {
	Dependencies rentalhandlers.Dependencies
	Validator    middleware.Validator
	Idempotency  middleware.IdempotencyStore
	Logger       *slog.Logger
}

// New registers every rental operation and wraps the registries in the
// middleware pipeline, outermost first: recovery, logging, validation,
// authorization, idempotency, outbox flush.
func New(opts Options) *Service {
	cmdRegistry := commands.NewRegistry()
	queryRegistry := queries.NewRegistry()
	deps := opts.Dependencies
	if deps.Logger == nil {
		deps.Logger = opts.Logger
	}
	rentalhandlers.Register(cmdRegistry, queryRegistry, deps)

	cmdMW := []middleware.CommandMiddleware{middleware.Recovery(opts.Logger)}
	queryMW := []middleware.QueryMiddleware{middleware.QueryRecovery(opts.Logger)}
	if opts.Logger != nil {
		cmdMW = append(cmdMW, middleware.Logging(opts.Logger))
		queryMW = append(queryMW, middleware.QueryLogging(opts.Logger))
	}
	if opts.Validator != nil {
		cmdMW = append(cmdMW, middleware.Validation(opts.Validator))
		queryMW = append(queryMW, middleware.QueryValidation(opts.Validator))
	}
	cmdMW = append(cmdMW, middleware.Authorization(middleware.ActorAuthorizer{}))
	if opts.Idempotency != nil {
		cmdMW = append(cmdMW, middleware.Idempotency(opts.Idempotency, nil))
	}
	if deps.Outbox != nil {
		cmdMW = append(cmdMW, middleware.OutboxFlush(deps.Outbox))
	}

	return &Service{
		Commands: middleware.ChainCommands(cmdRegistry, cmdMW...),
		Queries:  middleware.ChainQueries(queryRegistry, queryMW...),
		Logger:   opts.Logger,
	}
}
