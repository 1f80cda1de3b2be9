package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentals/internal/app/commands"
	"rentals/internal/domain/shared/failure"
)

type reply struct {
	ID string `json:"id"`
}

type bookCommand struct {
	key   string
	actor string
	idem  string
}

func (c bookCommand) Key() string {
	if c.key != "" {
		return c.key
	}
	return "test.book"
}
func (c bookCommand) Actor() string          { return c.actor }
func (c bookCommand) IdempotencyKey() string { return c.idem }
func (c bookCommand) ResultPrototype() any   { return &reply{} }

type busFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f busFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) { return f(ctx, cmd) }

type mapStore struct {
	mu      sync.Mutex
	records map[string]IdempotencyRecord
}

func newMapStore() *mapStore { return &mapStore{records: map[string]IdempotencyRecord{}} }

func (s *mapStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *mapStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = rec
	return nil
}

func TestRecoveryTurnsPanicIntoInternalFailure(t *testing.T) {
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		panic("boom")
	}), Recovery(nil))

	res, err := bus.Dispatch(context.Background(), bookCommand{})

	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.Internal))
	assert.Equal(t, failure.InternalMessage, failure.MessageOf(err))
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	calls := 0
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		return &reply{ID: "r-1"}, nil
	}), Idempotency(newMapStore(), nil))

	first, err := bus.Dispatch(context.Background(), bookCommand{idem: "k"})
	require.NoError(t, err)
	second, err := bus.Dispatch(context.Background(), bookCommand{idem: "k"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestIdempotencyReplaysBusinessFailureOnly(t *testing.T) {
	conflict := failure.New(failure.BookingConflict, "taken")
	store := newMapStore()
	calls := 0
	var next error = conflict
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		calls++
		return nil, next
	}), Idempotency(store, nil))

	_, err := bus.Dispatch(context.Background(), bookCommand{idem: "conflict"})
	require.Error(t, err)
	_, err = bus.Dispatch(context.Background(), bookCommand{idem: "conflict"})
	assert.True(t, failure.IsKind(err, failure.BookingConflict))
	assert.Equal(t, "taken", failure.MessageOf(err))
	assert.Equal(t, 1, calls)

	next = errors.New("db down")
	_, err = bus.Dispatch(context.Background(), bookCommand{idem: "internal"})
	require.Error(t, err)
	_, found, _ := store.Get(context.Background(), "internal")
	assert.False(t, found, "unexpected failures must stay retryable")
}

func TestIdempotencyRejectsKeyReuseAcrossOperations(t *testing.T) {
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		return &reply{ID: "r-1"}, nil
	}), Idempotency(newMapStore(), nil))

	_, err := bus.Dispatch(context.Background(), bookCommand{idem: "k"})
	require.NoError(t, err)
	_, err = bus.Dispatch(context.Background(), bookCommand{idem: "k", key: "test.other"})
	assert.ErrorIs(t, err, ErrKeyReused)
}

func TestAuthorizationRequiresActor(t *testing.T) {
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		return "ok", nil
	}), Authorization(ActorAuthorizer{}))

	_, err := bus.Dispatch(context.Background(), bookCommand{actor: "  "})
	assert.ErrorIs(t, err, ErrActorRequired)

	res, err := bus.Dispatch(context.Background(), bookCommand{actor: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
}

func TestChainRunsOutermostFirst(t *testing.T) {
	var order []string
	tag := func(name string) CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		order = append(order, "handler")
		return nil, nil
	}), tag("a"), tag("b"))

	_, err := bus.Dispatch(context.Background(), bookCommand{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

type stubValidator struct{ err error }

func (v stubValidator) Validate(context.Context, any) error { return v.err }

func TestValidationStopsInvalidCommands(t *testing.T) {
	invalid := failure.New(failure.Validation, "rental_id is required")
	called := false
	bus := ChainCommands(busFunc(func(context.Context, commands.Command) (any, error) {
		called = true
		return nil, nil
	}), Validation(stubValidator{err: invalid}))

	_, err := bus.Dispatch(context.Background(), bookCommand{})
	assert.ErrorIs(t, err, invalid)
	assert.False(t, called)
}
