package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCommand struct{ n int }

func (pingCommand) Key() string { return "test.ping" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func pingHandler() Handler[pingCommand, int] {
	return HandlerFunc[pingCommand, int](func(_ context.Context, cmd pingCommand) (int, error) {
		return cmd.n + 1, nil
	})
}

func TestRegistryDispatchesTypedHandler(t *testing.T) {
	r := NewRegistry()
	RegisterHandler[pingCommand, int](r, "test.ping", pingHandler())

	got, err := Dispatch[pingCommand, int](context.Background(), r, pingCommand{n: 41})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, []string{"test.ping"}, r.Keys())
}

func TestRegistryPanicsOnDuplicateKey(t *testing.T) {
	r := NewRegistry()
	RegisterHandler[pingCommand, int](r, "test.ping", pingHandler())

	assert.PanicsWithValue(t, "commands: duplicate registration for test.ping", func() {
		RegisterHandler[pingCommand, int](r, "test.ping", pingHandler())
	})
}

func TestRegistryUnknownKey(t *testing.T) {
	_, err := NewRegistry().Dispatch(context.Background(), otherCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestDispatchResultTypeMismatch(t *testing.T) {
	r := NewRegistry()
	RegisterHandler[pingCommand, int](r, "test.ping", pingHandler())

	_, err := Dispatch[pingCommand, string](context.Background(), r, pingCommand{})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = Dispatch[pingCommand, int](context.Background(), nil, pingCommand{})
	assert.ErrorIs(t, err, ErrNilBus)
}
