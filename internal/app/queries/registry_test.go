package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoQuery struct{ text string }

func (echoQuery) Key() string { return "test.echo" }

func TestRegistryAsksTypedHandler(t *testing.T) {
	r := NewRegistry()
	RegisterHandler[echoQuery, string](r, "test.echo", HandlerFunc[echoQuery, string](func(_ context.Context, q echoQuery) (string, error) {
		return q.text, nil
	}))

	got, err := Ask[echoQuery, string](context.Background(), r, echoQuery{text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.RegisterRaw("", func(context.Context, Query) (any, error) { return nil, nil }) })
	assert.Panics(t, func() { r.RegisterRaw("test.echo", nil) })

	r.RegisterRaw("test.echo", func(context.Context, Query) (any, error) { return nil, nil })
	assert.PanicsWithValue(t, "queries: duplicate registration for test.echo", func() {
		r.RegisterRaw("test.echo", func(context.Context, Query) (any, error) { return nil, nil })
	})
}

func TestRegistryUnknownQuery(t *testing.T) {
	_, err := NewRegistry().Ask(context.Background(), echoQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}
