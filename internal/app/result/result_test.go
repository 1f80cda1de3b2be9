package result

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"rentals/internal/domain/shared/failure"
)

func TestFromKeepsBusinessFailures(t *testing.T) {
	err := fmt.Errorf("create: %w", failure.New(failure.BookingConflict, "item already booked"))

	r := From(0, err)

	assert.False(t, r.IsOk())
	assert.Equal(t, failure.BookingConflict, r.Kind())
	assert.Equal(t, "item already booked", r.Message())
}

func TestFromHidesUnexpectedErrors(t *testing.T) {
	r := From("", errors.New("pq: connection refused"))

	assert.Equal(t, failure.Internal, r.Kind())
	assert.Equal(t, failure.InternalMessage, r.Message())
	assert.True(t, failure.IsKind(r.Err(), failure.Internal))
}

func TestOkCarriesValue(t *testing.T) {
	r := From(7, nil)

	v, err := r.Unpack()
	assert.True(t, r.IsOk())
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Empty(t, r.Kind())
	assert.Empty(t, r.Message())
}
