// Package result is the boundary type returned by the rental service: either
// a value or a classified failure, never both.
package result

import (
	"rentals/internal/domain/shared/failure"
)

type Result[T any] struct {
	value T
	err   *failure.Error
}

func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

func Err[T any](kind failure.Kind, message string) Result[T] {
	return Result[T]{err: failure.New(kind, message)}
}

// From converts a handler outcome. Unclassified errors and internal failures
// collapse into the generic internal message.
func From[T any](value T, err error) Result[T] {
	if err == nil {
		return Ok(value)
	}
	kind, ok := failure.KindOf(err)
	if !ok || kind == failure.Internal {
		return Err[T](failure.Internal, failure.InternalMessage)
	}
	return Err[T](kind, failure.MessageOf(err))
}

func (r Result[T]) IsOk() bool {
	return r.err == nil
}

func (r Result[T]) Value() T {
	return r.value
}

// Kind is empty for successful results.
func (r Result[T]) Kind() failure.Kind {
	if r.err == nil {
		return ""
	}
	return r.err.Kind
}

func (r Result[T]) Message() string {
	if r.err == nil {
		return ""
	}
	return r.err.Message
}

// Err returns the failure as an error, or nil.
func (r Result[T]) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

// Unpack returns the value and error in the usual Go shape.
func (r Result[T]) Unpack() (T, error) {
	return r.value, r.Err()
}
