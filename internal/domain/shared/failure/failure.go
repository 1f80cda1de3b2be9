// Package failure classifies business errors so that callers can branch on a
// kind instead of matching messages.
package failure

import "errors"

type Kind string

const (
	NotFound                Kind = "not_found"
	Validation              Kind = "validation_error"
	ItemUnavailable         Kind = "item_unavailable"
	SelfRentalForbidden     Kind = "self_rental_forbidden"
	BookingConflict         Kind = "booking_conflict"
	DeliveryUnavailable     Kind = "delivery_unavailable"
	DeliveryAddressRequired Kind = "delivery_address_required"
	InvalidStateTransition  Kind = "invalid_state_transition"
	Unauthorized            Kind = "unauthorized"
	RefundRequired          Kind = "refund_required"
	Internal                Kind = "internal_error"
)

// InternalMessage is the only text surfaced for unexpected failures.
const InternalMessage = "internal error"

// Error carries a kind, a caller-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind to an underlying error, keeping it reachable via errors.Unwrap.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind and message, so that sentinels
// survive a Wrap with fresh context.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// KindOf returns the kind of the first *Error in the chain and whether one was found.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// MessageOf returns the caller-facing message of a classified error.
func MessageOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return InternalMessage
}
