package policies

import (
	"context"

	"rentals/internal/domain/shared/money"
)

// PaymentGateway is the opaque external payment provider.
type PaymentGateway interface {
	// CreatePaymentIntent returns the provider reference for a future capture.
	CreatePaymentIntent(ctx context.Context, amount money.Money, method string) (string, error)
	// Refund reports whether the provider accepted the refund. Calls that
	// repeat idempotencyKey must not move money twice.
	Refund(ctx context.Context, reference, idempotencyKey string, amount money.Money) (bool, error)
}
