package policies

import "context"

type Notification struct {
	RecipientID string
	Template    string
	RentalID    string
	Data        map[string]string
}

// Notifier delivers user-facing messages. Delivery is best effort and
// failures never fail the command that produced the notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}
