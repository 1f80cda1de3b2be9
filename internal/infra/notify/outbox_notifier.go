// Package notify turns notification requests into outbox records and delivers
// them once they come back from the broker.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	appoutbox "rentals/internal/app/outbox"
	"rentals/internal/app/policies"
)

const EventName = "notification.requested"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type payload struct {
	RecipientID string            `json:"recipient_id"`
	Template    string            `json:"template"`
	RentalID    string            `json:"rental_id"`
	Data        map[string]string `json:"data,omitempty"`
}

// OutboxNotifier queues notifications next to domain events so that the relay
// ships both.
type OutboxNotifier struct {
	Outbox appoutbox.Outbox
	Now    func() time.Time
}

func (n OutboxNotifier) Notify(ctx context.Context, msg policies.Notification) error {
	body, err := json.Marshal(payload{
		RecipientID: msg.RecipientID,
		Template:    msg.Template,
		RentalID:    msg.RentalID,
		Data:        msg.Data,
	})
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if n.Now != nil {
		now = n.Now().UTC()
	}
	return n.Outbox.Add(ctx, appoutbox.EventRecord{
		ID:         uuid.NewString(),
		Name:       EventName,
		Kind:       appoutbox.KindNotification,
		Payload:    body,
		OccurredAt: now,
		Aggregate:  msg.RentalID,
		Headers:    map[string]string{"template": msg.Template},
	})
}

// LogNotifier writes notifications to the log; it is the delivery end when
// no mail or push provider is wired.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ctx context.Context, msg policies.Notification) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification delivered",
		"recipient_id", msg.RecipientID,
		"template", msg.Template,
		"rental_id", msg.RentalID,
	)
	return nil
}

var (
	_ policies.Notifier = OutboxNotifier{}
	_ policies.Notifier = LogNotifier{}
)
