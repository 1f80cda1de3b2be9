package notify

import (
	"context"
	"log/slog"

	"github.com/IBM/sarama"

	"rentals/internal/app/policies"
)

// Inbox deduplicates deliveries by event id.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
}

type envelope struct {
	ID   string  `json:"id"`
	Type string  `json:"type"`
	Data payload `json:"data"`
}

// Consumer delivers notification events read from the broker exactly once
// per inbox.
type Consumer struct {
	Inbox    Inbox
	Delivery policies.Notifier
	Logger   *slog.Logger
}

func (c *Consumer) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt envelope
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		c.warn(ctx, "notification decode failed", msg, err)
		// A malformed message will never decode; let the offset move on.
		return nil
	}
	if evt.Type != EventName+".v1" {
		return nil
	}
	if c.Inbox != nil && evt.ID != "" {
		seen, err := c.Inbox.Seen(ctx, evt.ID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	return c.Delivery.Notify(ctx, policies.Notification{
		RecipientID: evt.Data.RecipientID,
		Template:    evt.Data.Template,
		RentalID:    evt.Data.RentalID,
		Data:        evt.Data.Data,
	})
}

func (c *Consumer) warn(ctx context.Context, text string, msg *sarama.ConsumerMessage, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.WarnContext(ctx, text, "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
}
