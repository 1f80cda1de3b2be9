package outbox

import (
	"context"
	"log/slog"
)

// LogProducer stands in for a broker when none is configured.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "outbox message", "topic", topic, "key", key, "bytes", len(payload))
	return nil
}

var _ Producer = LogProducer{}
