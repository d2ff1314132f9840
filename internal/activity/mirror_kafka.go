package activity

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"registra/internal/platform/metrics"
)

// KafkaMirror publishes every persisted activity record to a Kafka topic so
// downstream consumers (SIEM, analytics) can tail the trail. Delivery is
// best-effort like the rest of the pipeline: produce errors are logged and
// the record is not retried.
type KafkaMirror struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewKafkaMirror(brokers []string, topic string, logger *slog.Logger, m *metrics.Metrics) (*KafkaMirror, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaMirror{client: client, topic: topic, logger: logger, metrics: m}, nil
}

func (k *KafkaMirror) Publish(ctx context.Context, record Record) {
	payload, err := json.Marshal(record)
	if err != nil {
		k.logger.Error("marshal activity mirror payload", "error", err)
		return
	}

	rec := &kgo.Record{Key: []byte(record.ID.String()), Value: payload}
	k.client.Produce(ctx, rec, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Warn("activity mirror produce failed", "error", err)
			return
		}
		if k.metrics != nil {
			k.metrics.ActivityMirrored.Inc()
		}
	})
}

func (k *KafkaMirror) Close() {
	k.client.Close()
}
