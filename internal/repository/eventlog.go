package repository

import (
	"context"

	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
)

// KafkaEventLog implements EventPublisher over a Kafka topic. Events are
// keyed so one region's pipeline events stay ordered within a partition.
type KafkaEventLog struct {
	producer *pkgkafka.Producer
	topic    string
	l        *applogger.Logger
}

func NewKafkaEventLog(producer *pkgkafka.Producer, topic string) *KafkaEventLog {
	return &KafkaEventLog{producer: producer, topic: topic}
}

// SetLogger injects a structured logger.
func (k *KafkaEventLog) SetLogger(l *applogger.Logger) { k.l = l }

func (k *KafkaEventLog) Publish(ctx context.Context, key string, event any) error {
	err := k.producer.Publish(ctx, k.topic, []byte(key), event)
	if err != nil && k.l != nil {
		k.l.Error("event publish failed",
			applogger.String("topic", k.topic),
			applogger.String("key", key),
			applogger.Error(err),
		)
	}
	return err
}

func (k *KafkaEventLog) Close() error {
	return k.producer.Close()
}

// NoopEventLog satisfies EventPublisher when Kafka is not configured.
type NoopEventLog struct{}

func (NoopEventLog) Publish(context.Context, string, any) error { return nil }
func (NoopEventLog) Close() error                               { return nil }
