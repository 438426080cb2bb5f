package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"
)

// EventOrderConfirmation is the event type consumed by the mailer.
const EventOrderConfirmation = "order.confirmation"

// Producer is the subset of *kafka.Producer the notifier uses.
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Flush(timeoutMs int) int
	Close()
}

type envelope struct {
	Type       string            `json:"type"`
	OccurredAt string            `json:"occurredAt"`
	Payload    OrderConfirmation `json:"payload"`
}

type kafkaNotifier struct {
	producer       Producer
	topic          string
	deliverTimeout time.Duration
	logger         zerolog.Logger
}

// KafkaConfig configures the Kafka notifier.
type KafkaConfig struct {
	Broker         string
	Topic          string
	FlushTimeoutMs int
}

// NewKafkaNotifier connects a producer to the broker.
func NewKafkaNotifier(cfg KafkaConfig, logger zerolog.Logger) (Notifier, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Broker,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return newKafkaNotifier(p, cfg, logger), nil
}

func newKafkaNotifier(p Producer, cfg KafkaConfig, logger zerolog.Logger) *kafkaNotifier {
	timeout := time.Duration(cfg.FlushTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &kafkaNotifier{
		producer:       p,
		topic:          cfg.Topic,
		deliverTimeout: timeout,
		logger:         logger.With().Str("component", "notify").Str("topic", cfg.Topic).Logger(),
	}
}

// SendOrderConfirmation publishes the confirmation keyed by order number and
// waits for the broker's delivery report.
func (n *kafkaNotifier) SendOrderConfirmation(ctx context.Context, msg OrderConfirmation) bool {
	value, err := json.Marshal(envelope{
		Type:       EventOrderConfirmation,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		Payload:    msg,
	})
	if err != nil {
		n.logger.Error().Err(err).Str("order_number", msg.OrderNumber).Msg("failed to encode confirmation")
		return false
	}

	delivery := make(chan kafka.Event, 1)
	err = n.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &n.topic, Partition: kafka.PartitionAny},
		Key:            []byte(msg.OrderNumber),
		Value:          value,
		Headers:        []kafka.Header{{Key: "event-type", Value: []byte(EventOrderConfirmation)}},
	}, delivery)
	if err != nil {
		n.logger.Warn().Err(err).Str("order_number", msg.OrderNumber).Msg("failed to enqueue confirmation")
		return false
	}

	timer := time.NewTimer(n.deliverTimeout)
	defer timer.Stop()

	select {
	case e := <-delivery:
		m, ok := e.(*kafka.Message)
		if !ok {
			n.logger.Warn().Str("event", e.String()).Msg("unexpected delivery event")
			return false
		}
		if m.TopicPartition.Error != nil {
			n.logger.Warn().Err(m.TopicPartition.Error).Str("order_number", msg.OrderNumber).Msg("confirmation delivery failed")
			return false
		}
		n.logger.Info().
			Str("order_number", msg.OrderNumber).
			Int32("partition", m.TopicPartition.Partition).
			Int64("offset", int64(m.TopicPartition.Offset)).
			Msg("confirmation published")
		return true
	case <-timer.C:
		n.logger.Warn().Str("order_number", msg.OrderNumber).Msg("timed out waiting for confirmation delivery")
		return false
	case <-ctx.Done():
		return false
	}
}

// Close flushes outstanding messages and closes the producer.
func (n *kafkaNotifier) Close() {
	if remaining := n.producer.Flush(int(n.deliverTimeout / time.Millisecond)); remaining > 0 {
		n.logger.Warn().Int("remaining", remaining).Msg("messages not delivered before close")
	}
	n.producer.Close()
}
