package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	pkglog "github.com/weiawesome/vlog-interaction-service/pkg/log"
)

// KafkaConfig holds Kafka producer settings.
type KafkaConfig struct {
	Brokers    string
	Topic      string
	Partitions int
}

// KafkaPublisher implements Publisher with confluent-kafka-go. Produce only
// enqueues; delivery failures are reported asynchronously and logged.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

// NewKafkaPublisher creates the producer and makes sure the topic exists.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "all",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kp := &KafkaPublisher{
		producer: p,
		topic:    cfg.Topic,
		doneCh:   make(chan struct{}),
	}
	go kp.deliveryReportHandler()

	if err := ensureTopic(cfg); err != nil {
		l := pkglog.L()
		l.Warn().Err(err).Str("topic", cfg.Topic).Msg("failed to ensure kafka topic")
	}

	return kp, nil
}

func ensureTopic(cfg KafkaConfig) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": cfg.Brokers})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := cfg.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             cfg.Topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	for _, r := range results {
		if code := r.Error.Code(); code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Error)
		}
	}
	return nil
}

func (k *KafkaPublisher) deliveryReportHandler() {
	defer close(k.doneCh)
	l := pkglog.L()
	for e := range k.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			l.Warn().Err(m.TopicPartition.Error).Str("key", string(m.Key)).Msg("interaction event delivery failed")
		}
	}
}

// Publish enqueues the event keyed by Event.Key.
func (k *KafkaPublisher) Publish(_ context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &k.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Key()),
		Value:          data,
		Headers:        []kafka.Header{{Key: "event_type", Value: []byte(event.Type)}},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

// Close flushes outstanding messages for up to five seconds and closes the producer.
func (k *KafkaPublisher) Close() error {
	if remaining := k.producer.Flush(5000); remaining > 0 {
		l := pkglog.L()
		l.Warn().Int("remaining", remaining).Msg("kafka producer closed with undelivered events")
	}
	k.producer.Close()
	<-k.doneCh
	return nil
}

// Ensure interface is satisfied at compile time.
var _ Publisher = (*KafkaPublisher)(nil)
