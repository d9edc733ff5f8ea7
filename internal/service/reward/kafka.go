package reward

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sony/gobreaker"

	"github.com/nkiryanov/bazaar/internal/apperrors"
	"github.com/nkiryanov/bazaar/internal/logger"
	"github.com/nkiryanov/bazaar/internal/models"
)

const (
	breakerFailures = 5                // Consecutive failures to open the breaker
	breakerTimeout  = 30 * time.Second // How long the breaker stays open
)

// Message published to Kafka
type kafkaEvent struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Points      int    `json:"points"`
	Reason      string `json:"reason"`
	Description string `json:"description"`
	SourceID    string `json:"source_id"`
	CreatedAt   string `json:"created_at"`
}

// KafkaSink publishes reward events for the external reward dispatcher
// Message key is event id, so consumers can drop duplicates
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
	breaker  *gobreaker.CircuitBreaker
	logger   logger.Logger
}

// NewKafkaProducer connects sync producer to brokers
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

func NewKafkaSink(producer sarama.SyncProducer, topic string, l logger.Logger) *KafkaSink {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "reward-kafka",
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			l.Warn("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &KafkaSink{
		producer: producer,
		topic:    topic,
		breaker:  breaker,
		logger:   l,
	}
}

func (s *KafkaSink) Deliver(ctx context.Context, e models.RewardEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(kafkaEvent{
		ID:          e.ID.String(),
		UserID:      e.UserID.String(),
		Points:      e.Points,
		Reason:      e.Reason,
		Description: e.Description,
		SourceID:    e.SourceID.String(),
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal reward event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(e.ID.String()),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("reason"), Value: []byte(e.Reason)},
		},
	}

	_, err = s.breaker.Execute(func() (any, error) {
		partition, offset, err := s.producer.SendMessage(msg)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("Reward event published", "event_id", e.ID, "partition", partition, "offset", offset)
		return nil, nil
	})
	if err != nil {
		return apperrors.Transient(fmt.Errorf("publish reward event: %w", err))
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
