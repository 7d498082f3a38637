package notifications

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"courtly/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher emits ledger events for downstream consumers (accounting, mail, audit).
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka ledger producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	ClientID         string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "courtly.ledger",
		ClientID:         "courtly-ledger-producer",
		RetryMax:         3,
		TimeoutMs:        10000,
		RequiredAcks:     sarama.WaitForAll,
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000,
	}
}

// KafkaPublisher publishes ledger events to a single Kafka topic.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
	log      *logger.Logger
}

// NewKafkaPublisher dials the brokers and returns a synchronous publisher.
func NewKafkaPublisher(config *KafkaProducerConfig) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, newSaramaConfig(config))
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return newKafkaPublisher(producer, config), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, config *KafkaProducerConfig) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		config:   config,
		log:      logger.GetDefault(),
	}
}

func newSaramaConfig(config *KafkaProducerConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = config.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = config.MaxMessageBytes

	// Idempotent producers require a single in-flight request per connection.
	if config.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Events for one booking hash to one partition.
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	saramaConfig.ClientID = "courtly-ledger-producer"
	if config.ClientID != "" {
		saramaConfig.ClientID = config.ClientID
	}
	return saramaConfig
}

// Publish sends one event and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, event *Event) error {
	message, err := p.buildMessage(event)
	if err != nil {
		return err
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send event to Kafka: %w", err)
	}

	p.log.DebugWithContext(ctx, "Ledger event published", map[string]interface{}{
		"topic":      p.config.Topic,
		"partition":  partition,
		"offset":     offset,
		"event_type": string(event.Type),
		"event_id":   event.ID.String(),
	})
	return nil
}

func (p *KafkaPublisher) buildMessage(event *Event) (*sarama.ProducerMessage, error) {
	messageBytes, err := event.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return &sarama.ProducerMessage{
		Topic:     p.config.Topic,
		Key:       sarama.StringEncoder(event.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   createHeaders(event),
		Timestamp: event.OccurredAt,
	}, nil
}

func createHeaders(event *Event) []sarama.RecordHeader {
	headers := []sarama.RecordHeader{
		{Key: []byte("event_id"), Value: []byte(event.ID.String())},
		{Key: []byte("event_type"), Value: []byte(event.Type)},
		{Key: []byte("producer"), Value: []byte("courtly-ledger")},
	}
	if event.BookingID != 0 {
		headers = append(headers, sarama.RecordHeader{
			Key: []byte("booking_id"), Value: []byte(strconv.FormatInt(event.BookingID, 10)),
		})
	}
	if event.InvoiceID != 0 {
		headers = append(headers, sarama.RecordHeader{
			Key: []byte("invoice_id"), Value: []byte(strconv.FormatInt(event.InvoiceID, 10)),
		})
	}
	return headers
}

// Close closes the Kafka producer
func (p *KafkaPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	p.log.Info("Kafka ledger producer closed")
	return nil
}

// NoopPublisher drops every event. It is used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event *Event) error { return nil }
func (NoopPublisher) Close() error                                    { return nil }

// Emit publishes an event without failing the caller. Delivery errors are logged.
func Emit(ctx context.Context, p Publisher, event *Event) {
	if p == nil || event == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		logger.GetDefault().ErrorWithContext(ctx, "Failed to publish ledger event", err, map[string]interface{}{
			"event_type": string(event.Type),
			"event_id":   event.ID.String(),
		})
	}
}
