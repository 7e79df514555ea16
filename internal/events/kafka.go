package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"storefront/internal/model"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// kafkaPublisher implements Publisher on a synchronous Kafka producer.
type kafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewKafkaPublisher connects to brokers and returns a Publisher writing to topic.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) (Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("error creating kafka producer: %w", err)
	}

	return newKafkaPublisher(producer, topic, logger), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string, logger zerolog.Logger) *kafkaPublisher {
	return &kafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.With().Str("component", "kafka-publisher").Str("topic", topic).Logger(),
	}
}

// PublishOrderStatusChanged sends evt keyed by order ID so that all events of
// one order land on the same partition in order.
func (p *kafkaPublisher) PublishOrderStatusChanged(ctx context.Context, evt model.OrderStatusChanged) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("error encoding order event: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)

	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(EventOrderStatusChanged)},
	}
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(strconv.FormatInt(evt.OrderID, 10)),
		Value:   sarama.ByteEncoder(payload),
		Headers: headers,
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.Error().Err(err).Int64("order_id", evt.OrderID).Msg("failed to publish order event")
		return fmt.Errorf("error sending order event: %w", err)
	}

	p.logger.Debug().
		Int64("order_id", evt.OrderID).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("order event published")
	return nil
}

// Close flushes and closes the producer.
func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}
