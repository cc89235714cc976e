// Package kafka publishes outbox messages with franz-go.
package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"marketparticipant/internal/events"
	"marketparticipant/internal/platform/config"
)

type syncProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Producer sends each message keyed by its aggregate id so events of one
// aggregate stay ordered within a partition.
type Producer struct {
	client syncProducer
	topic  string
	close  func()
	ping   func(context.Context) error
}

// NewProducer connects to the configured brokers. It returns nil when no
// brokers are configured.
func NewProducer(cfg config.Kafka) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Producer{client: client, topic: cfg.Topic, close: client.Close, ping: client.Ping}, nil
}

// Publish implements relay.Producer. It blocks until every record is
// acknowledged.
func (p *Producer) Publish(ctx context.Context, msgs []events.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, toRecord(p.topic, m))
	}
	if err := p.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce %d records: %w", len(records), err)
	}
	return nil
}

func toRecord(topic string, m events.Message) *kgo.Record {
	return &kgo.Record{
		Topic:     topic,
		Key:       []byte(m.AggregateID),
		Value:     m.Payload,
		Timestamp: m.CreatedAt,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(m.ID)},
			{Key: "event_type", Value: []byte(m.EventType)},
			{Key: "aggregate_type", Value: []byte(m.AggregateType)},
		},
	}
}

// Health pings the cluster.
func (p *Producer) Health(ctx context.Context) error {
	return p.ping(ctx)
}

func (p *Producer) Close() {
	p.close()
}
