package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	kafka "github.com/segmentio/kafka-go"
)

// KafkaBus publishes and consumes envelopes over Kafka. One writer is shared
// across every Publish call; one reader is created per subscription.
type KafkaBus struct {
	brokers []string
	writer  *kafka.Writer

	mu      sync.Mutex
	readers []*kafka.Reader
}

func NewKafkaBus(brokers []string) *KafkaBus {
	return &KafkaBus{
		brokers: brokers,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{}, // partition by message key (owner id)
			AllowAutoTopicCreation: true,
		},
	}
}

func (b *KafkaBus) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	msg := kafka.Message{
		Topic: TopicFor(env.Type),
		Key:   []byte(ownerKeyFrom(env)),
		Value: body,
	}
	return b.writer.WriteMessages(ctx, msg)
}

func (b *KafkaBus) SubscribeShared(ctx context.Context, topic, groupID string) (<-chan Message, error) {
	return b.subscribe(ctx, topic, groupID)
}

func (b *KafkaBus) SubscribeBroadcast(ctx context.Context, topic, instanceID string) (<-chan Message, error) {
	// A unique group per instance means every instance gets its own
	// offset cursor, so every instance sees every message.
	return b.subscribe(ctx, topic, topic+"-broadcast-"+instanceID)
}

func (b *KafkaBus) subscribe(ctx context.Context, topic, groupID string) (<-chan Message, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.brokers,
		Topic:   topic,
		GroupID: groupID,
	})

	b.mu.Lock()
	b.readers = append(b.readers, reader)
	b.mu.Unlock()

	out := make(chan Message)
	go func() {
		defer close(out)
		for {
			km, err := reader.FetchMessage(ctx)
			if err != nil {
				return // ctx cancelled or reader closed
			}
			var env Envelope
			if err := json.Unmarshal(km.Value, &env); err != nil {
				// Malformed payload can never be processed; commit and move on.
				_ = reader.CommitMessages(ctx, km)
				continue
			}
			msg := km
			out <- Message{
				Envelope: env,
				Topic:    topic,
				Ack: func(ctx context.Context) error {
					return reader.CommitMessages(ctx, msg)
				},
				Retry: func() {},
			}
		}
	}()
	return out, nil
}

func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.readers {
		_ = r.Close()
	}
	return b.writer.Close()
}

// ownerKeyFrom extracts a best-effort partition key so a given owner's
// events land on the same partition and preserve relative ordering.
func ownerKeyFrom(env Envelope) string {
	var probe struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.Unmarshal(env.Data, &probe); err == nil && probe.OwnerID != "" {
		return probe.OwnerID
	}
	return env.ID
}
