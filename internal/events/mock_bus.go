package events

import (
	"context"
	"sync"
)

// MockBus is a hand-written in-memory Bus for tests. Every subscriber,
// shared or broadcast, receives every published message on its topic —
// group semantics are not distinguished, matching the "correctness, not
// scale" needs of unit tests.
type MockBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan Message
	Published   []Envelope

	PublishErr error
}

func NewMockBus() *MockBus {
	return &MockBus{subscribers: make(map[string][]chan Message)}
}

func (b *MockBus) Publish(ctx context.Context, env Envelope) error {
	if b.PublishErr != nil {
		return b.PublishErr
	}
	topic := TopicFor(env.Type)

	b.mu.Lock()
	b.Published = append(b.Published, env)
	subs := append([]chan Message(nil), b.subscribers[topic]...)
	b.mu.Unlock()

	for _, ch := range subs {
		ch <- Message{
			Envelope: env,
			Topic:    topic,
			Ack:      func(ctx context.Context) error { return nil },
			Retry:    func() {},
		}
	}
	return nil
}

func (b *MockBus) SubscribeShared(ctx context.Context, topic, groupID string) (<-chan Message, error) {
	return b.subscribe(topic), nil
}

func (b *MockBus) SubscribeBroadcast(ctx context.Context, topic, instanceID string) (<-chan Message, error) {
	return b.subscribe(topic), nil
}

func (b *MockBus) subscribe(topic string) <-chan Message {
	ch := make(chan Message, 16)
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()
	return ch
}

func (b *MockBus) Close() error { return nil }
