package events

import "context"

// Message is one envelope delivered from a subscription, together with the
// verdict callbacks a handler uses to tell the bus what to do next.
type Message struct {
	Envelope Envelope
	Topic    string
	// Ack commits the message so it is never redelivered to this
	// consumer group.
	Ack func(ctx context.Context) error
	// Retry leaves the message uncommitted so the bus redelivers it;
	// handlers must be idempotent with respect to redelivery.
	Retry func()
}

// Bus is the publish/subscribe abstraction every service depends on.
// SubscribeShared puts the caller in a competing-consumer group: only one
// instance in the group processes a given message (used by Recurring and
// Audit). SubscribeBroadcast gives the caller its own, unique group so every
// instance receives every message (used by the WebSocket Gateway, since
// presence is per-instance and a message destined for a user connected to
// instance B must still reach instance B even if instance A's consumer
// group already committed it).
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
	SubscribeShared(ctx context.Context, topic, groupID string) (<-chan Message, error)
	SubscribeBroadcast(ctx context.Context, topic, instanceID string) (<-chan Message, error)
	Close() error
}
