// Package broker defines the message-broker contract the pipeline requires:
// a durable topic exchange, durable bound queues, prefetch-limited consumption
// with explicit acknowledgment, and persistent JSON publishing.
package broker

import "context"

// Disposition is the handler's decision about a delivery.
type Disposition int

const (
	// Ack confirms the delivery was fully processed.
	Ack Disposition = iota
	// NackDrop rejects the delivery without requeueing it. A failed message
	// is never redelivered by this pipeline; recovery is an operational
	// concern.
	NackDrop
)

// Handler processes one delivery body and returns its disposition. The
// consume loop applies the disposition to the broker; handlers never touch
// channel-level acknowledgment directly.
type Handler func(ctx context.Context, body []byte) Disposition

// Publisher sends a JSON-encoded, persistently-flagged message under a
// routing key on the configured exchange.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Client is the full broker contract for one consumer: connect, consume one
// queue with prefetch 1, publish, and stop. Each consumer owns its own Client;
// connections are never shared across consumers.
type Client interface {
	Publisher

	// Connect establishes the connection and declares the durable topic
	// exchange. A connect failure is fatal to the owning consumer.
	Connect(ctx context.Context) error

	// Consume declares a durable queue, binds it under routingKey, limits
	// prefetch to one in-flight delivery, and blocks invoking handler per
	// delivery until ctx is canceled or the channel fails.
	Consume(ctx context.Context, queue, routingKey string, handler Handler) error

	// Stop halts consumption and releases the connection. Safe to call more
	// than once and safe to call when never started.
	Stop() error
}
