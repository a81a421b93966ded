package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPConfig holds the connection parameters for one broker client.
type AMQPConfig struct {
	URL      string
	Exchange string
}

// AMQPClient implements Client over RabbitMQ. One client owns one connection
// and one channel; it is not shared across consumers.
type AMQPClient struct {
	cfg    AMQPConfig
	logger *zap.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPClient builds an unconnected client.
func NewAMQPClient(cfg AMQPConfig, logger *zap.Logger) *AMQPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPClient{cfg: cfg, logger: logger}
}

// Connect dials the broker, opens a channel, and declares the durable topic
// exchange.
func (c *AMQPClient) Connect(_ context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("broker dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		closeErr := conn.Close()
		if closeErr != nil {
			c.logger.Warn("failed to close connection after channel open failure", zap.Error(closeErr))
		}
		return fmt.Errorf("broker channel open: %w", err)
	}
	if err := ch.ExchangeDeclare(
		c.cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		closeErr := conn.Close()
		if closeErr != nil {
			c.logger.Warn("failed to close connection after exchange declare failure", zap.Error(closeErr))
		}
		return fmt.Errorf("declare exchange %q: %w", c.cfg.Exchange, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.ch = ch
	c.mu.Unlock()

	c.logger.Info("connected to broker", zap.String("exchange", c.cfg.Exchange))
	return nil
}

// Publish sends a JSON-encoded persistent message under routingKey.
func (c *AMQPClient) Publish(ctx context.Context, routingKey string, payload any) error {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("broker is not connected")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := ch.PublishWithContext(
		ctx,
		c.cfg.Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish to %q: %w", routingKey, err)
	}
	c.logger.Debug("message published", zap.String("routing_key", routingKey))
	return nil
}

// Consume declares and binds the durable queue, limits prefetch to one
// in-flight delivery, and blocks dispatching deliveries to handler. The
// handler's disposition is applied to each delivery; Nack never requeues.
func (c *AMQPClient) Consume(ctx context.Context, queue, routingKey string, handler Handler) error {
	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("broker is not connected")
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", queue, err)
	}
	if err := ch.QueueBind(queue, routingKey, c.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %q to %q: %w", queue, routingKey, err)
	}
	// One unacknowledged message at a time: message N+1 is not fetched until
	// message N is acked or nacked.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %q: %w", queue, err)
	}

	c.logger.Info("waiting for messages", zap.String("queue", queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("delivery channel for %q closed", queue)
			}
			c.dispatch(ctx, queue, d, handler)
		}
	}
}

func (c *AMQPClient) dispatch(ctx context.Context, queue string, d amqp.Delivery, handler Handler) {
	switch handler(ctx, d.Body) {
	case Ack:
		if err := d.Ack(false); err != nil {
			c.logger.Error("ack failed", zap.String("queue", queue), zap.Error(err))
		}
	default:
		if err := d.Nack(false, false); err != nil {
			c.logger.Error("nack failed", zap.String("queue", queue), zap.Error(err))
		}
	}
}

// Stop closes the channel and connection. It is idempotent and safe to call
// on a client that never connected.
func (c *AMQPClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	if c.ch != nil {
		if err := c.ch.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close channel: %w", err)
		}
		c.ch = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close connection: %w", err)
		}
		c.conn = nil
	}
	return firstErr
}
