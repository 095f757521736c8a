// Package messaging provides the durable topic-exchange adapter and the
// OCR request consumer built on it.
//
// Delivery is at-least-once: handlers returning nil are acknowledged,
// handlers returning an error are negatively acknowledged without requeue and
// the message routes to the exchange's dead-letter exchange. One adapter
// instance is one logical consumer; deliveries from all subscriptions are
// dispatched sequentially on the Run loop.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/farmabot/ocr-service/pkg/logging"
)

// Handler processes one decoded message payload. A nil return acknowledges
// the delivery regardless of any business failure the handler captured
// internally; a non-nil return dead-letters it.
type Handler func(ctx context.Context, payload json.RawMessage) error

type dispatch struct {
	delivery amqp.Delivery
	handler  Handler
}

// Client is a single-consumer AMQP adapter over one connection and channel
type Client struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	deliveries chan dispatch
	consuming  map[string]bool
	log        zerolog.Logger
}

// Dial connects to the broker at uri and opens the adapter channel
func Dial(uri string) (*Client, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &Client{
		conn:       conn,
		ch:         ch,
		deliveries: make(chan dispatch),
		consuming:  make(map[string]bool),
		log:        logging.GetLogger("messaging"),
	}, nil
}

// Publish declares exchange as a durable topic exchange and publishes message
// as persistent JSON under routingKey
func (c *Client) Publish(ctx context.Context, exchange, routingKey string, message any, headers amqp.Table) error {
	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	err = c.ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      headers,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	c.log.Debug().
		Str("exchange", exchange).
		Str("routing_key", routingKey).
		Int("bytes", len(body)).
		Msg("Message published")
	return nil
}

// SubscribeTopic declares exchange (topic, durable) and queue (durable, with
// a dead-letter exchange at "<exchange>.dlq"), binds queue to routingKey, and
// registers handler. Subscribing the same queue again only adds the binding.
func (c *Client) SubscribeTopic(exchange, queue, routingKey string, handler Handler) error {
	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	// The DLQ exchange must exist before the first rejection routes to it
	if err := c.ch.ExchangeDeclare(exchange+".dlq", "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dead-letter exchange %s.dlq: %w", exchange, err)
	}

	if _, err := c.ch.QueueDeclare(queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": exchange + ".dlq",
	}); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := c.ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s/%s: %w", queue, exchange, routingKey, err)
	}

	return c.consume(queue, handler)
}

// SubscribeFanout declares exchange (fanout, durable), binds an exclusive
// server-named queue to it, and registers handler
func (c *Client) SubscribeFanout(exchange string, handler Handler) error {
	if err := c.ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	q, err := c.ch.QueueDeclare("", false, false, true, false, nil)
	if err != nil {
		return fmt.Errorf("declare exclusive queue: %w", err)
	}
	if err := c.ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", q.Name, exchange, err)
	}

	return c.consume(q.Name, handler)
}

// HandleDeadLetter declares the dead-letter fanout exchange and a durable
// inspection queue bound to it, and registers handler for poison messages
func (c *Client) HandleDeadLetter(dlqExchange, dlqQueue string, handler Handler) error {
	if err := c.ch.ExchangeDeclare(dlqExchange, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", dlqExchange, err)
	}
	if _, err := c.ch.QueueDeclare(dlqQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", dlqQueue, err)
	}
	if err := c.ch.QueueBind(dlqQueue, "", dlqExchange, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", dlqQueue, dlqExchange, err)
	}

	return c.consume(dlqQueue, handler)
}

// consume starts a manual-ack consumer on queue and forwards its deliveries
// into the shared dispatch channel drained by Run
func (c *Client) consume(queue string, handler Handler) error {
	if c.consuming[queue] {
		return nil
	}

	msgs, err := c.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", queue, err)
	}
	c.consuming[queue] = true

	go func() {
		for d := range msgs {
			c.deliveries <- dispatch{delivery: d, handler: handler}
		}
	}()

	c.log.Info().Str("queue", queue).Msg("Consumer registered")
	return nil
}

// Run blocks, dispatching deliveries from all subscriptions sequentially,
// until the connection closes or ctx is done. There is no handler
// concurrency within one adapter instance; scale out with competing
// consumers on the same queue.
func (c *Client) Run(ctx context.Context) error {
	closed := c.conn.NotifyClose(make(chan *amqp.Error, 1))

	c.log.Info().Msg("Consumer loop started")
	for {
		select {
		case d := <-c.deliveries:
			c.handleDelivery(ctx, d)
		case err := <-closed:
			if err != nil {
				return fmt.Errorf("connection closed: %w", err)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handleDelivery applies the ack discipline: malformed JSON or a handler
// error rejects without requeue (dead-letter), anything else acknowledges
func (c *Client) handleDelivery(ctx context.Context, d dispatch) {
	log := c.log.With().
		Str("exchange", d.delivery.Exchange).
		Str("routing_key", d.delivery.RoutingKey).
		Logger()

	if !json.Valid(d.delivery.Body) {
		log.Warn().Msg("Undecodable payload, dead-lettering")
		c.nack(log, d.delivery)
		return
	}

	if err := d.handler(ctx, json.RawMessage(d.delivery.Body)); err != nil {
		log.Warn().Err(err).Msg("Handler failed, dead-lettering")
		c.nack(log, d.delivery)
		return
	}

	if err := d.delivery.Ack(false); err != nil {
		log.Error().Err(err).Msg("Failed to acknowledge delivery")
	}
}

func (c *Client) nack(log zerolog.Logger, d amqp.Delivery) {
	if err := d.Nack(false, false); err != nil {
		log.Error().Err(err).Msg("Failed to reject delivery")
	}
}

// Close releases the channel and connection
func (c *Client) Close() error {
	if err := c.ch.Close(); err != nil {
		c.conn.Close()
		return err
	}
	return c.conn.Close()
}
