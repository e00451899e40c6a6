package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-foh/internal/common/config"
	"restaurant-foh/internal/domain"
)

const (
	TicketExchange = "print_jobs"
	TicketQueue    = "print_jobs.q"
	DLX            = "print_dlx"
	DLQ            = "print_dlq"
)

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(cfg config.Rabbit) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("mq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("mq: channel: %w", err)
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Channel() *amqp.Channel { return c.ch }

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// DeclareTicketTopology sets up the kitchen-ticket exchange, its work queue
// and the dead-letter pair for poison messages.
func (c *Client) DeclareTicketTopology() error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("mq: nil channel")
	}
	if err := c.ch.ExchangeDeclare(TicketExchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.ch.ExchangeDeclare(DLX, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(TicketQueue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange":    DLX,
		"x-dead-letter-routing-key": DLQ,
	}); err != nil {
		return err
	}
	if _, err := c.ch.QueueDeclare(DLQ, true, false, false, false, nil); err != nil {
		return err
	}
	if err := c.ch.QueueBind(TicketQueue, "ticket.*", TicketExchange, false, nil); err != nil {
		return err
	}
	return c.ch.QueueBind(DLQ, DLQ, DLX, false, nil)
}

func (c *Client) PublishPersistent(ctx context.Context, exchange, key, messageID string, body []byte) error {
	return c.ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// PublishTicket sends one kitchen-ticket print request. First attempts route
// as ticket.new, retries as ticket.retry; both land on the same work queue.
func (c *Client) PublishTicket(ctx context.Context, msg domain.TicketMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mq: marshal ticket: %w", err)
	}
	key := "ticket.new"
	if msg.Attempt > 1 {
		key = "ticket.retry"
	}
	return c.PublishPersistent(ctx, TicketExchange, key, fmt.Sprintf("job-%d-%d", msg.JobID, msg.Attempt), body)
}

func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return c.ch.Consume(queue, consumer, false, false, false, false, nil)
}
