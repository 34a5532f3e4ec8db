// Package amqp connects the tracker to its export queue: the API publishes
// lightweight transaction events, the worker consumes them.
package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key matches the queue name on a direct exchange.
	err = c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishTransactionExport queues an export event for a committed transaction.
func (c *Client) PublishTransactionExport(ctx context.Context, id int64) error {
	env, err := NewEnvelope(KindTransactionExport, TransactionExportMessage{ID: id})
	if err != nil {
		return fmt.Errorf("build envelope: %w", err)
	}
	if err := c.publish(ctx, env); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published transaction export message",
		"id", id, "exchange", c.exchangeName, "queue", c.queueName)
	return nil
}

// PublishTransactionDelete queues a removal event for a deleted transaction.
func (c *Client) PublishTransactionDelete(ctx context.Context, msg TransactionDeleteMessage) error {
	env, err := NewEnvelope(KindTransactionDelete, msg)
	if err != nil {
		return fmt.Errorf("build envelope: %w", err)
	}
	if err := c.publish(ctx, env); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published transaction delete message",
		"id", msg.ID, "exchange", c.exchangeName, "queue", c.queueName)
	return nil
}

const maxPublishAttempts = 3

func (c *Client) publish(ctx context.Context, env *Envelope) error {
	body, err := env.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxPublishAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		lastErr = c.publishOnce(ctx, body)
		if lastErr == nil {
			return nil
		}
		if !isConnectionError(lastErr) {
			return lastErr
		}
		slog.WarnContext(ctx, "Publish failed on connection error, retrying",
			"attempt", attempt+1, "error", lastErr)
	}
	return lastErr
}

func (c *Client) publishOnce(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName,
		c.queueName,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// exponentialBackoff doubles the delay per attempt, capped at 30 seconds.
func exponentialBackoff(attempt int) time.Duration {
	d := time.Second << uint(attempt)
	if d > 30*time.Second || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// isConnectionError reports whether the error looks like a broken broker
// connection worth retrying, as opposed to a permanent publish failure.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection closed",
		"connection reset",
		"channel/connection is not open",
		"EOF",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// ExportHandler processes export events; DeleteHandler processes removals.
type (
	ExportHandler func(ctx context.Context, msg *TransactionExportMessage) error
	DeleteHandler func(ctx context.Context, msg *TransactionDeleteMessage) error
)

// ConsumeMessages runs until the context is canceled, dispatching each
// delivery by kind. Handler failures nack with requeue; malformed messages
// are dropped.
func (c *Client) ConsumeMessages(ctx context.Context, onExport ExportHandler, onDelete DeleteHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming export messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			env, err := EnvelopeFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal envelope", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := c.dispatch(ctx, env, onExport, onDelete); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message", "error", err, "kind", env.Kind)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, env *Envelope, onExport ExportHandler, onDelete DeleteHandler) error {
	switch env.Kind {
	case KindTransactionExport:
		msg, err := env.ExportMessage()
		if err != nil {
			return fmt.Errorf("decode export message: %w", err)
		}
		return onExport(ctx, msg)
	case KindTransactionDelete:
		msg, err := env.DeleteMessage()
		if err != nil {
			return fmt.Errorf("decode delete message: %w", err)
		}
		return onDelete(ctx, msg)
	default:
		return fmt.Errorf("unknown message kind %q", env.Kind)
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
