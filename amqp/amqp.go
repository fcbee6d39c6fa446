// Package amqp publishes gantry events to a RabbitMQ topic exchange and reads
// them back.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jt05610/gantry/env"
	"github.com/jt05610/gantry/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrRoutingKey = errors.New("invalid routing key")

// Flush encodes an event as a persistent JSON message. Name, ID and time
// travel in headers so consumers can route without decoding the body.
func Flush(e *events.Event) (amqp.Publishing, error) {
	bytes, err := json.Marshal(e.Data)
	if err != nil {
		var zero amqp.Publishing
		return zero, err
	}
	return amqp.Publishing{
		Body:         bytes,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.Time,
		Headers: amqp.Table{
			"x-event-name": e.Name,
			"x-event-id":   e.ID,
		},
	}, nil
}

// Load decodes a delivery published by Flush.
func Load(d amqp.Delivery) (*events.Event, error) {
	sk := strings.Split(d.RoutingKey, ".")
	if len(sk) != 3 || sk[1] != "events" {
		return nil, fmt.Errorf("%w: %q", ErrRoutingKey, d.RoutingKey)
	}
	e := &events.Event{
		Device: sk[0],
		Name:   strings.Replace(sk[2], "_", " ", -1),
		ID:     d.MessageId,
		Time:   d.Timestamp,
	}
	if d.Headers != nil {
		if name, ok := d.Headers["x-event-name"].(string); ok {
			e.Name = name
		}
		if id, ok := d.Headers["x-event-id"].(string); ok {
			e.ID = id
		}
	}
	if len(d.Body) == 0 {
		return e, nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal(d.Body, &data); err != nil {
		return nil, err
	}
	e.Data = data
	return e, nil
}

type Connection struct {
	*amqp.Connection
	*amqp.Channel
}

func (c *Connection) Close() error {
	if c.Channel != nil {
		err := c.Channel.Close()
		if err != nil {
			return err
		}
	}
	return c.Connection.Close()
}

func Dial(environ *env.Environment) (*Connection, error) {
	conn, err := amqp.Dial(environ.URI)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := declare(ch, environ.Exchange); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Connection{conn, ch}, nil
}

func declare(ch *amqp.Channel, exchange string) error {
	return ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		false,    // durable
		false,    // delete when unused
		false,    // exclusive
		false,    // no-wait
		nil,      // arguments
	)
}

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher is an events.Publisher backed by an exchange.
type Publisher struct {
	ch       publishChannel
	exchange string
	timeout  time.Duration
	logger   *zap.Logger
}

const DefaultPublishTimeout = time.Second

func NewPublisher(ch publishChannel, exchange string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{ch: ch, exchange: exchange, timeout: DefaultPublishTimeout, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, e *events.Event) error {
	msg, err := Flush(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.ch.PublishWithContext(ctx, p.exchange, e.RoutingKey(), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.RoutingKey(), err)
	}
	p.logger.Debug("published", zap.String("key", e.RoutingKey()))
	return nil
}

// Subscribe binds a private queue to every event of device ("*" for all
// devices) and calls handle for each until ctx is done.
func Subscribe(ctx context.Context, conn *Connection, exchange, device string, handle func(*events.Event), logger *zap.Logger) error {
	q, err := conn.QueueDeclare(
		"",    // name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return err
	}
	if err := conn.QueueBind(q.Name, device+".events.*", exchange, false, nil); err != nil {
		return err
	}
	msgs, err := conn.Consume(
		q.Name, // queue
		"",     // consumer
		true,   // auto-ack
		true,   // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			e, err := Load(d)
			if err != nil {
				logger.Warn("dropping delivery", zap.String("key", d.RoutingKey), zap.Error(err))
				continue
			}
			handle(e)
		}
	}
}
