package amqp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jt05610/gantry/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap/zaptest"
)

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func TestPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "devices", zaptest.NewLogger(t))
	e := events.New("gantry-1", events.CommandCompleted, time.Unix(1700000000, 0), map[string]string{"response": "Gantry Homed"})
	if err := p.Publish(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	if ch.exchange != "devices" || ch.key != "gantry-1.events.command_completed" {
		t.Fatalf("unexpected route %s %s", ch.exchange, ch.key)
	}
	if ch.msg.Headers["x-event-id"] != e.ID {
		t.Fatalf("expected event id header %s, got %v", e.ID, ch.msg.Headers["x-event-id"])
	}
	if ch.msg.ContentType != "application/json" || ch.msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected message properties %+v", ch.msg)
	}

	boom := errors.New("channel closed")
	ch.err = boom
	if err := p.Publish(context.Background(), e); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	e := events.New("gantry-1", events.IdleTimeout, time.Unix(1700000000, 0), map[string]interface{}{"homed": true})
	msg, err := Flush(e)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Load(amqp.Delivery{
		RoutingKey: e.RoutingKey(),
		Headers:    msg.Headers,
		Body:       msg.Body,
		MessageId:  msg.MessageId,
		Timestamp:  msg.Timestamp,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != events.IdleTimeout || got.ID != e.ID || got.Device != "gantry-1" {
		t.Fatalf("unexpected event %+v", got)
	}
	if data := got.Data.(map[string]interface{}); data["homed"] != true {
		t.Fatalf("expected homed=true, got %v", data)
	}
}

func TestLoadBadKey(t *testing.T) {
	if _, err := Load(amqp.Delivery{RoutingKey: "gantry-1.commands"}); !errors.Is(err, ErrRoutingKey) {
		t.Fatalf("expected %v, got %v", ErrRoutingKey, err)
	}
}
