// Package events carries status telemetry out of the control loop.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/iancoleman/strcase"
	"go.uber.org/zap"
)

const (
	Ready            = "ready"
	CommandAccepted  = "command accepted"
	CommandCompleted = "command completed"
	CommandFailed    = "command failed"
	UnknownCommand   = "unknown command"
	IdleTimeout      = "idle timeout"
)

type Event struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Device string      `json:"device"`
	Time   time.Time   `json:"time"`
	Data   interface{} `json:"data,omitempty"`
}

func New(device, name string, now time.Time, data interface{}) *Event {
	return &Event{
		ID:     uuid.New().String(),
		Name:   name,
		Device: device,
		Time:   now,
		Data:   data,
	}
}

func (e *Event) snakeCaseName() string {
	return strcase.ToSnake(e.Name)
}

// RoutingKey is `<device>.events.<snake_case_name>`.
func (e *Event) RoutingKey() string {
	return e.Device + ".events." + e.snakeCaseName()
}

// Publisher sends events somewhere. Publish must not block the caller for
// long; it is called from the control loop.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// Log writes events to a zap logger.
type Log struct {
	logger *zap.Logger
}

func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Publish(_ context.Context, e *Event) error {
	l.logger.Info("event",
		zap.String("name", e.Name),
		zap.String("id", e.ID),
		zap.String("key", e.RoutingKey()),
		zap.Any("data", e.Data),
	)
	return nil
}

// Multi publishes to every publisher and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e *Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Memory keeps published events in order.
type Memory struct {
	mu     sync.Mutex
	events []*Event
}

func (m *Memory) Publish(_ context.Context, e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *Memory) Events() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Event, len(m.events))
	copy(out, m.events)
	return out
}

// Names lists the names of published events in order.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Name
	}
	return out
}
