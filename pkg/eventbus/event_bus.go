// Package eventbus carries run lifecycle events over watermill publishers and subscribers.
package eventbus

import (
	"context"

	"github.com/dukex/bundleflow/pkg/events"
)

// Event is any payload of pkg/events.
type Event interface {
	GetType() events.EventType
}

// EventPublisher is the only part of the bus the executor needs. Events of one run share
// the run id as key, so a partitioned transport keeps them ordered.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches decoded events to the handler registered for their type.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the concrete event type, e.g. *events.NodeFinished.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
