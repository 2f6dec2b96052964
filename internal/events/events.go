package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
)

// NotificationEvent announces that a task changed and its subscribers should
// be mailed. It is emitted after the change has been committed.
type NotificationEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	Notification domain.Notification `json:"notification"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationEvent wraps n in a new event.
func NewNotificationEvent(n domain.Notification) *NotificationEvent {
	return &NotificationEvent{
		ID:           uuid.New(),
		Notification: n,
		CreatedAt:    time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *NotificationEvent) error
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *NotificationEvent) error

// HandleEvent implements EventHandler.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *NotificationEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *NotificationEvent) error
}
