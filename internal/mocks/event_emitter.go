package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/phrazzld/jiralike-api/internal/events"
)

// RecordingEmitter implements events.EventEmitter and keeps every event.
type RecordingEmitter struct {
	mu     sync.Mutex
	events []*events.NotificationEvent

	// Err is returned by EmitEvent after recording.
	Err error
}

var _ events.EventEmitter = (*RecordingEmitter)(nil)

// EmitEvent implements events.EventEmitter.
func (r *RecordingEmitter) EmitEvent(ctx context.Context, event *events.NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.Err
}

// Notifications returns the notifications emitted so far, oldest first.
func (r *RecordingEmitter) Notifications() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Notification, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Notification)
	}
	return out
}

// Reset forgets the recorded events.
func (r *RecordingEmitter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
