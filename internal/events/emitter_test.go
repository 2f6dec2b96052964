package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jiralike-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler records the events it receives.
type MockEventHandler struct {
	mu           sync.Mutex
	HandledCount int
	LastEvent    *NotificationEvent
	HandlerError error
}

func (m *MockEventHandler) HandleEvent(ctx context.Context, event *NotificationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}

func testEvent() *NotificationEvent {
	return NewNotificationEvent(domain.Notification{
		TaskID:     uuid.New(),
		Kind:       domain.NotificationCommentAdded,
		Recipients: []string{"a@example.com"},
	})
}

func TestNewNotificationEvent(t *testing.T) {
	event := testEvent()

	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, domain.NotificationCommentAdded, event.Notification.Kind)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)
	assert.NotEqual(t, event.ID, testEvent().ID)
}

func TestInMemoryEventEmitter(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		assert.NoError(t, emitter.EmitEvent(context.Background(), testEvent()))
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := testEvent()
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Same(t, event, handler1.LastEvent)
		assert.Same(t, event, handler2.LastEvent)
	})

	t.Run("failing handler does not stop the others", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		handlerErr := errors.New("handler error")
		failing := &MockEventHandler{HandlerError: handlerErr}
		success := &MockEventHandler{}
		emitter.RegisterHandler(failing)
		emitter.RegisterHandler(success)

		err := emitter.EmitEvent(context.Background(), testEvent())
		assert.ErrorIs(t, err, handlerErr)
		assert.Equal(t, 1, success.HandledCount)
	})

	t.Run("handler func adapter", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(nil)
		var got *NotificationEvent
		emitter.RegisterHandler(EventHandlerFunc(func(ctx context.Context, e *NotificationEvent) error {
			got = e
			return nil
		}))

		event := testEvent()
		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Same(t, event, got)
	})

	t.Run("concurrent registration and emission", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(logger)
		handler := &MockEventHandler{}
		emitter.RegisterHandler(handler)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				emitter.RegisterHandler(&MockEventHandler{})
			}()
			go func() {
				defer wg.Done()
				_ = emitter.EmitEvent(context.Background(), testEvent())
			}()
		}
		wg.Wait()

		handler.mu.Lock()
		defer handler.mu.Unlock()
		assert.Equal(t, 10, handler.HandledCount)
	})
}
