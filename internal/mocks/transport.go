package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/jiralike-api/internal/platform/mailer"
)

// MockTransport implements mailer.Transport and records every batch sent.
type MockTransport struct {
	mu sync.Mutex

	// SendFn overrides the default behavior when set.
	SendFn func(ctx context.Context, msgs []*mailer.Message) error

	// Err is returned by Send when SendFn is nil.
	Err error

	batches [][]*mailer.Message
}

var _ mailer.Transport = (*MockTransport)(nil)

// Send implements mailer.Transport.
func (m *MockTransport) Send(ctx context.Context, msgs []*mailer.Message) error {
	m.mu.Lock()
	m.batches = append(m.batches, msgs)
	m.mu.Unlock()

	if m.SendFn != nil {
		return m.SendFn(ctx, msgs)
	}
	return m.Err
}

// Batches returns the batches passed to Send, oldest first.
func (m *MockTransport) Batches() [][]*mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]*mailer.Message(nil), m.batches...)
}

// Messages returns every message sent, flattened across batches.
func (m *MockTransport) Messages() []*mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*mailer.Message
	for _, b := range m.batches {
		out = append(out, b...)
	}
	return out
}
