package testutil

import (
	"context"
	"sync"

	ierr "github.com/corebill/corebill/internal/errors"
	"github.com/corebill/corebill/internal/webhook"
)

// PublishedWebhook captures one delivered event for assertions
type PublishedWebhook struct {
	EventName string
	Payload   interface{}
}

// MockWebhookPublisher records published events and can be told to fail
type MockWebhookPublisher struct {
	mu sync.Mutex

	FailPublishes bool

	Events []PublishedWebhook
}

var _ webhook.Publisher = (*MockWebhookPublisher)(nil)

func NewMockWebhookPublisher() *MockWebhookPublisher {
	return &MockWebhookPublisher{}
}

func (m *MockWebhookPublisher) Publish(ctx context.Context, eventName string, payload interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailPublishes {
		return ierr.NewError("webhook delivery failed").
			WithHint("The endpoint rejected the event").
			Mark(ierr.ErrExternalService)
	}
	m.Events = append(m.Events, PublishedWebhook{EventName: eventName, Payload: payload})
	return nil
}

// EventNames returns the names of all published events in order
func (m *MockWebhookPublisher) EventNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, len(m.Events))
	for i, e := range m.Events {
		names[i] = e.EventName
	}
	return names
}
