package mocks

import (
	"context"
	"sync"

	"github.com/mcoot/bughunt/internal/events"
	"github.com/mcoot/bughunt/internal/model"
)

// MockPublisher records published events. Set Err to make Publish fail.
type MockPublisher struct {
	mu     sync.Mutex
	events []model.Event
	Err    error
}

// Ensure MockPublisher implements Publisher
var _ events.Publisher = (*MockPublisher)(nil)

// NewMockPublisher creates a new MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records the event and returns Err
func (p *MockPublisher) Publish(ctx context.Context, event model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.Err
}

// Events returns a copy of everything published so far
func (p *MockPublisher) Events() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Event, len(p.events))
	copy(out, p.events)
	return out
}

// Types returns the types of published events in order
func (p *MockPublisher) Types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]model.EventType, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}
