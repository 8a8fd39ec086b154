package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/bughunt/internal/dependencies/ids"
)

// MockIDs is a mock implementation of ids.Generator for testing.
// Queued IDs are returned first; after that it counts up from "id-1".
type MockIDs struct {
	mu     sync.Mutex
	queued []string
	next   int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a new MockIDs
func NewMockIDs() *MockIDs {
	return &MockIDs{}
}

// NewID returns the next queued ID, or a sequential one if none remain
func (g *MockIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queued) > 0 {
		id := g.queued[0]
		g.queued = g.queued[1:]
		return id
	}
	g.next++
	return fmt.Sprintf("id-%d", g.next)
}

// Queue adds values to the ID queue
func (g *MockIDs) Queue(values ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queued = append(g.queued, values...)
}
