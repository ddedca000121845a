package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/aiventure/internal/dependencies/random"
)

// MockRandom returns queued ids, then falls back to prefix + counter
type MockRandom struct {
	mu    sync.Mutex
	queue []string
	n     int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// ID returns the next queued id, or a deterministic sequential one
func (r *MockRandom) ID(prefix string, _ int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) > 0 {
		id := r.queue[0]
		r.queue = r.queue[1:]
		return id
	}
	r.n++
	return fmt.Sprintf("%s%d", prefix, r.n)
}

// QueueID adds values to the ID result queue
func (r *MockRandom) QueueID(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queue = append(r.queue, values...)
}
