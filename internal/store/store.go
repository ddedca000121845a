package store

import (
	"sync"
	"sync/atomic"

	"github.com/mcoot/aiventure/internal/model"
)

// Store is an observable holder for one immutable snapshot of T.
// Every change installs a new pointer and notifies subscribers
// synchronously, in the writer's goroutine, in subscription order.
// Callers must not mutate a snapshot they got from Get or a callback, and
// a subscriber must not write to the store that is notifying it.
type Store[T any] struct {
	value atomic.Pointer[T]

	// writeMu serializes writers so subscribers see changes in order
	writeMu sync.Mutex

	subMu  sync.Mutex
	nextID int
	subs   []subscription[T]
}

type subscription[T any] struct {
	id int
	fn func(*T)
}

// PlayerStore holds the current player and everything nested in it
type PlayerStore = Store[model.Player]

// LabStore holds the lab the view is focused on
type LabStore = Store[model.Lab]

// New creates an empty store
func New[T any]() *Store[T] {
	return &Store[T]{}
}

// NewPlayerStore creates an empty player store
func NewPlayerStore() *PlayerStore {
	return New[model.Player]()
}

// NewLabStore creates an empty lab store
func NewLabStore() *LabStore {
	return New[model.Lab]()
}

// Get returns the current snapshot, or nil when empty
func (s *Store[T]) Get() *T {
	return s.value.Load()
}

// Set replaces the snapshot. Setting the pointer already held is not a change.
func (s *Store[T]) Set(v *T) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.swapLocked(v)
}

// Update replaces the snapshot with fn(current). fn must return a new value
// rather than modify its argument; returning the argument is a no-op.
func (s *Store[T]) Update(fn func(*T) *T) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.swapLocked(fn(s.value.Load()))
}

// Reset empties the store
func (s *Store[T]) Reset() {
	s.Set(nil)
}

// Subscribe registers fn for future changes and returns its cancel func
func (s *Store[T]) Subscribe(fn func(*T)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store[T]) swapLocked(v *T) {
	if old := s.value.Swap(v); old == v {
		return
	}

	s.subMu.Lock()
	subs := append([]subscription[T](nil), s.subs...)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(v)
	}
}
