// Package history implements a bounded linear undo/redo log over arbitrary
// state snapshots.
package history

// DefaultMaxHistory is the snapshot limit used when none is given.
const DefaultMaxHistory = 50

// Store keeps a list of snapshots and a cursor into it. Snapshots returned by
// the store must be treated as immutable; every change goes through Set or
// Update, which appends a new entry.
//
// Store is not safe for concurrent use. Owners that serve several goroutines
// must confine it to one of them.
type Store[T any] struct {
	initial    T
	log        []T
	index      int
	maxHistory int
}

// New creates a store holding only initial. A maxHistory below 1 selects
// DefaultMaxHistory.
func New[T any](initial T, maxHistory int) *Store[T] {
	if maxHistory < 1 {
		maxHistory = DefaultMaxHistory
	}
	return &Store[T]{
		initial:    initial,
		log:        []T{initial},
		maxHistory: maxHistory,
	}
}

// State returns the snapshot at the cursor.
func (s *Store[T]) State() T {
	return s.log[s.index]
}

// Set discards any redoable future, appends next and moves the cursor onto it.
// When the log grows past the limit the oldest entries are dropped. Equal
// values are not deduplicated.
func (s *Store[T]) Set(next T) {
	log := append(s.log[:s.index+1:s.index+1], next)
	if over := len(log) - s.maxHistory; over > 0 {
		log = log[over:]
	}
	s.log = log
	s.index = min(len(log)-1, s.maxHistory-1)
}

// Update applies fn to the current state and stores the result.
func (s *Store[T]) Update(fn func(prev T) T) {
	s.Set(fn(s.State()))
}

// Undo moves the cursor back one entry. It is a no-op at the oldest entry.
func (s *Store[T]) Undo() {
	if s.index > 0 {
		s.index--
	}
}

// Redo moves the cursor forward one entry. It is a no-op at the newest entry.
func (s *Store[T]) Redo() {
	if s.index < len(s.log)-1 {
		s.index++
	}
}

func (s *Store[T]) CanUndo() bool { return s.index > 0 }
func (s *Store[T]) CanRedo() bool { return s.index < len(s.log)-1 }

// Clear resets the log to the initial state.
func (s *Store[T]) Clear() {
	s.log = []T{s.initial}
	s.index = 0
}

// Reset replaces the initial state and clears the log. Used when a different
// document is loaded into the owner.
func (s *Store[T]) Reset(initial T) {
	s.initial = initial
	s.Clear()
}

// Len is the number of retained snapshots.
func (s *Store[T]) Len() int { return len(s.log) }

// Index is the cursor position.
func (s *Store[T]) Index() int { return s.index }

// MaxHistory is the configured snapshot limit.
func (s *Store[T]) MaxHistory() int { return s.maxHistory }
