package poller

import (
	"sync"
	"time"

	"github.com/jpalmerr/peerboard/internal/store"
)

// Snapshot is a consistent view of a [State] at one point in time.
//
// Data and Error in a Snapshot always belong to the same execution, Applied.
type Snapshot[T any] struct {
	// Data holds the last successfully fetched value, or the resource's
	// empty default if no fetch has succeeded yet.
	Data T `json:"data"`

	// Loading is true while the execution tagged Seq is in flight.
	Loading bool `json:"loading"`

	// Error is the message from the most recent failed execution.
	// Empty when the most recent execution succeeded or is still running.
	Error string `json:"error,omitempty"`

	// Seq is the sequence number of the most recently started execution.
	// Zero before the first execution starts.
	Seq uint64 `json:"seq"`

	// Applied is the sequence number of the execution whose result Data and
	// Error reflect. Zero until an execution completes.
	Applied uint64 `json:"applied"`

	// UpdatedAt is when the snapshot last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasError reports whether the snapshot carries an error message.
func (s Snapshot[T]) HasError() bool {
	return s.Error != ""
}

// State is the observable data/loading/error triple for one resource.
//
// State is mutated only by its owning [Poller]. Any number of readers may
// call its methods concurrently. Subscribers receive a [Snapshot] after every
// change; slow subscribers miss snapshots rather than blocking the poller.
type State[T any] struct {
	mu   sync.RWMutex
	snap Snapshot[T]
	hub  store.Hub[Snapshot[T]]
}

func newState[T any](initial T) *State[T] {
	return &State[T]{snap: Snapshot[T]{Data: initial}}
}

// Snapshot returns the current state.
func (s *State[T]) Snapshot() Snapshot[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Data returns the current data.
func (s *State[T]) Data() T {
	return s.Snapshot().Data
}

// Loading reports whether an execution is in flight.
func (s *State[T]) Loading() bool {
	return s.Snapshot().Loading
}

// Error returns the current error message, or "" if none.
func (s *State[T]) Error() string {
	return s.Snapshot().Error
}

// Subscribe returns a channel that receives a [Snapshot] after every change.
func (s *State[T]) Subscribe() <-chan Snapshot[T] {
	return s.hub.Subscribe()
}

// Unsubscribe removes and closes a subscription channel.
func (s *State[T]) Unsubscribe(ch <-chan Snapshot[T]) {
	s.hub.Unsubscribe(ch)
}

// begin opens the loading window for execution seq and clears the error.
func (s *State[T]) begin(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Loading = true
	s.snap.Error = ""
	s.snap.Seq = seq
	s.snap.UpdatedAt = time.Now()
	s.hub.Publish(s.snap)
}

// finish applies the result of execution seq. On failure the data is left
// untouched and only errMsg is recorded. pending keeps the loading window
// open for a later execution still in flight.
func (s *State[T]) finish(seq uint64, data T, errMsg string, ok, pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.snap.Data = data
		s.snap.Error = ""
	} else {
		s.snap.Error = errMsg
	}
	s.snap.Loading = pending
	s.snap.Applied = seq
	s.snap.UpdatedAt = time.Now()
	s.hub.Publish(s.snap)
}

func (s *State[T]) close() {
	s.hub.Close()
}
