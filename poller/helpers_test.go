package poller

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

const testTimeout = 2 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fetchResult[T any] struct {
	data T
	err  error
}

// pendingCall is one blocked fetch waiting for the test to answer it.
type pendingCall[T any] struct {
	ctx   context.Context
	reply chan fetchResult[T]
}

func (c *pendingCall[T]) succeed(v T) {
	c.reply <- fetchResult[T]{data: v}
}

func (c *pendingCall[T]) fail(err error) {
	c.reply <- fetchResult[T]{err: err}
}

// scriptedFetch blocks every call until the test answers it.
type scriptedFetch[T any] struct {
	calls chan *pendingCall[T]
}

func newScriptedFetch[T any]() *scriptedFetch[T] {
	return &scriptedFetch[T]{calls: make(chan *pendingCall[T], 16)}
}

func (s *scriptedFetch[T]) fetch(ctx context.Context) (T, error) {
	c := &pendingCall[T]{ctx: ctx, reply: make(chan fetchResult[T], 1)}
	s.calls <- c
	r := <-c.reply
	return r.data, r.err
}

func (s *scriptedFetch[T]) next(t *testing.T) *pendingCall[T] {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for fetch call")
		return nil
	}
}

// sequenceFetch returns preset results in order without blocking.
type sequenceFetch[T any] struct {
	mu      sync.Mutex
	results []fetchResult[T]
	calls   int
}

func (s *sequenceFetch[T]) fetch(context.Context) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results[s.calls%len(s.results)]
	s.calls++
	return r.data, r.err
}

// manualTicker hands the test control over every tick.
type manualTicker struct {
	mu       sync.Mutex
	created  int
	stopped  int
	interval time.Duration
	ch       chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) new(d time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
	m.interval = d
	return m.ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.stopped++
	}
}

func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ch <- time.Now():
	case <-time.After(testTimeout):
		t.Fatal("tick not consumed")
	}
}

func (m *manualTicker) counts() (created, stopped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created, m.stopped
}

type observation struct {
	resource string
	outcome  Outcome
	err      error
}

type recordingObserver struct {
	ch chan observation
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{ch: make(chan observation, 32)}
}

func (o *recordingObserver) ObserveExecution(resource string, outcome Outcome, _ time.Duration, err error) {
	o.ch <- observation{resource: resource, outcome: outcome, err: err}
}

func (o *recordingObserver) next(t *testing.T) observation {
	t.Helper()
	select {
	case obs := <-o.ch:
		return obs
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for observation")
		return observation{}
	}
}

// awaitSnapshot reads from ch until pred matches.
func awaitSnapshot[T any](t *testing.T, ch <-chan Snapshot[T], pred func(Snapshot[T]) bool) Snapshot[T] {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				t.Fatal("snapshot channel closed")
			}
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timeout waiting for snapshot")
			return Snapshot[T]{}
		}
	}
}

func settled[T any](seq uint64) func(Snapshot[T]) bool {
	return func(s Snapshot[T]) bool { return s.Applied == seq && !s.Loading }
}
