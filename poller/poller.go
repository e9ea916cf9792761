package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/peerboard/internal/store"
)

// Status is a poller's lifecycle status.
type Status int

const (
	// StatusCreated is the initial status: no execution has been scheduled.
	StatusCreated Status = iota

	// StatusRunning means the poller has been started and may tick.
	StatusRunning

	// StatusStopped is terminal.
	StatusStopped
)

// String returns "created", "running", or "stopped".
func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// tickerFunc creates a ticker and returns its channel and stop function.
// Replaced in tests to drive ticks by hand.
type tickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Config configures a [Poller].
type Config[T any] struct {
	// Name is the poller's unique name within a [Registry].
	// Defaults to the query name.
	Name string

	// Resource is the human-readable resource label used in fallback error
	// messages ("Failed to fetch <Resource>"). Defaults to Name.
	Resource string

	// Query is the bound query descriptor. Only used for identification;
	// Fetch performs the actual work.
	Query Query

	// Policy is the refresh policy.
	Policy RefreshPolicy

	// Fetch produces one result per execution. Required.
	Fetch FetchFunc[T]

	// Initial is the data exposed before the first successful execution.
	Initial T

	// Logger receives execution logs. Defaults to a discarding logger.
	Logger *slog.Logger

	// Observer receives one call per completed execution. Optional.
	Observer Observer
}

// Poller drives repeated executions of a fetch function and writes each
// result into its [State].
//
// Executions are tagged with a sequence number when they start. Executions
// may overlap and are never cancelled by a newer one. A result is applied
// unless a later-started execution has already been applied, so the state
// never moves backwards. Loading stays set until the most recently started
// execution settles.
//
// All methods are safe for concurrent use.
type Poller[T any] struct {
	name      string
	resource  string
	query     Query
	policy    RefreshPolicy
	fetch     FetchFunc[T]
	logger    *slog.Logger
	observer  Observer
	newTicker tickerFunc

	state   *State[T]
	records store.Hub[store.Record]

	mu         sync.Mutex
	status     Status
	seq        uint64
	applied    uint64
	loopCancel context.CancelFunc
	loopDone   chan struct{}
	inflight   sync.WaitGroup
}

// New creates a [Poller] in the created status.
func New[T any](cfg Config[T]) (*Poller[T], error) {
	if cfg.Fetch == nil {
		return nil, errors.New("fetch function is required")
	}
	name := cfg.Name
	if name == "" {
		name = cfg.Query.Name()
	}
	if name == "" {
		return nil, errors.New("name is required")
	}
	if err := cfg.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("poller %q: %w", name, err)
	}

	resource := cfg.Resource
	if resource == "" {
		resource = name
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &Poller[T]{
		name:      name,
		resource:  resource,
		query:     cfg.Query,
		policy:    cfg.Policy,
		fetch:     cfg.Fetch,
		logger:    logger.With("resource", name),
		observer:  observer,
		newTicker: realTicker,
		state:     newState(cfg.Initial),
	}, nil
}

// Name returns the poller's unique name.
func (p *Poller[T]) Name() string { return p.name }

// Query returns the bound query descriptor.
func (p *Poller[T]) Query() Query { return p.query }

// Policy returns the refresh policy.
func (p *Poller[T]) Policy() RefreshPolicy { return p.policy }

// AutoStart reports whether a registry should start this poller on activation.
func (p *Poller[T]) AutoStart() bool { return p.policy.AutoStart }

// State returns the observable state. The returned value is read-only to
// callers; only the poller writes to it.
func (p *Poller[T]) State() *State[T] { return p.state }

// Snapshot is shorthand for p.State().Snapshot().
func (p *Poller[T]) Snapshot() Snapshot[T] { return p.state.Snapshot() }

// Status returns the lifecycle status.
func (p *Poller[T]) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Start transitions the poller to running and triggers one execution
// immediately. In interval mode it then executes on every tick until
// [Poller.Stop] is called or ctx is cancelled.
//
// Start is non-blocking and idempotent while running. Starting a stopped
// poller returns [ErrPollerStopped]. Cancelling ctx stops the poller but,
// like Stop, does not cancel executions already in flight.
func (p *Poller[T]) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	p.mu.Lock()
	switch p.status {
	case StatusRunning:
		p.mu.Unlock()
		return nil
	case StatusStopped:
		p.mu.Unlock()
		return ErrPollerStopped
	}
	p.status = StatusRunning

	loopCtx, cancel := context.WithCancel(ctx)
	p.loopCancel = cancel
	p.loopDone = make(chan struct{})
	done := p.loopDone

	var tick <-chan time.Time
	var stopTick func()
	if p.policy.Mode == Interval {
		tick, stopTick = p.newTicker(p.policy.Interval)
	}
	p.publishRecordLocked()
	p.mu.Unlock()

	p.logger.Debug("poller started",
		"mode", p.policy.Mode.String(),
		"interval", p.policy.Interval.String(),
	)

	execCtx := context.WithoutCancel(ctx)
	p.launch(execCtx)

	go func() {
		defer close(done)
		if stopTick != nil {
			defer stopTick()
		}
		for {
			select {
			case <-loopCtx.Done():
				p.markStopped()
				return
			case <-tick:
				p.launch(execCtx)
			}
		}
	}()

	return nil
}

// Stop cancels the ticker and marks the poller stopped. It is idempotent.
//
// Stop waits for the tick loop to exit but not for in-flight executions;
// their results are discarded when they arrive. Use [Poller.Wait] to wait
// for them.
func (p *Poller[T]) Stop() {
	p.markStopped()

	p.mu.Lock()
	cancel, done := p.loopCancel, p.loopDone
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *Poller[T]) markStopped() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusStopped {
		return
	}
	p.status = StatusStopped
	p.publishRecordLocked()
	p.records.Close()
	p.state.close()
	p.logger.Debug("poller stopped", "seq", p.seq)
}

// Refetch runs one execution synchronously, outside the tick cadence.
//
// Fetch failures are recorded in the state, not returned. Refetch returns
// [ErrPollerStopped] if the poller has been stopped. A poller that was
// never started may still be refetched.
func (p *Poller[T]) Refetch(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	seq, execCtx, cancel, ok := p.begin(ctx)
	if !ok {
		return ErrPollerStopped
	}
	p.run(execCtx, seq, cancel)
	return nil
}

// Wait blocks until every execution started so far has completed. It is
// intended for use after [Poller.Stop].
func (p *Poller[T]) Wait() {
	p.inflight.Wait()
}

// launch begins an execution and runs it in the background.
func (p *Poller[T]) launch(ctx context.Context) {
	seq, execCtx, cancel, ok := p.begin(ctx)
	if !ok {
		return
	}
	go p.run(execCtx, seq, cancel)
}

// begin allocates the next sequence number and opens the loading window.
// It reports false if the poller is stopped.
func (p *Poller[T]) begin(ctx context.Context) (uint64, context.Context, context.CancelFunc, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == StatusStopped {
		return 0, nil, nil, false
	}

	p.seq++
	execCtx, cancel := context.WithCancel(ctx)

	p.state.begin(p.seq)
	p.publishRecordLocked()
	p.inflight.Add(1)
	return p.seq, execCtx, cancel, true
}

func (p *Poller[T]) run(ctx context.Context, seq uint64, cancel context.CancelFunc) {
	defer p.inflight.Done()
	defer cancel()

	start := time.Now()
	data, err := p.safeFetch(ctx)
	elapsed := time.Since(start)

	outcome := p.complete(seq, data, err)
	p.observer.ObserveExecution(p.name, outcome, elapsed, err)

	switch outcome {
	case OutcomeSuccess:
		p.logger.Debug("poll succeeded", "seq", seq, "duration_ms", elapsed.Milliseconds())
	case OutcomeFailure:
		p.logger.Warn("poll failed", "seq", seq, "duration_ms", elapsed.Milliseconds(), "error", err)
	default:
		p.logger.Debug("poll result discarded", "seq", seq, "reason", string(outcome))
	}
}

// complete applies an execution's result unless the poller has been stopped
// or a later-started execution has already been applied.
func (p *Poller[T]) complete(seq uint64, data T, err error) Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == StatusStopped {
		return OutcomeStopped
	}
	if seq < p.applied {
		return OutcomeSuperseded
	}
	p.applied = seq
	pending := seq < p.seq

	if err != nil {
		p.state.finish(seq, data, ErrorMessage(err, p.resource), false, pending)
		p.publishRecordLocked()
		return OutcomeFailure
	}
	p.state.finish(seq, data, "", true, pending)
	p.publishRecordLocked()
	return OutcomeSuccess
}

// safeFetch calls the fetch function with panic recovery.
// A panic is logged with its stack under a correlation ID and returned as
// an error carrying the ID.
func (p *Poller[T]) safeFetch(ctx context.Context) (data T, err error) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			stack := debug.Stack()

			p.logger.Error("fetch panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(stack),
			)

			var zero T
			data = zero
			err = fmt.Errorf("fetch panic (correlation_id: %s)", correlationID)
		}
	}()
	return p.fetch(ctx)
}

// Record returns the type-erased form of the current state.
func (p *Poller[T]) Record() store.Record {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recordLocked()
}

// Watch subscribes to records published after every state or status
// change. The channel is closed when the poller stops or when the returned
// function is called.
func (p *Poller[T]) Watch() (<-chan store.Record, func()) {
	ch := p.records.Subscribe()
	return ch, func() { p.records.Unsubscribe(ch) }
}

func (p *Poller[T]) publishRecordLocked() {
	if p.records.Len() == 0 {
		return
	}
	p.records.Publish(p.recordLocked())
}

func (p *Poller[T]) recordLocked() store.Record {
	snap := p.state.Snapshot()

	data, err := json.Marshal(snap.Data)
	if err != nil {
		p.logger.Error("failed to encode record data", "error", err)
		data = nil
	}

	rec := store.Record{
		Name:      p.name,
		Query:     p.query.Name(),
		Data:      data,
		Loading:   snap.Loading,
		Status:    p.status.String(),
		Seq:       snap.Seq,
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Error != "" {
		msg := snap.Error
		rec.Error = &msg
	}
	return rec
}
