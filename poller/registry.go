package poller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jpalmerr/peerboard/internal/store"
)

// Runner is the type-erased view of a [Poller] held by a [Registry].
type Runner interface {
	Name() string
	Start(ctx context.Context) error
	Stop()
	Refetch(ctx context.Context) error
	AutoStart() bool
	Status() Status
	Record() store.Record
	Watch() (<-chan store.Record, func())
}

var _ Runner = (*Poller[struct{}])(nil)

// Registry owns the pollers of one consumer and ties their lifecycle to the
// consumer's: [Registry.Activate] starts every auto-start poller and
// [Registry.Deactivate] stops them all.
//
// A deactivated registry is terminal, matching the pollers it owns.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	runners map[string]Runner
	order   []string
	ctx     context.Context
	active  bool
	closed  bool
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		logger:  logger,
		runners: make(map[string]Runner),
	}
}

// Register adds a runner to the registry.
//
// If the registry is already active and the runner is marked auto-start,
// it is started immediately. Registering on a deactivated registry returns
// [ErrRegistryClosed]; a name already in use returns [ErrDuplicateResource].
func (r *Registry) Register(run Runner) error {
	if run == nil {
		return fmt.Errorf("cannot register nil runner")
	}
	name := run.Name()
	if name == "" {
		return fmt.Errorf("runner name cannot be empty")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	if _, exists := r.runners[name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateResource, name)
	}
	r.runners[name] = run
	r.order = append(r.order, name)
	startNow := r.active && run.AutoStart()
	ctx := r.ctx
	r.mu.Unlock()

	if startNow {
		if err := run.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
	}
	return nil
}

// Activate starts every registered auto-start runner with ctx as parent.
//
// Activate is idempotent while active. After [Registry.Deactivate] it
// returns [ErrRegistryClosed]. Start failures are joined; runners that
// started successfully keep running.
func (r *Registry) Activate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	if r.active {
		r.mu.Unlock()
		return nil
	}
	r.active = true
	r.ctx = ctx
	runners := r.listLocked()
	r.mu.Unlock()

	var errs []error
	started := 0
	for _, run := range runners {
		if !run.AutoStart() {
			continue
		}
		if err := run.Start(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to start %s: %w", run.Name(), err))
			continue
		}
		started++
	}

	r.logger.Debug("registry activated", "resources", len(runners), "started", started)
	return errors.Join(errs...)
}

// Deactivate stops every registered runner. It is idempotent and terminal.
// In-flight executions are left to complete; their results are discarded.
func (r *Registry) Deactivate() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.active = false
	runners := r.listLocked()
	r.mu.Unlock()

	// stop after releasing the lock so Stop never blocks registry reads
	for _, run := range runners {
		run.Stop()
	}

	r.logger.Debug("registry deactivated", "resources", len(runners))
}

// Get returns the runner registered under name, or [ErrUnknownResource].
func (r *Registry) Get(name string) (Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runners[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, name)
	}
	return run, nil
}

// Refetch forces one execution of the named runner.
func (r *Registry) Refetch(ctx context.Context, name string) error {
	run, err := r.Get(name)
	if err != nil {
		return err
	}
	return run.Refetch(ctx)
}

// List returns all registered runners in registration order.
func (r *Registry) List() []Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

// Records returns the current record of every runner in registration order.
func (r *Registry) Records() []store.Record {
	runners := r.List()
	records := make([]store.Record, len(runners))
	for i, run := range runners {
		records[i] = run.Record()
	}
	return records
}

// Count returns the number of registered runners.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.runners)
}

// Active reports whether the registry has been activated and not yet
// deactivated.
func (r *Registry) Active() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

func (r *Registry) listLocked() []Runner {
	runners := make([]Runner, len(r.order))
	for i, name := range r.order {
		runners[i] = r.runners[name]
	}
	return runners
}
