package poller

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/peerboard/internal/store"
)

type consumerKey struct{}

type fakeRunner struct {
	mu        sync.Mutex
	name      string
	autoStart bool
	startErr  error
	starts    int
	stops     int
	refetches int
	startCtx  context.Context
	status    Status
}

func newFakeRunner(name string, autoStart bool) *fakeRunner {
	return &fakeRunner{name: name, autoStart: autoStart}
}

func (f *fakeRunner) Name() string    { return f.name }
func (f *fakeRunner) AutoStart() bool { return f.autoStart }

func (f *fakeRunner) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	f.startCtx = ctx
	if f.startErr != nil {
		return f.startErr
	}
	f.status = StatusRunning
	return nil
}

func (f *fakeRunner) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.status = StatusStopped
}

func (f *fakeRunner) Refetch(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refetches++
	return nil
}

func (f *fakeRunner) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeRunner) Record() store.Record {
	return store.Record{Name: f.name, Status: f.Status().String()}
}

func (f *fakeRunner) Watch() (<-chan store.Record, func()) {
	ch := make(chan store.Record)
	return ch, func() {}
}

func (f *fakeRunner) counts() (starts, stops, refetches int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.refetches
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry(testLogger())

	require.NoError(t, r.Register(newFakeRunner("a", true)))
	assert.Equal(t, 1, r.Count())

	err := r.Register(newFakeRunner("a", false))
	assert.ErrorIs(t, err, ErrDuplicateResource)

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(newFakeRunner("", false)))
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_ActivateStartsAutoStartOnly(t *testing.T) {
	r := NewRegistry(testLogger())
	auto := newFakeRunner("auto", true)
	manual := newFakeRunner("manual", false)
	require.NoError(t, r.Register(auto))
	require.NoError(t, r.Register(manual))

	ctx := context.WithValue(context.Background(), consumerKey{}, "consumer")
	require.NoError(t, r.Activate(ctx))
	require.NoError(t, r.Activate(ctx), "activate is idempotent")
	assert.True(t, r.Active())

	starts, _, _ := auto.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, ctx, auto.startCtx)

	starts, _, _ = manual.counts()
	assert.Zero(t, starts)
}

func TestRegistry_RegisterAfterActivateStarts(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Activate(context.Background()))

	late := newFakeRunner("late", true)
	require.NoError(t, r.Register(late))

	starts, _, _ := late.counts()
	assert.Equal(t, 1, starts)
}

func TestRegistry_DeactivateIsTerminal(t *testing.T) {
	r := NewRegistry(testLogger())
	a := newFakeRunner("a", true)
	b := newFakeRunner("b", false)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))
	require.NoError(t, r.Activate(context.Background()))

	r.Deactivate()
	r.Deactivate()

	_, stops, _ := a.counts()
	assert.Equal(t, 1, stops)
	_, stops, _ = b.counts()
	assert.Equal(t, 1, stops, "runners that never started are stopped too")

	assert.False(t, r.Active())
	assert.ErrorIs(t, r.Activate(context.Background()), ErrRegistryClosed)
	assert.ErrorIs(t, r.Register(newFakeRunner("c", true)), ErrRegistryClosed)
}

func TestRegistry_ActivateJoinsErrors(t *testing.T) {
	r := NewRegistry(testLogger())
	bad := newFakeRunner("bad", true)
	bad.startErr = ErrPollerStopped
	good := newFakeRunner("good", true)
	require.NoError(t, r.Register(bad))
	require.NoError(t, r.Register(good))

	err := r.Activate(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPollerStopped)
	assert.Contains(t, err.Error(), "bad")
	assert.Equal(t, StatusRunning, good.Status())
}

func TestRegistry_GetAndRefetch(t *testing.T) {
	r := NewRegistry(testLogger())
	a := newFakeRunner("a", false)
	require.NoError(t, r.Register(a))

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownResource)

	require.NoError(t, r.Refetch(context.Background(), "a"))
	_, _, refetches := a.counts()
	assert.Equal(t, 1, refetches)

	assert.True(t, errors.Is(r.Refetch(context.Background(), "missing"), ErrUnknownResource))
}

func TestRegistry_ListPreservesOrder(t *testing.T) {
	r := NewRegistry(testLogger())
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(newFakeRunner(name, false)))
	}

	var names []string
	for _, run := range r.List() {
		names = append(names, run.Name())
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)

	records := r.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "c", records[0].Name)
}

func TestRegistry_WithPollers(t *testing.T) {
	r := NewRegistry(testLogger())

	p, err := New(Config[int]{
		Name:   "stats",
		Fetch:  func(context.Context) (int, error) { return 3, nil },
		Policy: RefreshPolicy{AutoStart: true},
		Logger: testLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, r.Register(p))

	require.NoError(t, r.Activate(context.Background()))
	assert.Equal(t, StatusRunning, p.Status())

	r.Deactivate()
	p.Wait()
	assert.Equal(t, StatusStopped, p.Status())
	assert.ErrorIs(t, r.Refetch(context.Background(), "stats"), ErrPollerStopped)
}
