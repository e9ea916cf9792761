package peerboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/peerboard/internal/server"
	"github.com/jpalmerr/peerboard/internal/store"
)

const (
	defaultPort    = 8080
	publishTimeout = 5 * time.Second
)

// Publisher receives every record change seen by a [Mirror].
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}

// RequestObserver records one HTTP request served by a [Mirror].
type RequestObserver = server.RequestObserver

// Mirror serves the live state of a [View] over HTTP.
//
// Mirror activates the view, copies every state change of its resources into
// an in-memory store, and exposes that store as a JSON API with a
// Server-Sent Events stream. It is created using [NewMirror] and started
// with [Mirror.Start].
//
// The typical lifecycle is:
//
//	view := client.NewView()
//	conns, _ := client.PeerConnections()
//	_ = view.Add(conns)
//
//	m, err := peerboard.NewMirror(view, peerboard.WithPort(9090))
//	if err != nil {
//	    slog.Error("failed to create mirror", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Start(ctx) // blocks until context cancelled
//
// Only resources added to the view before Start are mirrored.
type Mirror struct {
	view            *View
	title           string
	port            int
	metricsHandler  http.Handler
	requestObserver RequestObserver
	publisher       Publisher
	callbacks       []func(Record)
	logger          *slog.Logger
	store           *store.MemoryStore
}

// NewMirror creates a [Mirror] for view.
//
// Options have sensible defaults:
//   - Port: 8080
//   - Title: "PeerBoard"
//
// Returns an error if view is nil or any option is invalid.
func NewMirror(view *View, opts ...MirrorOption) (*Mirror, error) {
	if view == nil {
		return nil, errors.New("view cannot be nil")
	}

	cfg := &mirrorConfig{port: defaultPort}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := view.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Mirror{
		view:            view,
		title:           cfg.title,
		port:            cfg.port,
		metricsHandler:  cfg.metricsHandler,
		requestObserver: cfg.requestObserver,
		publisher:       cfg.publisher,
		callbacks:       cfg.callbacks,
		logger:          logger,
		store:           store.NewMemoryStore(),
	}, nil
}

// Port returns the configured HTTP port.
func (m *Mirror) Port() int {
	return m.port
}

// Records returns the mirrored records ordered by name.
func (m *Mirror) Records() []Record {
	return m.store.GetAll()
}

// Start activates the view and serves its state.
//
// Start is a blocking call that runs until the provided context is
// cancelled. During execution:
//
//   - Every auto-start resource fetches immediately, then at its own cadence
//   - Every state change is stored, passed to change callbacks, and published
//   - The HTTP API is available at http://localhost:<port>/api/resources
//
// On cancellation the view is deactivated and Start waits for pending
// changes to be delivered before returning.
//
// Returns nil on graceful shutdown, including when ctx is already cancelled,
// in which case the view is deactivated without serving. Returns an error if
// the view has already been deactivated or if the HTTP server fails to start.
func (m *Mirror) Start(ctx context.Context) error {
	resources := m.view.Resources()
	m.logger.Info("peerboard mirror starting", "resource_count", len(resources))
	m.logger.Info("mirror available", "url", fmt.Sprintf("http://localhost:%d/api/resources", m.port))

	// check if context already cancelled
	if ctx.Err() != nil {
		m.view.Deactivate()
		return nil
	}

	for _, rec := range m.view.Records() {
		m.store.Update(rec)
	}

	// subscribe before activation so the first executions are not missed
	var wg sync.WaitGroup
	for _, res := range resources {
		ch, _ := res.Watch()
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.forward(res, ch)
		}()
	}

	var pubWG sync.WaitGroup
	var pubCh <-chan Record
	if m.publisher != nil {
		pubCh = m.store.Subscribe()
		pubWG.Add(1)
		go func() {
			defer pubWG.Done()
			m.publish(ctx, pubCh)
		}()
	}

	// cleanup stops every resource, which closes their watch channels
	cleanup := func() {
		m.view.Deactivate()
		wg.Wait()
		if pubCh != nil {
			m.store.Unsubscribe(pubCh)
			pubWG.Wait()
		}
	}

	if err := m.view.Activate(ctx); err != nil {
		if errors.Is(err, ErrViewClosed) {
			cleanup()
			return err
		}
		m.logger.Warn("some resources failed to start", "error", err)
	}

	var opts []server.Option
	if m.metricsHandler != nil {
		opts = append(opts, server.WithMetricsHandler(m.metricsHandler))
	}
	if m.requestObserver != nil {
		opts = append(opts, server.WithRequestObserver(m.requestObserver))
	}

	httpServer := server.NewServer(m.store, m.view, m.port, m.title, m.logger, opts...)
	if err := httpServer.Start(ctx); err != nil {
		cleanup()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	<-ctx.Done()
	cleanup()
	m.logger.Info("peerboard mirror stopped")
	return nil
}

// forward mirrors one resource until its watch channel closes.
//
// The watch channel drops records when this goroutine falls behind, so each
// wakeup stores the resource's current record rather than the one received.
// A final read after the channel closes catches a dropped last change.
func (m *Mirror) forward(res Resource, ch <-chan Record) {
	var last Record
	apply := func() {
		rec := res.Record()
		if sameRecord(rec, last) {
			return
		}
		last = rec
		// store update first (callbacks fire after data is persisted)
		m.store.Update(rec)
		for _, cb := range m.callbacks {
			invokeCallbackSafe(cb, rec, m.logger)
		}
	}
	for range ch {
		apply()
	}
	apply()
}

func sameRecord(a, b Record) bool {
	return a.Seq == b.Seq &&
		a.Loading == b.Loading &&
		a.Status == b.Status &&
		a.UpdatedAt.Equal(b.UpdatedAt)
}

// publish forwards store changes to the publisher until ch is closed.
// Publishing outlives ctx so the final records of a shutdown are delivered.
func (m *Mirror) publish(ctx context.Context, ch <-chan Record) {
	base := context.WithoutCancel(ctx)
	for rec := range ch {
		pubCtx, cancel := context.WithTimeout(base, publishTimeout)
		err := m.publisher.Publish(pubCtx, rec)
		cancel()
		if err != nil {
			m.logger.Warn("failed to publish record", "resource", rec.Name, "error", err)
		}
	}
}

// invokeCallbackSafe calls a change callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Record), rec Record, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("change callback panicked",
				"panic", r,
				"resource", rec.Name,
			)
		}
	}()
	cb(rec)
}
