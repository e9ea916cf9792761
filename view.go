package peerboard

import (
	"context"
	"log/slog"

	"github.com/jpalmerr/peerboard/internal/store"
	"github.com/jpalmerr/peerboard/poller"
)

// Resource is any resource that can be added to a [View]. Every resource
// returned by a [Client] constructor satisfies it.
type Resource = poller.Runner

// Record is the JSON-ready state of one resource.
type Record = store.Record

// View owns the resources of one consumer, such as a dashboard page, and
// ties their lifecycle to it.
//
// Call [View.Activate] when the consumer mounts and [View.Deactivate] when
// it goes away. Deactivation stops every resource; results of executions
// still in flight are discarded. A deactivated view cannot be reused.
//
// All methods are safe for concurrent use.
type View struct {
	registry *poller.Registry
	logger   *slog.Logger
}

// Add registers a resource with the view. Resource names must be unique.
//
// Adding to an active view starts the resource immediately if it is marked
// auto-start. Adding to a deactivated view returns [ErrViewClosed].
func (v *View) Add(res Resource) error {
	return v.registry.Register(res)
}

// Activate starts every auto-start resource. ctx bounds the resources'
// refresh loops; cancelling it has the same effect as [View.Deactivate]
// on each resource, but the view itself stays open for [View.Add].
func (v *View) Activate(ctx context.Context) error {
	return v.registry.Activate(ctx)
}

// Deactivate stops every resource. It is idempotent and terminal.
func (v *View) Deactivate() {
	v.registry.Deactivate()
}

// Refetch forces one immediate execution of the named resource.
//
// Returns [ErrUnknownResource] for an unknown name and [ErrPollerStopped]
// once the resource has been stopped.
func (v *View) Refetch(ctx context.Context, name string) error {
	return v.registry.Refetch(ctx, name)
}

// Get returns the named resource.
func (v *View) Get(name string) (Resource, error) {
	return v.registry.Get(name)
}

// Resources returns the view's resources in the order they were added.
func (v *View) Resources() []Resource {
	return v.registry.List()
}

// Records returns the current state of every resource in the order they
// were added.
func (v *View) Records() []Record {
	return v.registry.Records()
}

// Active reports whether the view has been activated and not deactivated.
func (v *View) Active() bool {
	return v.registry.Active()
}
