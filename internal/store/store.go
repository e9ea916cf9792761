package store

import (
	"encoding/json"
	"time"
)

// Record is the mirror representation of one resource's poll state.
//
// Record is the type-erased, JSON-ready form of a poll snapshot. It is what
// the HTTP API, the SSE stream, and external sinks see.
type Record struct {
	// Name is the resource's unique name within its view.
	Name string `json:"name"`

	// Query is the named query (or queries, joined with "+") backing the resource.
	Query string `json:"query"`

	// Data is the last successfully fetched payload, or the resource's
	// empty default before the first success.
	Data json.RawMessage `json:"data"`

	// Loading reports whether an execution is currently in flight.
	Loading bool `json:"loading"`

	// Error contains the message of the most recent failed execution.
	// nil indicates the last settled execution succeeded.
	Error *string `json:"error"`

	// Status is the poller lifecycle status ("created", "running", "stopped").
	Status string `json:"status"`

	// Seq is the sequence number of the execution that last wrote the state.
	Seq uint64 `json:"seq"`

	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Store defines the interface for storing and subscribing to resource records.
//
// Store implementations must be safe for concurrent access.
type Store interface {
	// Update stores a record and notifies all subscribers.
	// The record is keyed by Name, so subsequent updates replace previous values.
	Update(rec Record)

	// Get returns the record stored under name.
	Get(name string) (Record, bool)

	// GetAll returns all stored records ordered by name.
	// The returned slice is a snapshot; modifications do not affect the store.
	GetAll() []Record

	// Subscribe returns a channel that receives record updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Record

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Record)
}
