// Package store provides change fan-out and the in-memory mirror of
// resource poll states.
//
// This package is internal to PeerBoard. It has two parts:
//
//   - [Hub]: generic publish-subscribe fan-out with non-blocking sends, used
//     by poll states to notify observers of every change
//   - [MemoryStore]: thread-safe mirror of [Record] values keyed by resource
//     name, read by the HTTP mirror and its SSE stream
//
// Subscribers receive updates via buffered channels. Slow subscribers miss
// updates rather than block the writer; the latest value is always
// available from the store itself.
package store
