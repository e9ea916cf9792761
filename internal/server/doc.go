// Package server provides the view-facing HTTP mirror for PeerBoard.
//
// The server exposes the records held in a store.Store:
//
//   - GET /api/resources: all resource records as JSON
//   - GET /api/resources/{name}: one resource record
//   - POST /api/resources/{name}/refetch: force one execution of a resource
//   - GET /api/sse: Server-Sent Events stream of record changes
//   - GET /metrics: Prometheus metrics, when a handler is configured
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
