// Package peerboard keeps the state of a Bitcoin P2P proxy monitoring
// dashboard fresh by polling the proxy's GraphQL query service.
//
// PeerBoard is designed as an SDK-first library. A [Client] creates typed
// resources, each backed by a [poller.Poller] that owns one observable
// data/loading/error state. Resources are grouped into a [View], one per
// consumer, whose lifecycle starts and stops them together. A [Mirror]
// serves a view over HTTP.
//
// # Quick Start
//
// Create a client, add resources to a view, and serve it with graceful
// shutdown:
//
//	client, _ := peerboard.New(peerboard.WithEndpoint("http://localhost:6789/graphql"))
//	view := client.NewView()
//
//	conns, _ := client.PeerConnections()
//	recent, _ := client.RecentMessages(100)
//	_ = view.Add(conns)
//	_ = view.Add(recent)
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m, _ := peerboard.NewMirror(view, peerboard.WithPort(8080))
//	m.Start(ctx) // blocks until context is cancelled
//
// # Resources
//
// Every resource fetches once when its view activates. Auto-refreshing
// resources then fetch on every tick of their interval:
//
//   - [Client.PeerConnections]: active connections and aggregate stats,
//     fetched together and applied only if both succeed (auto-refresh, 5s)
//   - [Client.RecentMessages]: the latest messages (one-shot by default)
//   - [Client.MessagesByConnection], [Client.MessagesByPeer]: filtered
//     message logs (one-shot)
//   - [Client.AllConnections]: every connection, closed ones included
//
// Without a view, a resource can be driven directly:
//
//	recent, _ := client.RecentMessages(50)
//	_ = recent.Refetch(ctx)
//	snap := recent.Snapshot()
//	if snap.HasError() {
//	    log.Println(snap.Error)
//	}
//
// # Failure semantics
//
// A failed fetch never clears data: the previous value is kept and the
// error message is recorded. The next successful fetch clears the error.
// When executions overlap, the most recently started one wins; older
// results are discarded. After a resource stops, results still in flight
// are discarded too.
//
// # Architecture
//
// PeerBoard consists of one public and several internal packages:
//
//   - poller: Generic poller, observable state, and per-consumer registry
//   - internal/graphql: Query executor over HTTP GraphQL
//   - internal/store: In-memory storage with pub/sub for real-time updates
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - internal/metrics: OpenTelemetry poll and HTTP metrics
//   - internal/sink: Kafka publisher of record changes
package peerboard
