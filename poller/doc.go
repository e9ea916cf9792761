// Package poller implements the polling data-synchronization core of PeerBoard.
//
// A [Poller] owns one [State], one [Query], and one [RefreshPolicy], and drives
// repeated invocations of an [Executor], writing each result into its state.
// Consumers observe the state through [State.Snapshot] and [State.Subscribe];
// only the owning poller ever mutates it.
//
// The main components are:
//
//   - [Executor]: the query service boundary (named query + parameters in,
//     JSON payload or error out)
//   - [State] and [Snapshot]: the data/loading/error triple a consumer observes
//   - [Poller]: lifecycle (created, running, stopped), interval ticks, refetch,
//     and sequence-number ordering of executions
//   - [Join]: composite fetch of two resources gated by one execution
//   - [Registry]: the set of pollers owned by one consumer, activated and
//     deactivated together
//
// # Ordering
//
// Every execution is tagged with a monotonically increasing sequence number
// when it starts. Executions may overlap; none is cancelled by a newer one.
// A result is applied unless an execution started later has already been
// applied, in which case it is discarded. The state therefore never moves
// back to an older result, and the single loading flag stays set until the
// most recently started execution settles.
//
// # Teardown
//
// [Poller.Stop] is cooperative. It prevents future ticks and future state
// writes but does not cancel an in-flight query; that query's result is
// dropped on arrival. A stopped poller is terminal and must be recreated.
package poller
