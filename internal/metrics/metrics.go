package metrics

import (
	"sync"
	"time"

	"github.com/jpalmerr/peerboard/poller"
)

type resourceStats struct {
	executions  int
	errors      int
	discarded   int
	lastLatency time.Duration
	lastOutcome poller.Outcome
}

// Recorder captures per-resource poll metrics in memory and, when set up
// through [Setup], forwards them to OpenTelemetry instruments.
//
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	mu    sync.Mutex
	stats map[string]*resourceStats
	otel  *otelInstruments
}

var _ poller.Observer = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return newRecorder(nil)
}

func newRecorder(otel *otelInstruments) *Recorder {
	return &Recorder{
		stats: make(map[string]*resourceStats),
		otel:  otel,
	}
}

// ObserveExecution records one completed poll execution.
func (r *Recorder) ObserveExecution(resource string, outcome poller.Outcome, duration time.Duration, err error) {
	if r == nil {
		return
	}

	r.mu.Lock()
	stats, ok := r.stats[resource]
	if !ok {
		stats = &resourceStats{}
		r.stats[resource] = stats
	}
	stats.executions++
	stats.lastLatency = duration
	stats.lastOutcome = outcome
	switch outcome {
	case poller.OutcomeFailure:
		stats.errors++
	case poller.OutcomeSuperseded, poller.OutcomeStopped:
		stats.discarded++
	}
	r.mu.Unlock()

	if r.otel != nil {
		r.otel.recordExecution(resource, outcome, duration, err)
	}
}

// RecordHTTPRequest tracks basic HTTP metrics for the mirror API.
func (r *Recorder) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if r == nil || r.otel == nil {
		return
	}
	r.otel.recordHTTPRequest(method, path, status, duration)
}

// Snapshot returns a copy of the current stats for a resource.
type Snapshot struct {
	Executions  int
	Errors      int
	Discarded   int
	LastLatency time.Duration
	LastOutcome poller.Outcome
}

func (r *Recorder) Snapshot(resource string) Snapshot {
	if r == nil {
		return Snapshot{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.stats[resource]
	if !ok {
		return Snapshot{}
	}
	return Snapshot{
		Executions:  stats.executions,
		Errors:      stats.errors,
		Discarded:   stats.discarded,
		LastLatency: stats.lastLatency,
		LastOutcome: stats.lastOutcome,
	}
}

// Executions returns the number of completed executions for a resource.
func (r *Recorder) Executions(resource string) int {
	return r.Snapshot(resource).Executions
}

// Errors returns the number of failed executions for a resource.
func (r *Recorder) Errors(resource string) int {
	return r.Snapshot(resource).Errors
}
