package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
	"strings"
)

// Query identifies a named query plus its bound parameters.
//
// Query is immutable after creation via [NewQuery]; [Query.Params] returns a
// copy. A poller is bound to one Query for its whole lifetime.
type Query struct {
	name   string
	params map[string]any
}

// NewQuery creates a [Query] for the named query with the given parameters.
// The parameter map is copied.
func NewQuery(name string, params map[string]any) Query {
	var cp map[string]any
	if len(params) > 0 {
		cp = maps.Clone(params)
	}
	return Query{name: name, params: cp}
}

// Name returns the query name (e.g. "recentMessages").
func (q Query) Name() string {
	return q.name
}

// Params returns a copy of the bound parameters, or nil if there are none.
func (q Query) Params() map[string]any {
	if q.params == nil {
		return nil
	}
	return maps.Clone(q.params)
}

// Param returns a single bound parameter.
func (q Query) Param(key string) (any, bool) {
	v, ok := q.params[key]
	return v, ok
}

// String renders the query as name(k=v, ...) with keys sorted.
func (q Query) String() string {
	if len(q.params) == 0 {
		return q.name + "()"
	}
	keys := make([]string, 0, len(q.params))
	for k := range q.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, q.params[k])
	}
	return q.name + "(" + strings.Join(parts, ", ") + ")"
}

//go:generate mockgen -destination=mocks/mock_executor.go -package=mocks github.com/jpalmerr/peerboard/poller Executor

// Executor runs named queries against the query service.
//
// Execute returns the unwrapped JSON payload of the query's result field.
// Failures should be reported as [*TransportError] or [*ServiceError].
// Implementations must be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, q Query) (json.RawMessage, error)
}

// ExecutorFunc adapts an ordinary function to the [Executor] interface.
type ExecutorFunc func(ctx context.Context, q Query) (json.RawMessage, error)

// Execute calls f(ctx, q).
func (f ExecutorFunc) Execute(ctx context.Context, q Query) (json.RawMessage, error) {
	return f(ctx, q)
}

// FetchFunc produces one result for a poller's execution cycle.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Decode returns a [FetchFunc] that executes q and decodes the payload into T.
//
// An empty or null payload decodes to the zero value of T. A payload that
// does not match T is reported as a [*ServiceError].
func Decode[T any](exec Executor, q Query) FetchFunc[T] {
	return func(ctx context.Context) (T, error) {
		var out T
		raw, err := exec.Execute(ctx, q)
		if err != nil {
			return out, err
		}
		if len(raw) == 0 {
			return out, nil
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, &ServiceError{
				Query:    q.Name(),
				Messages: []string{fmt.Sprintf("invalid %s payload: %v", q.Name(), err)},
			}
		}
		return out, nil
	}
}
