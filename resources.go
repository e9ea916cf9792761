package peerboard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jpalmerr/peerboard/internal/graphql"
	"github.com/jpalmerr/peerboard/poller"
)

// Resource names used when no [WithName] option is given.
const (
	ResourceConnections          = "connections"
	ResourceRecentMessages       = "recentMessages"
	ResourceMessagesByConnection = "messagesByConnection"
	ResourceMessagesByPeer       = "messagesByPeer"
	ResourceAllConnections       = "allConnections"
)

const (
	labelPeerConnections = "peer connections"
	labelMessages        = "messages"
)

// PeerConnectionsData is the combined result of the active connection list
// and the aggregate traffic statistics. Both halves always come from the
// same execution.
type PeerConnectionsData struct {
	Connections []PeerConnection `json:"connections"`
	Stats       *ConnectionStats `json:"stats"`
}

// Typed pollers returned by [Client] resource constructors.
type (
	PeerConnections = poller.Poller[PeerConnectionsData]
	MessageList     = poller.Poller[[]Message]
	ConnectionList  = poller.Poller[[]PeerConnection]
)

// PeerConnections creates the composite connections resource.
//
// Each execution fetches activeConnections and connectionStats concurrently
// and applies them only if both succeed. The resource auto-refreshes at the
// client's default interval unless [WithAutoRefresh](false) is given.
func (c *Client) PeerConnections(opts ...ResourceOption) (*PeerConnections, error) {
	rc, err := c.resourceConfig(ResourceConnections, true, opts)
	if err != nil {
		return nil, err
	}

	active := poller.NewQuery(graphql.QueryActiveConnections, nil)
	stats := poller.NewQuery(graphql.QueryConnectionStats, nil)
	fetch := poller.Map(
		poller.Join(
			poller.Decode[[]PeerConnection](c.exec, active),
			poller.Decode[ConnectionStats](c.exec, stats),
		),
		func(p poller.Pair[[]PeerConnection, ConnectionStats]) PeerConnectionsData {
			st := p.Second
			return PeerConnectionsData{Connections: orEmpty(p.First), Stats: &st}
		},
	)

	q := poller.NewQuery(active.Name()+"+"+stats.Name(), nil)
	return newResource(c, rc, q, labelPeerConnections, fetch, PeerConnectionsData{Connections: []PeerConnection{}})
}

// RecentMessages creates a resource holding the latest limit messages.
// A limit of zero or less uses the default of 100.
//
// The resource fetches once on start; pass [WithAutoRefresh](true) or
// [WithRefreshInterval] to poll.
func (c *Client) RecentMessages(limit int, opts ...ResourceOption) (*MessageList, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	rc, err := c.resourceConfig(ResourceRecentMessages, false, opts)
	if err != nil {
		return nil, err
	}
	q := poller.NewQuery(graphql.QueryRecentMessages, map[string]any{"limit": limit})
	return newResource(c, rc, q, labelMessages, decodeList[Message](c.exec, q), []Message{})
}

// MessagesByConnection creates a one-shot resource holding the messages of
// one connection.
func (c *Client) MessagesByConnection(connectionID int64, opts ...ResourceOption) (*MessageList, error) {
	name := ResourceMessagesByConnection + ":" + strconv.FormatInt(connectionID, 10)
	rc, err := c.resourceConfig(name, false, opts)
	if err != nil {
		return nil, err
	}
	q := poller.NewQuery(graphql.QueryMessagesByConnection, map[string]any{"connectionId": connectionID})
	return newResource(c, rc, q, labelMessages, decodeList[Message](c.exec, q), []Message{})
}

// MessagesByPeer creates a one-shot resource holding the messages sent or
// received by one peer address.
func (c *Client) MessagesByPeer(peerAddr string, opts ...ResourceOption) (*MessageList, error) {
	if peerAddr == "" {
		return nil, errors.New("peer address cannot be empty")
	}
	rc, err := c.resourceConfig(ResourceMessagesByPeer+":"+peerAddr, false, opts)
	if err != nil {
		return nil, err
	}
	q := poller.NewQuery(graphql.QueryMessagesByPeer, map[string]any{"peerAddr": peerAddr})
	return newResource(c, rc, q, labelMessages, decodeList[Message](c.exec, q), []Message{})
}

// AllConnections creates a one-shot resource holding every connection the
// proxy has seen, closed ones included.
func (c *Client) AllConnections(opts ...ResourceOption) (*ConnectionList, error) {
	rc, err := c.resourceConfig(ResourceAllConnections, false, opts)
	if err != nil {
		return nil, err
	}
	q := poller.NewQuery(graphql.QueryPeerConnections, nil)
	return newResource(c, rc, q, labelPeerConnections, decodeList[PeerConnection](c.exec, q), []PeerConnection{})
}

// resourceConfig applies opts over the defaults for one resource.
func (c *Client) resourceConfig(name string, autoRefresh bool, opts []ResourceOption) (*resourceConfig, error) {
	rc := &resourceConfig{
		name:        name,
		autoRefresh: autoRefresh,
		autoStart:   true,
	}
	for _, opt := range opts {
		if err := opt(rc); err != nil {
			return nil, fmt.Errorf("resource %q: %w", name, err)
		}
	}
	if rc.interval == 0 {
		rc.interval = c.refreshInterval
	}
	return rc, nil
}

func newResource[T any](c *Client, rc *resourceConfig, q poller.Query, label string, fetch poller.FetchFunc[T], initial T) (*poller.Poller[T], error) {
	policy := poller.RefreshPolicy{Mode: poller.OneShot, AutoStart: rc.autoStart}
	if rc.autoRefresh {
		policy.Mode = poller.Interval
		policy.Interval = rc.interval
	}

	return poller.New(poller.Config[T]{
		Name:     rc.name,
		Resource: label,
		Query:    q,
		Policy:   policy,
		Fetch:    fetch,
		Initial:  initial,
		Logger:   c.logger,
		Observer: c.observer,
	})
}

// decodeList decodes a list-valued query, mapping a null payload to an
// empty list.
func decodeList[T any](exec poller.Executor, q poller.Query) poller.FetchFunc[[]T] {
	decode := poller.Decode[[]T](exec, q)
	return func(ctx context.Context) ([]T, error) {
		v, err := decode(ctx)
		if err != nil {
			return nil, err
		}
		return orEmpty(v), nil
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
