package peerboard

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jpalmerr/peerboard/internal/graphql"
	"github.com/jpalmerr/peerboard/poller"
)

const (
	// DefaultEndpoint is the query service address used when none is configured.
	DefaultEndpoint = "http://localhost:6789/graphql"

	defaultRefreshInterval = 5 * time.Second
	defaultRequestTimeout  = graphql.DefaultTimeout
	defaultMessageLimit    = 100
)

// Client creates PeerBoard resources bound to one query service.
//
// A Client is safe for concurrent use. Resources created from it share its
// executor, logger, and observer.
type Client struct {
	exec            poller.Executor
	gql             *graphql.Client
	logger          *slog.Logger
	observer        poller.Observer
	refreshInterval time.Duration
}

// New creates a [Client] with the given options.
//
// Without [WithExecutor], queries are sent over HTTP to [DefaultEndpoint]
// or the address set with [WithEndpoint].
//
// Example:
//
//	client, err := peerboard.New(
//	    peerboard.WithEndpoint("http://proxy.internal:6789/graphql"),
//	    peerboard.WithDefaultRefreshInterval(10 * time.Second),
//	)
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		endpoint:        DefaultEndpoint,
		requestTimeout:  defaultRequestTimeout,
		refreshInterval: defaultRefreshInterval,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		exec:            cfg.executor,
		logger:          logger,
		observer:        cfg.observer,
		refreshInterval: cfg.refreshInterval,
	}

	if c.exec == nil {
		gql, err := graphql.NewClient(cfg.endpoint,
			graphql.WithHeaders(cfg.headers),
			graphql.WithTimeout(cfg.requestTimeout),
			graphql.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.endpoint, err)
		}
		c.gql = gql
		c.exec = gql
	}

	return c, nil
}

// Executor returns the query executor backing this client.
func (c *Client) Executor() poller.Executor {
	return c.exec
}

// RefreshInterval returns the default interval for auto-refreshing resources.
func (c *Client) RefreshInterval() time.Duration {
	return c.refreshInterval
}

// Close releases idle connections held by the built-in HTTP executor.
// Resources created from the client remain usable.
func (c *Client) Close() {
	if c.gql != nil {
		c.gql.Close()
	}
}

// NewView creates an empty [View] owned by one consumer.
func (c *Client) NewView() *View {
	return &View{
		registry: poller.NewRegistry(c.logger),
		logger:   c.logger,
	}
}
