package peerboard

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpalmerr/peerboard/poller"
)

// clientConfig holds mutable state during Client construction.
type clientConfig struct {
	endpoint        string
	executor        poller.Executor
	headers         map[string]string
	requestTimeout  time.Duration
	refreshInterval time.Duration
	logger          *slog.Logger
	observer        poller.Observer
}

// Option is a function that configures a [Client] during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*clientConfig) error

// WithEndpoint sets the GraphQL endpoint of the query service.
//
// Defaults to [DefaultEndpoint]. Ignored when [WithExecutor] is used.
func WithEndpoint(url string) Option {
	return func(cfg *clientConfig) error {
		if url == "" {
			return errors.New("endpoint cannot be empty")
		}
		cfg.endpoint = url
		return nil
	}
}

// WithExecutor replaces the built-in HTTP executor.
//
// Use this to run queries over another transport or to inject a fake in
// tests.
func WithExecutor(exec poller.Executor) Option {
	return func(cfg *clientConfig) error {
		if exec == nil {
			return errors.New("executor cannot be nil")
		}
		cfg.executor = exec
		return nil
	}
}

// WithHeaders adds custom HTTP headers to every query request.
//
// Headers are specified as key-value pairs. Later calls add to, and may
// override, earlier ones.
//
// Example:
//
//	client, err := peerboard.New(
//	    peerboard.WithHeaders("Authorization", "Bearer token"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(kv ...string) Option {
	return func(cfg *clientConfig) error {
		if len(kv)%2 != 0 {
			return errors.New("headers must be key-value pairs")
		}
		if cfg.headers == nil {
			cfg.headers = make(map[string]string, len(kv)/2)
		}
		for i := 0; i < len(kv); i += 2 {
			cfg.headers[kv[i]] = kv[i+1]
		}
		return nil
	}
}

// WithRequestTimeout bounds each query request. Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithDefaultRefreshInterval sets the interval used by auto-refreshing
// resources that do not set their own. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithDefaultRefreshInterval(d time.Duration) Option {
	return func(cfg *clientConfig) error {
		if d <= 0 {
			return errors.New("refresh interval must be positive")
		}
		cfg.refreshInterval = d
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the client and its resources.
//
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithObserver receives one call per completed execution of every resource.
func WithObserver(o poller.Observer) Option {
	return func(cfg *clientConfig) error {
		if o == nil {
			return errors.New("observer cannot be nil")
		}
		cfg.observer = o
		return nil
	}
}

// resourceConfig holds per-resource settings during construction.
type resourceConfig struct {
	name        string
	autoRefresh bool
	interval    time.Duration
	autoStart   bool
}

// ResourceOption configures one resource.
type ResourceOption func(*resourceConfig) error

// WithName overrides the resource's name within its [View].
func WithName(name string) ResourceOption {
	return func(rc *resourceConfig) error {
		if name == "" {
			return errors.New("name cannot be empty")
		}
		rc.name = name
		return nil
	}
}

// WithAutoRefresh enables or disables interval polling.
func WithAutoRefresh(enabled bool) ResourceOption {
	return func(rc *resourceConfig) error {
		rc.autoRefresh = enabled
		return nil
	}
}

// WithRefreshInterval sets the polling interval and enables auto-refresh.
//
// Returns an error if the duration is zero or negative.
func WithRefreshInterval(d time.Duration) ResourceOption {
	return func(rc *resourceConfig) error {
		if d <= 0 {
			return errors.New("refresh interval must be positive")
		}
		rc.interval = d
		rc.autoRefresh = true
		return nil
	}
}

// WithAutoStart controls whether the resource starts when its view
// activates. Resources auto-start by default.
func WithAutoStart(enabled bool) ResourceOption {
	return func(rc *resourceConfig) error {
		rc.autoStart = enabled
		return nil
	}
}

// mirrorConfig holds mutable state during Mirror construction.
type mirrorConfig struct {
	title           string
	port            int
	metricsHandler  http.Handler
	requestObserver RequestObserver
	publisher       Publisher
	callbacks       []func(Record)
}

// MirrorOption configures a [Mirror].
type MirrorOption func(*mirrorConfig) error

// WithPort sets the HTTP port for the mirror API. Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) MirrorOption {
	return func(cfg *mirrorConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the title reported by the mirror API.
//
// If not specified, defaults to "PeerBoard".
func WithTitle(title string) MirrorOption {
	return func(cfg *mirrorConfig) error {
		cfg.title = title
		return nil
	}
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) MirrorOption {
	return func(cfg *mirrorConfig) error {
		cfg.metricsHandler = h
		return nil
	}
}

// WithRequestObserver records HTTP request metrics for the mirror API.
func WithRequestObserver(o RequestObserver) MirrorOption {
	return func(cfg *mirrorConfig) error {
		cfg.requestObserver = o
		return nil
	}
}

// WithPublisher forwards every record change to p, e.g. a Kafka topic.
func WithPublisher(p Publisher) MirrorOption {
	return func(cfg *mirrorConfig) error {
		cfg.publisher = p
		return nil
	}
}

// WithChangeCallback registers a function to be called on every record
// change.
//
// Multiple callbacks may be registered; they execute in registration order.
//
// IMPORTANT: Callbacks must be non-blocking. They run on the goroutine that
// forwards the resource's changes, so a blocking callback delays that
// resource's mirror updates. A callback that falls behind sees intermediate
// changes coalesced into the latest record. Callbacks for different
// resources may run concurrently.
//
// Panics within callbacks are recovered and logged. Nil callbacks are
// silently ignored.
func WithChangeCallback(cb func(Record)) MirrorOption {
	return func(cfg *mirrorConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}
