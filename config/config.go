// Package config provides YAML configuration parsing for PeerBoard.
//
// This package enables running PeerBoard as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Mainnet Proxy
//	port: 8080
//	graphql_url: ${PROXY_GRAPHQL_URL:-http://localhost:6789/graphql}
//	refresh_interval: 5s
//
//	connections:
//	  auto_refresh: true
//
//	recent_messages:
//	  limit: 200
//	  auto_refresh: true
//	  interval: 10s
//
//	watch:
//	  connections: [42]
//	  peers: ["203.0.113.5:8333"]
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultGraphQLURL is used when graphql_url is not set.
	DefaultGraphQLURL = "${PEERBOARD_GRAPHQL_URL:-http://localhost:6789/graphql}"

	// DefaultServiceName is the metrics service name when none is set.
	DefaultServiceName = "peerboard"

	defaultPort            = 8080
	defaultRefreshInterval = 5 * time.Second
	defaultRequestTimeout  = 10 * time.Second
	defaultMessageLimit    = 100

	// minRefreshInterval prevents accidental overload of the query service
	// with overly aggressive polling.
	minRefreshInterval = 1 * time.Second
	maxRefreshInterval = 1 * time.Hour
)

// Config is the root configuration structure for PeerBoard.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the mirror title. Defaults to "PeerBoard" if not set.
	Title string `yaml:"title"`

	// Port is the HTTP server port. Defaults to 8080.
	Port int `yaml:"port"`

	// GraphQLURL is the query service endpoint.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	GraphQLURL string `yaml:"graphql_url"`

	// RequestTimeout bounds each query request. Defaults to 10s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// Headers are custom HTTP headers sent with each query.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers"`

	// RefreshInterval is the default interval for auto-refreshing resources.
	// Must be between 1s and 1h. Defaults to 5s.
	RefreshInterval Duration `yaml:"refresh_interval"`

	Connections    ConnectionsConfig    `yaml:"connections"`
	RecentMessages RecentMessagesConfig `yaml:"recent_messages"`
	AllConnections AllConnectionsConfig `yaml:"all_connections"`
	Watch          WatchConfig          `yaml:"watch"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Kafka          KafkaConfig          `yaml:"kafka"`
}

// ConnectionsConfig configures the composite connections + stats resource.
type ConnectionsConfig struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled"`

	// AutoRefresh defaults to true.
	AutoRefresh *bool `yaml:"auto_refresh"`

	// Interval overrides refresh_interval for this resource.
	Interval Duration `yaml:"interval"`
}

// RecentMessagesConfig configures the recent messages resource.
type RecentMessagesConfig struct {
	// Enabled defaults to true.
	Enabled *bool `yaml:"enabled"`

	// Limit is the number of messages fetched. Defaults to 100.
	Limit int `yaml:"limit"`

	// AutoRefresh defaults to false.
	AutoRefresh *bool `yaml:"auto_refresh"`

	// Interval overrides refresh_interval for this resource.
	Interval Duration `yaml:"interval"`
}

// AllConnectionsConfig configures the resource listing every connection,
// closed ones included. Disabled by default.
type AllConnectionsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// WatchConfig lists message logs to follow for specific connections and peers.
type WatchConfig struct {
	Connections []int64  `yaml:"connections"`
	Peers       []string `yaml:"peers"`
}

// MetricsConfig configures poll and HTTP metrics.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ServiceName  string `yaml:"service_name"`
	OtlpEndpoint string `yaml:"otlp_endpoint"`
	OtlpInsecure bool   `yaml:"otlp_insecure"`
}

// KafkaConfig configures publishing of record changes to Kafka.
// Publishing is enabled when brokers are set.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// Enabled reports whether Kafka publishing is configured.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// already have an error, skip processing
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Environment variables are expanded in graphql_url and header values.
// Defaults are applied before validation; an empty document is a valid
// configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.GraphQLURL == "" {
		c.GraphQLURL = DefaultGraphQLURL
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(defaultRequestTimeout)
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = Duration(defaultRefreshInterval)
	}

	c.Connections.Enabled = orDefault(c.Connections.Enabled, true)
	c.Connections.AutoRefresh = orDefault(c.Connections.AutoRefresh, true)
	c.RecentMessages.Enabled = orDefault(c.RecentMessages.Enabled, true)
	c.RecentMessages.AutoRefresh = orDefault(c.RecentMessages.AutoRefresh, false)
	if c.RecentMessages.Limit == 0 {
		c.RecentMessages.Limit = defaultMessageLimit
	}

	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = DefaultServiceName
	}
}

func orDefault(p *bool, def bool) *bool {
	if p != nil {
		return p
	}
	return &def
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	expanded, err := expandEnvVars(c.GraphQLURL)
	if err != nil {
		return fmt.Errorf("graphql_url: %w", err)
	}
	c.GraphQLURL = expanded
	if err := validateURL(c.GraphQLURL); err != nil {
		return fmt.Errorf("graphql_url: %w", err)
	}

	for k, v := range c.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("headers[%s]: %w", k, err)
		}
		c.Headers[k] = expanded
	}

	if c.RequestTimeout.Duration() < time.Second {
		return fmt.Errorf("request_timeout must be at least 1s, got %s", c.RequestTimeout.Duration())
	}

	if err := validateInterval("refresh_interval", c.RefreshInterval); err != nil {
		return err
	}
	if c.Connections.Interval != 0 {
		if err := validateInterval("connections.interval", c.Connections.Interval); err != nil {
			return err
		}
	}
	if c.RecentMessages.Interval != 0 {
		if err := validateInterval("recent_messages.interval", c.RecentMessages.Interval); err != nil {
			return err
		}
	}
	if c.RecentMessages.Limit < 0 {
		return fmt.Errorf("recent_messages.limit cannot be negative, got %d", c.RecentMessages.Limit)
	}

	seenConns := make(map[int64]struct{}, len(c.Watch.Connections))
	for i, id := range c.Watch.Connections {
		if id <= 0 {
			return fmt.Errorf("watch.connections[%d]: connection id must be positive, got %d", i, id)
		}
		if _, exists := seenConns[id]; exists {
			return fmt.Errorf("watch.connections[%d]: duplicate connection id %d", i, id)
		}
		seenConns[id] = struct{}{}
	}

	seenPeers := make(map[string]struct{}, len(c.Watch.Peers))
	for i, peer := range c.Watch.Peers {
		if peer == "" {
			return fmt.Errorf("watch.peers[%d]: peer address is required", i)
		}
		if _, exists := seenPeers[peer]; exists {
			return fmt.Errorf("watch.peers[%d]: duplicate peer %q", i, peer)
		}
		seenPeers[peer] = struct{}{}
	}

	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return errors.New("kafka: topic is required when brokers are set")
	}
	if !c.Kafka.Enabled() && c.Kafka.Topic != "" {
		return errors.New("kafka: brokers are required when topic is set")
	}

	if c.ResourceCount() == 0 {
		return errors.New("at least one resource must be enabled")
	}

	return nil
}

// ResourceCount returns the number of resources the configuration enables.
func (c *Config) ResourceCount() int {
	n := len(c.Watch.Connections) + len(c.Watch.Peers)
	if c.Connections.Enabled == nil || *c.Connections.Enabled {
		n++
	}
	if c.RecentMessages.Enabled == nil || *c.RecentMessages.Enabled {
		n++
	}
	if c.AllConnections.Enabled {
		n++
	}
	return n
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" {
		return errors.New("url must have a scheme (http:// or https://)")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url must have a host")
	}
	return nil
}

func validateInterval(field string, d Duration) error {
	if d.Duration() < minRefreshInterval {
		return fmt.Errorf("%s must be at least %s, got %s", field, minRefreshInterval, d.Duration())
	}
	if d.Duration() > maxRefreshInterval {
		return fmt.Errorf("%s must not exceed %s, got %s", field, maxRefreshInterval, d.Duration())
	}
	return nil
}
