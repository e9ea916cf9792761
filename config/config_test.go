package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParse_EmptyConfigDefaults(t *testing.T) {
	t.Setenv("PEERBOARD_GRAPHQL_URL", "http://proxy.internal:6789/graphql")

	cfg, err := Parse([]byte(``))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.GraphQLURL != "http://proxy.internal:6789/graphql" {
		t.Errorf("GraphQLURL = %q, want env value", cfg.GraphQLURL)
	}
	if cfg.RequestTimeout.Duration() != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout.Duration())
	}
	if cfg.RefreshInterval.Duration() != 5*time.Second {
		t.Errorf("RefreshInterval = %v, want 5s", cfg.RefreshInterval.Duration())
	}
	if !*cfg.Connections.Enabled || !*cfg.Connections.AutoRefresh {
		t.Error("connections should be enabled and auto-refreshing by default")
	}
	if !*cfg.RecentMessages.Enabled || *cfg.RecentMessages.AutoRefresh {
		t.Error("recent messages should be enabled and one-shot by default")
	}
	if cfg.RecentMessages.Limit != 100 {
		t.Errorf("RecentMessages.Limit = %d, want 100", cfg.RecentMessages.Limit)
	}
	if cfg.AllConnections.Enabled {
		t.Error("all connections should be disabled by default")
	}
	if cfg.Metrics.ServiceName != "peerboard" {
		t.Errorf("Metrics.ServiceName = %q, want peerboard", cfg.Metrics.ServiceName)
	}
	if cfg.ResourceCount() != 2 {
		t.Errorf("ResourceCount() = %d, want 2", cfg.ResourceCount())
	}
}

func TestParse_FullConfig(t *testing.T) {
	yaml := `
title: Mainnet Proxy
port: 9090
graphql_url: https://proxy.example.com/graphql
request_timeout: 3s
refresh_interval: 30s
headers:
  Authorization: Bearer token123
connections:
  auto_refresh: false
  interval: 10s
recent_messages:
  limit: 250
  auto_refresh: true
  interval: 2s
all_connections:
  enabled: true
watch:
  connections: [42, 7]
  peers: ["203.0.113.5:8333"]
metrics:
  enabled: true
  service_name: proxy-dashboard
  otlp_endpoint: otel-collector:4318
  otlp_insecure: true
kafka:
  brokers: [kafka-1:9092, kafka-2:9092]
  topic: peerboard.records
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Title != "Mainnet Proxy" || cfg.Port != 9090 {
		t.Errorf("Title/Port = %q/%d", cfg.Title, cfg.Port)
	}
	if cfg.GraphQLURL != "https://proxy.example.com/graphql" {
		t.Errorf("GraphQLURL = %q", cfg.GraphQLURL)
	}
	if cfg.RequestTimeout.Duration() != 3*time.Second {
		t.Errorf("RequestTimeout = %v, want 3s", cfg.RequestTimeout.Duration())
	}
	if cfg.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("Headers[Authorization] = %q", cfg.Headers["Authorization"])
	}
	if *cfg.Connections.AutoRefresh {
		t.Error("connections.auto_refresh should be false")
	}
	if cfg.Connections.Interval.Duration() != 10*time.Second {
		t.Errorf("Connections.Interval = %v, want 10s", cfg.Connections.Interval.Duration())
	}
	if cfg.RecentMessages.Limit != 250 || !*cfg.RecentMessages.AutoRefresh {
		t.Errorf("RecentMessages = %+v", cfg.RecentMessages)
	}
	if len(cfg.Watch.Connections) != 2 || cfg.Watch.Connections[0] != 42 {
		t.Errorf("Watch.Connections = %v", cfg.Watch.Connections)
	}
	if len(cfg.Watch.Peers) != 1 {
		t.Errorf("Watch.Peers = %v", cfg.Watch.Peers)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.ServiceName != "proxy-dashboard" || !cfg.Metrics.OtlpInsecure {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if !cfg.Kafka.Enabled() || cfg.Kafka.Topic != "peerboard.records" {
		t.Errorf("Kafka = %+v", cfg.Kafka)
	}
	if cfg.ResourceCount() != 6 {
		t.Errorf("ResourceCount() = %d, want 6", cfg.ResourceCount())
	}
}

func TestParse_EnvVarSubstitution(t *testing.T) {
	t.Setenv("PROXY_HOST", "proxy.internal")
	t.Setenv("PROXY_TOKEN", "secret")

	yaml := `
graphql_url: http://${PROXY_HOST}:6789/graphql
headers:
  Authorization: Bearer ${PROXY_TOKEN}
  X-Env: ${DEPLOY_ENV:-dev}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.GraphQLURL != "http://proxy.internal:6789/graphql" {
		t.Errorf("GraphQLURL = %q", cfg.GraphQLURL)
	}
	if cfg.Headers["Authorization"] != "Bearer secret" {
		t.Errorf("Headers[Authorization] = %q", cfg.Headers["Authorization"])
	}
	if cfg.Headers["X-Env"] != "dev" {
		t.Errorf("Headers[X-Env] = %q, want dev", cfg.Headers["X-Env"])
	}
}

func TestParse_EnvVarMissing(t *testing.T) {
	yaml := `graphql_url: http://${PEERBOARD_TEST_MISSING_HOST}/graphql`

	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("Parse() expected error for missing env var, got nil")
	}
	if !strings.Contains(err.Error(), "PEERBOARD_TEST_MISSING_HOST") {
		t.Errorf("error = %v, want mention of the variable", err)
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantErrLike string
	}{
		{
			name:        "port out of range",
			yaml:        `port: 70000`,
			wantErrLike: "port must be between 1 and 65535",
		},
		{
			name:        "url without scheme",
			yaml:        `graphql_url: proxy.internal/graphql`,
			wantErrLike: "url must have a scheme",
		},
		{
			name:        "url with bad scheme",
			yaml:        `graphql_url: ws://proxy.internal/graphql`,
			wantErrLike: "url scheme must be http or https",
		},
		{
			name:        "url without host",
			yaml:        `graphql_url: "http:///graphql"`,
			wantErrLike: "url must have a host",
		},
		{
			name:        "request timeout too short",
			yaml:        `request_timeout: 500ms`,
			wantErrLike: "request_timeout must be at least 1s",
		},
		{
			name:        "refresh interval too short",
			yaml:        `refresh_interval: 100ms`,
			wantErrLike: "refresh_interval must be at least 1s",
		},
		{
			name:        "refresh interval too long",
			yaml:        `refresh_interval: 2h`,
			wantErrLike: "refresh_interval must not exceed 1h",
		},
		{
			name: "connections interval too short",
			yaml: `
connections:
  interval: 10ms
`,
			wantErrLike: "connections.interval must be at least 1s",
		},
		{
			name: "recent messages interval too long",
			yaml: `
recent_messages:
  interval: 3h
`,
			wantErrLike: "recent_messages.interval must not exceed 1h",
		},
		{
			name: "negative limit",
			yaml: `
recent_messages:
  limit: -5
`,
			wantErrLike: "recent_messages.limit cannot be negative",
		},
		{
			name: "non-positive watched connection",
			yaml: `
watch:
  connections: [0]
`,
			wantErrLike: "watch.connections[0]: connection id must be positive",
		},
		{
			name: "duplicate watched connection",
			yaml: `
watch:
  connections: [3, 3]
`,
			wantErrLike: "watch.connections[1]: duplicate connection id 3",
		},
		{
			name: "empty watched peer",
			yaml: `
watch:
  peers: [""]
`,
			wantErrLike: "watch.peers[0]: peer address is required",
		},
		{
			name: "duplicate watched peer",
			yaml: `
watch:
  peers: [a, a]
`,
			wantErrLike: "watch.peers[1]: duplicate peer",
		},
		{
			name: "kafka brokers without topic",
			yaml: `
kafka:
  brokers: [localhost:9092]
`,
			wantErrLike: "topic is required",
		},
		{
			name: "kafka topic without brokers",
			yaml: `
kafka:
  topic: records
`,
			wantErrLike: "brokers are required",
		},
		{
			name: "nothing enabled",
			yaml: `
connections:
  enabled: false
recent_messages:
  enabled: false
`,
			wantErrLike: "at least one resource must be enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatalf("Parse() expected error containing %q, got nil", tt.wantErrLike)
			}
			if !strings.Contains(err.Error(), tt.wantErrLike) {
				t.Errorf("Parse() error = %v, want error containing %q", err, tt.wantErrLike)
			}
		})
	}
}

func TestParse_OnlyWatchedResources(t *testing.T) {
	yaml := `
connections:
  enabled: false
recent_messages:
  enabled: false
watch:
  peers: ["198.51.100.1:8333"]
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.ResourceCount() != 1 {
		t.Errorf("ResourceCount() = %d, want 1", cfg.ResourceCount())
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("port: [unclosed"))
	if err == nil {
		t.Fatal("Parse() expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse YAML") {
		t.Errorf("error = %v, want 'failed to parse YAML'", err)
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", "10s", 10 * time.Second, false},
		{"milliseconds", "1500ms", 1500 * time.Millisecond, false},
		{"minutes", "2m", 2 * time.Minute, false},
		{"hours", "1h", 1 * time.Hour, false},
		{"combined", "1m30s", 90 * time.Second, false},
		{"invalid", "not-a-duration", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// refresh_interval must be between 1s and 1h
			cfg, err := Parse([]byte("refresh_interval: " + tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cfg.RefreshInterval.Duration() != tt.want {
				t.Errorf("RefreshInterval = %v, want %v", cfg.RefreshInterval.Duration(), tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peerboard.yaml")
	if err := os.WriteFile(path, []byte("port: 9191\ngraphql_url: http://localhost:6789/graphql\n"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "value")
	t.Setenv("EMPTY_VAR", "") // set but empty

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"no vars", "plain text", "plain text", false},
		{"simple var", "${TEST_VAR}", "value", false},
		{"var in text", "prefix ${TEST_VAR} suffix", "prefix value suffix", false},
		{"multiple vars", "${TEST_VAR}-${TEST_VAR}", "value-value", false},
		{"with default (var set)", "${TEST_VAR:-default}", "value", false},
		{"with default (var unset)", "${UNSET:-default}", "default", false},
		{"missing required", "${MISSING}", "", true},
		{"empty default (var unset)", "${UNSET:-}", "", false},
		{"set but empty var", "${EMPTY_VAR}", "", false},
		{"set but empty with default", "${EMPTY_VAR:-fallback}", "", false}, // set var takes precedence
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// UNSET and MISSING are expected to not exist in environment
			got, err := expandEnvVars(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expandEnvVars() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expandEnvVars() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("expandEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
