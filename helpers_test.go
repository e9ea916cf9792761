package peerboard

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/peerboard/poller"
)

const testTimeout = 2 * time.Second

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, msg string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", msg)
}

// freePort returns a TCP port that was free at the time of the call.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// fakeService answers queries from a fixed table of payloads keyed by
// query name and counts calls.
type fakeService struct {
	mu       sync.Mutex
	payloads map[string]string
	errs     map[string]error
	calls    map[string]int
}

func newFakeService(payloads map[string]string) *fakeService {
	return &fakeService{
		payloads: payloads,
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

func (f *fakeService) Execute(_ context.Context, q poller.Query) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[q.Name()]++
	if err := f.errs[q.Name()]; err != nil {
		return nil, err
	}
	return json.RawMessage(f.payloads[q.Name()]), nil
}

func (f *fakeService) fail(query string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[query] = err
}

func (f *fakeService) count(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[query]
}

const (
	connectionsJSON = `[
		{"id":1,"connectionId":11,"clientAddr":"10.0.0.1:50000","targetAddr":"203.0.113.5:8333","connectedAt":"2024-05-01T10:00:00Z","bytesInbound":1024,"messagesInbound":3},
		{"id":2,"connectionId":12,"clientAddr":"10.0.0.2:50001","targetAddr":"203.0.113.6:8333","connectedAt":"2024-05-01T10:01:00Z","disconnectedAt":"2024-05-01T10:05:00Z"}
	]`
	statsJSON    = `{"totalConnections":3,"activeConnections":2,"totalBytesInbound":4096,"totalBytesOutbound":2048,"totalMessagesInbound":10,"totalMessagesOutbound":7}`
	messagesJSON = `[
		{"id":100,"connectionId":11,"timestamp":"2024-05-01T10:00:01Z","direction":"outbound","sourcePeer":"10.0.0.1:50000","destinationPeer":"203.0.113.5:8333","messageType":"version","payloadSize":102,"description":"protocol 70016"},
		{"id":101,"connectionId":11,"timestamp":"2024-05-01T10:00:02Z","direction":"inbound","sourcePeer":"203.0.113.5:8333","destinationPeer":"10.0.0.1:50000","messageType":"verack","payloadSize":0,"description":""}
	]`
)

func defaultPayloads() map[string]string {
	return map[string]string{
		"activeConnections":    connectionsJSON,
		"peerConnections":      connectionsJSON,
		"connectionStats":      statsJSON,
		"recentMessages":       messagesJSON,
		"messagesByConnection": messagesJSON,
		"messagesByPeer":       messagesJSON,
	}
}
