// Package mockproxy simulates the GraphQL query service of a Bitcoin P2P
// proxy for demos and manual testing.
//
// Connections open and close over time and each open connection exchanges
// a trickle of P2P messages. Only the subset of GraphQL needed by PeerBoard
// is understood: one top-level field per document, with variables.
package mockproxy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/jpalmerr/peerboard"
)

const maxMessages = 5000

var chatter = []peerboard.MessageType{
	peerboard.MessagePing, peerboard.MessagePong, peerboard.MessageInv,
	peerboard.MessageGetData, peerboard.MessageTx, peerboard.MessageHeaders,
	peerboard.MessageAddrV2, peerboard.MessageFeeFilter,
}

var targets = []string{
	"203.0.113.5:8333", "203.0.113.17:8333", "198.51.100.4:8333", "198.51.100.23:8333",
}

// fieldPattern finds the first selected field of a GraphQL document.
var fieldPattern = regexp.MustCompile(`\{\s*([A-Za-z]+)`)

// Proxy holds simulated proxy state. All methods are safe for concurrent use.
type Proxy struct {
	mu       sync.Mutex
	rng      *rand.Rand
	conns    []peerboard.PeerConnection
	messages []peerboard.Message
	nextConn int64
	nextMsg  int64
	logger   *slog.Logger
}

// New creates a proxy seeded with a few open connections.
func New(seed int64, logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Proxy{rng: rand.New(rand.NewSource(seed)), logger: logger}
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		p.open(now.Add(-time.Duration(3-i) * time.Minute))
	}
	return p
}

// Tick advances the simulation by one step.
func (p *Proxy) Tick(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now = now.UTC()
	switch r := p.rng.Intn(10); {
	case r == 0:
		p.open(now)
	case r == 1:
		p.closeOne(now)
	}

	for i := range p.conns {
		c := &p.conns[i]
		if !c.Active() {
			continue
		}
		for n := p.rng.Intn(3); n > 0; n-- {
			p.exchange(c, chatter[p.rng.Intn(len(chatter))], now)
		}
	}
}

// Run ticks every interval until stop is closed.
func (p *Proxy) Run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			p.Tick(now)
		}
	}
}

func (p *Proxy) open(now time.Time) {
	p.nextConn++
	c := peerboard.PeerConnection{
		ID:           p.nextConn,
		ConnectionID: 1000 + p.nextConn,
		ClientAddr:   fmt.Sprintf("10.0.0.%d:%d", 2+p.rng.Intn(200), 49152+p.rng.Intn(16000)),
		TargetAddr:   targets[p.rng.Intn(len(targets))],
		ConnectedAt:  now,
	}
	p.conns = append(p.conns, c)
	last := &p.conns[len(p.conns)-1]
	p.exchange(last, peerboard.MessageVersion, now)
	p.exchange(last, peerboard.MessageVerack, now)
	p.logger.Info("connection opened", "connection_id", c.ConnectionID, "target", c.TargetAddr)
}

func (p *Proxy) closeOne(now time.Time) {
	var open []int
	for i, c := range p.conns {
		if c.Active() {
			open = append(open, i)
		}
	}
	if len(open) <= 1 {
		return
	}
	c := &p.conns[open[p.rng.Intn(len(open))]]
	at := now
	c.DisconnectedAt = &at
	p.logger.Info("connection closed", "connection_id", c.ConnectionID)
}

func (p *Proxy) exchange(c *peerboard.PeerConnection, mt peerboard.MessageType, now time.Time) {
	dir := peerboard.DirectionOutbound
	src, dst := c.ClientAddr, c.TargetAddr
	if p.rng.Intn(2) == 0 {
		dir = peerboard.DirectionInbound
		src, dst = dst, src
	}
	size := int64(p.rng.Intn(1200))

	p.nextMsg++
	p.messages = append(p.messages, peerboard.Message{
		ID:              p.nextMsg,
		ConnectionID:    c.ConnectionID,
		Timestamp:       now,
		Direction:       dir,
		SourcePeer:      src,
		DestinationPeer: dst,
		MessageType:     mt,
		PayloadSize:     size,
		Description:     fmt.Sprintf("%s %d bytes", mt, size),
	})
	if len(p.messages) > maxMessages {
		p.messages = p.messages[len(p.messages)-maxMessages:]
	}

	if dir == peerboard.DirectionInbound {
		c.BytesInbound = add(c.BytesInbound, size)
		c.MessagesInbound = add(c.MessagesInbound, 1)
	} else {
		c.BytesOutbound = add(c.BytesOutbound, size)
		c.MessagesOutbound = add(c.MessagesOutbound, 1)
	}
}

func add(p *int64, n int64) *int64 {
	v := n
	if p != nil {
		v += *p
	}
	return &v
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

// Handler serves the GraphQL endpoint at POST /graphql.
func (p *Proxy) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/graphql", p.handleGraphQL).Methods(http.MethodPost)
	return r
}

func (p *Proxy) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []gqlError{{Message: "invalid request body"}}})
		return
	}

	m := fieldPattern.FindStringSubmatch(req.Query)
	if m == nil {
		writeJSON(w, http.StatusOK, map[string]any{"errors": []gqlError{{Message: "no field selected"}}})
		return
	}
	field := m[1]

	data, err := p.resolve(field, req.Variables)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"errors": []gqlError{{Message: err.Error()}}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{field: data}})
}

func (p *Proxy) resolve(field string, vars map[string]any) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch field {
	case "peerConnections":
		return append([]peerboard.PeerConnection(nil), p.conns...), nil
	case "activeConnections":
		active := []peerboard.PeerConnection{}
		for _, c := range p.conns {
			if c.Active() {
				active = append(active, c)
			}
		}
		return active, nil
	case "connectionStats":
		return p.statsLocked(), nil
	case "recentMessages":
		limit := 100
		if v, ok := vars["limit"].(float64); ok && v > 0 {
			limit = int(v)
		}
		return p.latestLocked(limit, func(peerboard.Message) bool { return true }), nil
	case "messagesByConnection":
		id, ok := vars["connectionId"].(float64)
		if !ok {
			return nil, fmt.Errorf("variable connectionId is required")
		}
		return p.latestLocked(maxMessages, func(m peerboard.Message) bool {
			return m.ConnectionID == int64(id)
		}), nil
	case "messagesByPeer":
		addr, ok := vars["peerAddr"].(string)
		if !ok || addr == "" {
			return nil, fmt.Errorf("variable peerAddr is required")
		}
		return p.latestLocked(maxMessages, func(m peerboard.Message) bool {
			return m.SourcePeer == addr || m.DestinationPeer == addr
		}), nil
	default:
		return nil, fmt.Errorf("cannot query field %q on type Query", field)
	}
}

func (p *Proxy) statsLocked() peerboard.ConnectionStats {
	var s peerboard.ConnectionStats
	s.TotalConnections = int64(len(p.conns))
	for _, c := range p.conns {
		if c.Active() {
			s.ActiveConnections++
		}
	}
	for _, m := range p.messages {
		if m.Direction == peerboard.DirectionInbound {
			s.TotalBytesInbound += m.PayloadSize
			s.TotalMessagesInbound++
		} else {
			s.TotalBytesOutbound += m.PayloadSize
			s.TotalMessagesOutbound++
		}
	}
	return s
}

// latestLocked returns up to limit matching messages, newest first.
func (p *Proxy) latestLocked(limit int, match func(peerboard.Message) bool) []peerboard.Message {
	out := []peerboard.Message{}
	for i := len(p.messages) - 1; i >= 0 && len(out) < limit; i-- {
		if match(p.messages[i]) {
			out = append(out, p.messages[i])
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
