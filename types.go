package peerboard

import "time"

// PeerConnection is one proxied connection between a client and a target peer.
//
// Optional counters are nil until the proxy has recorded them.
type PeerConnection struct {
	ID               int64      `json:"id"`
	ConnectionID     int64      `json:"connectionId"`
	ClientAddr       string     `json:"clientAddr"`
	TargetAddr       string     `json:"targetAddr"`
	ConnectedAt      time.Time  `json:"connectedAt"`
	DisconnectedAt   *time.Time `json:"disconnectedAt,omitempty"`
	BytesInbound     *int64     `json:"bytesInbound,omitempty"`
	BytesOutbound    *int64     `json:"bytesOutbound,omitempty"`
	MessagesInbound  *int64     `json:"messagesInbound,omitempty"`
	MessagesOutbound *int64     `json:"messagesOutbound,omitempty"`
}

// Active reports whether the connection has not been closed.
func (c PeerConnection) Active() bool {
	return c.DisconnectedAt == nil
}

// Duration returns how long the connection lasted, or has lasted so far
// as of now.
func (c PeerConnection) Duration(now time.Time) time.Duration {
	end := now
	if c.DisconnectedAt != nil {
		end = *c.DisconnectedAt
	}
	if end.Before(c.ConnectedAt) {
		return 0
	}
	return end.Sub(c.ConnectedAt)
}

// ConnectionStats aggregates traffic across all connections.
type ConnectionStats struct {
	TotalConnections      int64 `json:"totalConnections"`
	ActiveConnections     int64 `json:"activeConnections"`
	TotalBytesInbound     int64 `json:"totalBytesInbound"`
	TotalBytesOutbound    int64 `json:"totalBytesOutbound"`
	TotalMessagesInbound  int64 `json:"totalMessagesInbound"`
	TotalMessagesOutbound int64 `json:"totalMessagesOutbound"`
}

// Direction is the flow of a message relative to the proxied client.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// Message is one P2P message observed by the proxy.
type Message struct {
	ID              int64       `json:"id"`
	ConnectionID    int64       `json:"connectionId"`
	Timestamp       time.Time   `json:"timestamp"`
	Direction       Direction   `json:"direction"`
	SourcePeer      string      `json:"sourcePeer"`
	DestinationPeer string      `json:"destinationPeer"`
	MessageType     MessageType `json:"messageType"`
	PayloadSize     int64       `json:"payloadSize"`
	Description     string      `json:"description"`
}
