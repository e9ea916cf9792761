package graphql

import "sort"

// Named queries understood by the query service.
const (
	QueryPeerConnections      = "peerConnections"
	QueryActiveConnections    = "activeConnections"
	QueryConnectionStats      = "connectionStats"
	QueryRecentMessages       = "recentMessages"
	QueryMessagesByConnection = "messagesByConnection"
	QueryMessagesByPeer       = "messagesByPeer"
)

const connectionFields = `
      id
      connectionId
      clientAddr
      targetAddr
      connectedAt
      disconnectedAt
      bytesInbound
      bytesOutbound
      messagesInbound
      messagesOutbound`

const messageFields = `
      id
      connectionId
      timestamp
      direction
      sourcePeer
      destinationPeer
      messageType
      payloadSize
      description`

var documents = map[string]string{
	QueryPeerConnections: `query GetPeerConnections {
    peerConnections {` + connectionFields + `
    }
  }`,
	QueryActiveConnections: `query GetActiveConnections {
    activeConnections {` + connectionFields + `
    }
  }`,
	QueryConnectionStats: `query GetConnectionStats {
    connectionStats {
      totalConnections
      activeConnections
      totalBytesInbound
      totalBytesOutbound
      totalMessagesInbound
      totalMessagesOutbound
    }
  }`,
	QueryRecentMessages: `query GetRecentMessages($limit: Int) {
    recentMessages(limit: $limit) {` + messageFields + `
    }
  }`,
	QueryMessagesByConnection: `query GetMessagesByConnection($connectionId: Int!) {
    messagesByConnection(connectionId: $connectionId) {` + messageFields + `
    }
  }`,
	QueryMessagesByPeer: `query GetMessagesByPeer($peerAddr: String!) {
    messagesByPeer(peerAddr: $peerAddr) {` + messageFields + `
    }
  }`,
}

// Document returns the GraphQL document for a named query.
func Document(name string) (string, bool) {
	doc, ok := documents[name]
	return doc, ok
}

// Queries returns the names of all known queries, sorted.
func Queries() []string {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
