package hface

import "net"

// TCPProtocolFactory constructs a fresh TCPProtocol for one TCP connection.
// Role (client vs server) is fixed at factory construction; an
// implementation wraps h1.NewServerFactory/h1.NewClientFactory or their h2
// equivalents.
type TCPProtocolFactory interface {
	// ALPNProtocol is the ALPN token this factory's protocol negotiates,
	// e.g. "http/1.1" or "h2".
	ALPNProtocol() string
	// NewProtocol returns a fresh protocol instance. serverName is the
	// client-requested SNI/authority, informational only (engines don't
	// validate it; that's the TLS layer's job).
	NewProtocol(serverName string) (TCPProtocol, error)
}

// QUICClientProtocolFactory constructs a fresh QUICProtocol for a client
// connection to a given destination.
type QUICClientProtocolFactory interface {
	ALPNProtocol() string
	NewClientProtocol(remote net.Addr) (QUICProtocol, error)
}

// QUICServerProtocolFactory constructs a fresh QUICProtocol for a server
// connection, given the peer address observed on an incoming Initial
// packet.
type QUICServerProtocolFactory interface {
	ALPNProtocol() string
	NewServerProtocol(peer net.Addr) (QUICProtocol, error)
}
