package hface

// StreamID identifies a logical request/response exchange on a connection.
//
// HTTP/1.1 has exactly one valid stream, numbered 1. HTTP/2 streams are
// client-initiated on odd numbers and server-initiated on even numbers,
// strictly increasing. HTTP/3 streams inherit the QUIC bidirectional
// stream-ID space (client-initiated: 0, 4, 8, ...; server-initiated: 1, 5,
// 9, ...). The identifier is opaque to callers: they always obtain the next
// one from AvailableStreamID, never construct one themselves.
type StreamID uint64

// Role identifies which side of a connection a Protocol instance plays.
// Stream-ID parity and HTTP/1 request-vs-response framing both depend on
// it.
type Role int

const (
	// RoleClient is the connection initiator: it sends requests and opens
	// client-initiated streams.
	RoleClient Role = iota
	// RoleServer is the connection acceptor: it sends responses and opens
	// server-initiated streams.
	RoleServer
)

func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}
