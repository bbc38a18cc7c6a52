package hface

import (
	"net"
	"time"
)

// Protocol is the version-agnostic contract every engine (h1.Engine,
// h2.Engine, h3.Engine) implements. It is deliberately pull-based on both
// sides: submits return synchronously, and NextEvent never blocks. All
// concurrency and suspension live in the caller; the core does not start
// goroutines and does not perform I/O.
type Protocol interface {
	// HTTPVersion returns the ALPN-style version tag: "http/1.1", "h2" or
	// "h3".
	HTTPVersion() string

	// Multiplexed reports whether more than one stream can be open at a
	// time (false for HTTP/1.1, true for HTTP/2 and HTTP/3).
	Multiplexed() bool

	// ErrorCodes returns this version's error-code table.
	ErrorCodes() ErrorCodes

	// IsAvailable reports whether the caller may open a new stream right
	// now.
	IsAvailable() bool

	// AvailableStreamID returns the next stream ID the caller may use. The
	// ID is reserved at allocation time, not at first use: two successive
	// calls without an intervening SubmitHeaders still return distinct
	// IDs. Fails with KindNotAvailable if no ID can be allocated right
	// now.
	AvailableStreamID() (StreamID, error)

	// SubmitHeaders submits a request (client role) or response (server
	// role) header block for id. Fails with KindProtocolMisuse without
	// mutating state if id is not a freshly-allocated or already-open
	// stream, or if headers were already fully sent on id.
	SubmitHeaders(id StreamID, headers Headers, endStream bool) error

	// SubmitData submits a body chunk for id. Fails with
	// KindProtocolMisuse if headers haven't been submitted for id yet, or
	// if the stream's outbound side is already closed.
	SubmitData(id StreamID, data []byte, endStream bool) error

	// SubmitStreamReset aborts id with the given version-neutral error
	// code.
	SubmitStreamReset(id StreamID, code ErrorCode) error

	// SubmitClose initiates graceful connection shutdown, emitting
	// whatever GOAWAY/close framing the version requires. code is nil for
	// a default no_error shutdown.
	SubmitClose(code *ErrorCode) error

	// NextEvent returns the next pending event, or nil if the outbound
	// event queue is empty but the connection is still live (the caller
	// should feed more bytes/datagrams before calling again). Returns a
	// ConnectionTerminated event exactly once, then nil forever.
	NextEvent() Event

	// LocalAddr and RemoteAddr are set by the surrounding connection layer
	// once the transport is established; the core is a passive holder of
	// these values and never dials or listens itself.
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	SetLocalAddr(net.Addr)
	SetRemoteAddr(net.Addr)

	// ExtraAttributes is an opaque diagnostic bag (e.g. negotiated ALPN
	// token or TLS version). The h1, h2 and h3 engines create it empty on
	// first use and add nothing to it themselves.
	ExtraAttributes() map[string]any
}

// TCPProtocol specializes Protocol for a byte-oriented transport. h1.Engine
// and h2.Engine implement it.
type TCPProtocol interface {
	Protocol

	// BytesReceived appends data to the receive buffer; the engine parses
	// opportunistically, possibly producing events available via
	// NextEvent.
	BytesReceived(data []byte)

	// BytesToSend drains and returns the pending outbound buffer (which
	// may be empty). Bytes returned after action A and before action B
	// contain the wire encoding of A (and any prior buffered actions) in
	// submission order.
	BytesToSend() []byte

	// EOFReceived signals a half-close from the peer. For HTTP/1 this may
	// legitimately complete a response whose length is delimited by
	// connection close.
	EOFReceived()

	// ConnectionLost reports an abrupt transport loss. It synthesizes a
	// ConnectionTerminated event if the connection isn't already
	// terminal.
	ConnectionLost(err error)
}

// Datagram pairs a QUIC datagram payload with its peer address.
type Datagram struct {
	Payload []byte
	Addr    net.Addr
}

// QUICProtocol specializes Protocol for a datagram transport with
// integrated TLS and an event clock. h3.Engine implements it.
type QUICProtocol interface {
	Protocol

	// DatagramReceived feeds one inbound QUIC datagram to the engine.
	DatagramReceived(payload []byte, peer net.Addr)

	// DatagramsToSend drains the outbound datagram batch generated since
	// the last call, along with the next absolute time the caller must
	// invoke GetTimer again even without new I/O (nil if none is armed).
	DatagramsToSend() ([]Datagram, *time.Time)

	// Clock returns the engine's monotonic time source, so the
	// surrounding I/O driver can slave its scheduling to it.
	Clock() time.Time

	// GetTimer returns the next absolute time at which the engine needs
	// to run for retransmit/ack timers, or nil if none is armed.
	GetTimer() *time.Time

	// ConnectionIDs returns the current set of valid connection IDs, for
	// load balancers and path migration.
	ConnectionIDs() [][]byte

	// ConnectionLost reports an abrupt transport loss, as TCPProtocol's
	// method of the same name.
	ConnectionLost(err error)
}
