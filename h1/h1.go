// Package h1 implements the HTTP/1.1 engine (spec §4.4): a hface.TCPProtocol
// that wraps request/status-line and header parsing, translates between
// HTTP/1 start lines and hface's pseudo-headers, and enforces HTTP/1's
// single-stream, no-pipelining semantics. Stream ID 1 is the only stream
// that ever exists on an h1 connection.
package h1

import "github.com/hface-go/hface"

// Version is the ALPN token and hface.Protocol.HTTPVersion value for this
// engine.
const Version = "http/1.1"

// streamID is the one and only valid stream on an HTTP/1.1 connection.
const streamID hface.StreamID = 1

var errorCodes = hface.DefaultErrorCodes
