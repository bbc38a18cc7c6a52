// Package h2 implements the HTTP/2 engine (spec §4.5): a hface.TCPProtocol
// wrapping a sans-I/O frame codec, HPACK header compression, and the
// odd/even stream-ID allocation rule. It never performs I/O itself; the
// caller feeds it bytes and drains bytes exactly as with h1.
package h2

import "github.com/hface-go/hface"

// Version is the ALPN token and hface.Protocol.HTTPVersion value for this
// engine.
const Version = "h2"

// ClientPreface is the fixed byte string a client must send before its
// first SETTINGS frame (RFC 9113 §3.4).
const ClientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// defaultMaxConcurrentStreams is used until the peer's SETTINGS advertises
// a different value.
const defaultMaxConcurrentStreams = 100

// defaultHeaderTableSize is the HPACK dynamic table size both sides start
// with before any SETTINGS_HEADER_TABLE_SIZE exchange.
const defaultHeaderTableSize = 4096

var errorCodes = hface.ErrorCodes{
	NoError:       hface.ErrCodeNoError,
	ProtocolError: hface.ErrCodeProtocolError,
	InternalError: hface.ErrCodeInternalError,
}

func toWireErrorCode(c hface.ErrorCode) uint32 {
	switch c {
	case hface.ErrCodeNoError:
		return errCodeNoError
	case hface.ErrCodeProtocolError:
		return errCodeProtocolError
	case hface.ErrCodeCancel:
		return errCodeCancel
	default:
		return errCodeInternalError
	}
}

func fromWireErrorCode(w uint32) hface.ErrorCode {
	switch w {
	case errCodeNoError:
		return hface.ErrCodeNoError
	case errCodeProtocolError, errCodeFrameSizeError, errCodeCompressionError:
		return hface.ErrCodeProtocolError
	case errCodeCancel:
		return hface.ErrCodeCancel
	default:
		return hface.ErrCodeInternalError
	}
}
