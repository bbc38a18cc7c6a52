// Package h3 implements the HTTP/3 engine (spec §4.6): a hface.QUICProtocol
// wrapping per-stream HTTP/3 framing (RFC 9114) and QPACK header
// compression (RFC 9204) over QUIC streams. Like h1 and h2 it performs no
// I/O itself: the caller feeds it datagrams and drains datagrams.
//
// There is no sans-I/O QUIC implementation in the retrieval pack this
// engine is grounded on (quic-go/quic-go dials and listens sockets itself
// and runs its own goroutines, so it cannot be embedded in a sans-I/O
// core — see the luoxk-restys and grafana-k6 http3 packages in
// other_examples, both of which sit on top of a live quic-go.Connection).
// Per spec.md §1, a full QUIC transport (packet protection, loss recovery,
// the TLS 1.3 handshake QUIC integrates) is "deliberately out of scope",
// treated as an external collaborator. This engine therefore defines its
// own minimal datagram envelope (datagram.go) carrying one HTTP/3 stream
// frame per datagram, and spends its conformance effort where spec.md asks
// for it: the HTTP/3 frame layout of RFC 9114 §7 (frame.go, using
// quic-go/quicvarint for the variable-length integers RFC 9000 §16
// defines) and QPACK header compression of RFC 9204 (qpack.go, using
// quic-go/qpack). This substitution is recorded in DESIGN.md.
package h3

import "github.com/hface-go/hface"

// Version is the ALPN token and hface.Protocol.HTTPVersion value for this
// engine.
const Version = "h3"

// HTTP/3 error codes, per RFC 9114 §8.1 (the subset this engine can
// produce or needs to recognize).
const (
	wireNoError              uint64 = 0x100
	wireGeneralProtocolError uint64 = 0x101
	wireInternalError        uint64 = 0x102
	wireFrameUnexpected      uint64 = 0x105
	wireFrameError           uint64 = 0x106
	wireIDError              uint64 = 0x108
	wireSettingsError        uint64 = 0x109
	wireRequestCancelled     uint64 = 0x10c
)

var errorCodes = hface.ErrorCodes{
	NoError:       hface.ErrCodeNoError,
	ProtocolError: hface.ErrCodeProtocolError,
	InternalError: hface.ErrCodeInternalError,
}

func toWireErrorCode(c hface.ErrorCode) uint64 {
	switch c {
	case hface.ErrCodeNoError:
		return wireNoError
	case hface.ErrCodeProtocolError:
		return wireGeneralProtocolError
	case hface.ErrCodeCancel:
		return wireRequestCancelled
	default:
		return wireInternalError
	}
}

func fromWireErrorCode(w uint64) hface.ErrorCode {
	switch w {
	case wireNoError:
		return hface.ErrCodeNoError
	case wireRequestCancelled:
		return hface.ErrCodeCancel
	case wireInternalError:
		return hface.ErrCodeInternalError
	default:
		return hface.ErrCodeProtocolError
	}
}

func misuse(format string, args ...any) error {
	return hface.NewError(hface.KindProtocolMisuse, format, args...)
}

func misuseErr(err error) error {
	return hface.WrapError(hface.KindProtocolMisuse, err, "%s", err.Error())
}
