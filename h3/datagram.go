package h3

import (
	"bytes"
	"fmt"

	"github.com/quic-go/quic-go/quicvarint"
)

// controlStreamID is a sentinel that can never collide with a real
// bidirectional request stream id (those are always small, monotonically
// allocated values): it stands in for the connection's control stream,
// which RFC 9114 §6.2.1 has each side create as a unidirectional stream
// carrying SETTINGS and GOAWAY. hface's minimal datagram envelope (see
// h3.go's package doc) never surfaces real QUIC unidirectional streams, so
// this marker is how control-stream traffic rides the same envelope as
// request-stream traffic. It is set to the largest value the QUIC varint
// encoding can represent (quicvarint.Max), not ^uint64(0), since
// quicvarint.Append only handles values up to that bound.
const controlStreamID uint64 = quicvarint.Max

// envelope kinds. hface's datagram envelope is not real QUIC packet
// framing (see h3.go); it is a minimal substitute carrying exactly one
// logical unit — an HTTP/3 frame, or a stream reset signal — per
// datagram, tagged with the logical stream it belongs to.
const (
	envelopeFrame uint8 = 0
	envelopeReset uint8 = 1
)

// encodeFrameDatagram builds one envelope carrying a single HTTP/3 frame
// for streamID, with fin set if the sender is ending that direction of the
// stream with this frame (mirroring a QUIC STREAM frame's FIN bit, which
// real HTTP/3 relies on instead of an in-frame end-of-message flag).
func encodeFrameDatagram(streamID uint64, fin bool, frame []byte) []byte {
	buf := []byte{envelopeFrame}
	buf = quicvarint.Append(buf, streamID)
	if fin {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return append(buf, frame...)
}

// encodeResetDatagram builds one envelope signaling that streamID has been
// reset with the given wire error code (standing in for a QUIC
// RESET_STREAM frame, RFC 9000 §19.4).
func encodeResetDatagram(streamID uint64, code uint64) []byte {
	buf := []byte{envelopeReset}
	buf = quicvarint.Append(buf, streamID)
	return quicvarint.Append(buf, code)
}

// decodedEnvelope is the parsed form of one inbound datagram.
type decodedEnvelope struct {
	kind     uint8
	streamID uint64
	fin      bool
	frame    []byte // envelopeFrame only: raw bytes of exactly one HTTP/3 frame
	code     uint64 // envelopeReset only
}

// decodeDatagram parses one complete envelope. hface never splits an
// envelope across datagrams, so a full datagram is always a full
// envelope.
func decodeDatagram(payload []byte) (decodedEnvelope, error) {
	var d decodedEnvelope
	if len(payload) < 1 {
		return d, fmt.Errorf("h3: empty datagram")
	}
	d.kind = payload[0]
	tail := payload[1:]
	r := bytes.NewReader(tail)
	streamID, err := quicvarint.Read(r)
	if err != nil {
		return d, fmt.Errorf("h3: malformed datagram stream id: %w", err)
	}
	d.streamID = streamID
	rest := tail[len(tail)-r.Len():]

	switch d.kind {
	case envelopeFrame:
		if len(rest) < 1 {
			return d, fmt.Errorf("h3: malformed datagram: missing fin byte")
		}
		d.fin = rest[0] != 0
		d.frame = rest[1:]
	case envelopeReset:
		cr := bytes.NewReader(rest)
		code, err := quicvarint.Read(cr)
		if err != nil {
			return d, fmt.Errorf("h3: malformed reset datagram: %w", err)
		}
		d.code = code
	default:
		return d, fmt.Errorf("h3: unknown envelope kind %d", d.kind)
	}
	return d, nil
}
