package h3

import (
	"bytes"
	"fmt"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// HTTP/3 frame types, per RFC 9114 §7.2.
const (
	frameData        uint64 = 0x0
	frameHeaders     uint64 = 0x1
	frameCancelPush  uint64 = 0x3
	frameSettings    uint64 = 0x4
	framePushPromise uint64 = 0x5
	frameGoaway      uint64 = 0x7
	frameMaxPushID   uint64 = 0xd
)

// h3Frame is one decoded HTTP/3 frame: a type, and its payload.
type h3Frame struct {
	typ     uint64
	payload []byte
}

// appendFrame appends a complete HTTP/3 frame (type, length, payload) to
// buf using the QUIC variable-length integer encoding of RFC 9000 §16.
func appendFrame(buf []byte, typ uint64, payload []byte) []byte {
	buf = quicvarint.Append(buf, typ)
	buf = quicvarint.Append(buf, uint64(len(payload)))
	return append(buf, payload...)
}

// readFrame parses the next complete HTTP/3 frame from buf, reporting how
// many bytes it consumed. ok is false if buf does not yet hold a complete
// frame (the caller should wait for more data).
func readFrame(buf []byte) (fr h3Frame, n int, ok bool, err error) {
	r := bytes.NewReader(buf)
	typ, err := quicvarint.Read(r)
	if err == io.EOF {
		return fr, 0, false, nil
	}
	if err != nil {
		return fr, 0, false, err
	}
	length, err := quicvarint.Read(r)
	if err == io.EOF {
		return fr, 0, false, nil
	}
	if err != nil {
		return fr, 0, false, err
	}
	headerLen := len(buf) - r.Len()
	total := headerLen + int(length)
	if len(buf) < total {
		return fr, 0, false, nil
	}
	fr.typ = typ
	fr.payload = buf[headerLen:total]
	return fr, total, true, nil
}

// appendSettings serializes an (identifier, value) list as a SETTINGS
// frame payload (RFC 9114 §7.2.4).
func appendSettings(params map[uint64]uint64) []byte {
	var buf []byte
	for id, val := range params {
		buf = quicvarint.Append(buf, id)
		buf = quicvarint.Append(buf, val)
	}
	return buf
}

// parseSettings parses a SETTINGS frame payload into identifier/value
// pairs.
func parseSettings(payload []byte) (map[uint64]uint64, error) {
	out := make(map[uint64]uint64)
	r := bytes.NewReader(payload)
	for r.Len() > 0 {
		id, err := quicvarint.Read(r)
		if err != nil {
			return nil, fmt.Errorf("h3: malformed SETTINGS frame: %w", err)
		}
		val, err := quicvarint.Read(r)
		if err != nil {
			return nil, fmt.Errorf("h3: malformed SETTINGS frame: %w", err)
		}
		out[id] = val
	}
	return out, nil
}

// goawayPayload builds a GOAWAY frame payload: a single stream/push ID
// varint (RFC 9114 §5.2).
func goawayPayload(id uint64) []byte {
	return quicvarint.Append(nil, id)
}

// parseGoawayPayload parses a GOAWAY frame payload.
func parseGoawayPayload(payload []byte) (uint64, error) {
	r := bytes.NewReader(payload)
	id, err := quicvarint.Read(r)
	if err != nil {
		return 0, fmt.Errorf("h3: malformed GOAWAY frame: %w", err)
	}
	return id, nil
}
