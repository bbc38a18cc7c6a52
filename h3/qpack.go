package h3

import (
	"bytes"

	"github.com/quic-go/qpack"

	"github.com/hface-go/hface"
)

// headerCodec encodes and decodes HTTP/3 header blocks with QPACK
// (RFC 9204), grounded in github.com/quic-go/qpack the way
// other_examples' luoxk-restys/internal/http3/conn.go wires the same
// package into an HTTP/3 connection.
//
// Unlike headerCodec in h2 (which keeps one persistent HPACK dynamic
// table for the connection's lifetime), this codec never references the
// QPACK dynamic table: every field is encoded against the static table or
// as a literal, and a fresh encoder/decoder pair is used per header block.
// QPACK's dynamic table requires a side channel (the QPACK encoder and
// decoder streams, RFC 9204 §4.2) to keep both ends' tables in sync
// without blocking; hface's own minimal datagram envelope (datagram.go)
// does not model those streams, so this codec simply never grows the
// table, which is valid QPACK and keeps every header block
// self-contained and order-independent to decode.
type headerCodec struct{}

func newHeaderCodec() *headerCodec { return &headerCodec{} }

// encode serializes headers into one QPACK-encoded block, pseudo-headers
// first per RFC 9114 §4.3.
func (c *headerCodec) encode(headers hface.Headers) ([]byte, error) {
	var buf bytes.Buffer
	enc := qpack.NewEncoder(&buf)
	pseudo, regular := headers.Split()
	for _, h := range pseudo {
		if err := enc.WriteField(qpack.HeaderField{Name: h.Name, Value: h.Value}); err != nil {
			return nil, err
		}
	}
	for _, h := range regular {
		if err := enc.WriteField(qpack.HeaderField{Name: h.Name, Value: h.Value}); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode parses one complete QPACK header block.
func (c *headerCodec) decode(block []byte) (hface.Headers, error) {
	dec := qpack.NewDecoder(nil)
	fields, err := dec.DecodeFull(block)
	if err != nil {
		return nil, err
	}
	out := make(hface.Headers, 0, len(fields))
	for _, f := range fields {
		out = append(out, hface.Header{Name: f.Name, Value: f.Value})
	}
	return out, nil
}
