package h2

import (
	"bytes"

	"golang.org/x/net/http2/hpack"

	"github.com/hface-go/hface"
)

// headerCodec bundles a connection's persistent HPACK encoder and decoder,
// grounded in golang.org/x/net/http2/hpack the way the reference HTTP/2
// server wires bradfitz/http2/hpack (its predecessor) into a serverConn:
// one encoder, one decoder, both living for the lifetime of the connection
// since HPACK's dynamic table is a running compression context.
//
// CONTINUATION frames aren't joined: every header block is expected to
// arrive (and is always sent) as a single HEADERS frame with END_HEADERS
// set. This matches every exchange hface itself generates and is the
// common case for peers that don't emit enormous header lists.
type headerCodec struct {
	encBuf bytes.Buffer
	enc    *hpack.Encoder
	dec    *hpack.Decoder
}

func newHeaderCodec() *headerCodec {
	c := &headerCodec{}
	c.enc = hpack.NewEncoder(&c.encBuf)
	c.dec = hpack.NewDecoder(defaultHeaderTableSize, nil)
	return c
}

// encode serializes headers into one HPACK block, pseudo-headers first as
// RFC 9113 §8.3 requires.
func (c *headerCodec) encode(headers hface.Headers) ([]byte, error) {
	c.encBuf.Reset()
	pseudo, regular := headers.Split()
	for _, h := range pseudo {
		if err := c.enc.WriteField(hpack.HeaderField{Name: h.Name, Value: h.Value}); err != nil {
			return nil, err
		}
	}
	for _, h := range regular {
		if err := c.enc.WriteField(hpack.HeaderField{Name: h.Name, Value: h.Value}); err != nil {
			return nil, err
		}
	}
	out := make([]byte, c.encBuf.Len())
	copy(out, c.encBuf.Bytes())
	return out, nil
}

// decode parses one complete HPACK header block.
func (c *headerCodec) decode(block []byte) (hface.Headers, error) {
	fields, err := c.dec.DecodeFull(block)
	if err != nil {
		return nil, err
	}
	out := make(hface.Headers, 0, len(fields))
	for _, f := range fields {
		out = append(out, hface.Header{Name: f.Name, Value: f.Value})
	}
	return out, nil
}
