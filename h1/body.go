package h1

import (
	"bytes"
	"fmt"
	"strconv"
)

// bodyFraming identifies how a message body's length is delimited on the
// wire (RFC 9112 §6.3).
type bodyFraming int

const (
	framingNone          bodyFraming = iota // no body at all
	framingContentLength                    // exactly N bytes
	framingChunked                          // chunked transfer-coding
	framingClose                            // client responses only: body ends when the connection closes
)

// bodyDecoder incrementally decodes a request/response body from bytes
// accumulated across BytesReceived calls. decode consumes as much of buf as
// it can and returns the leftover, any decoded data chunks, and whether the
// body is now complete.
type bodyDecoder struct {
	framing   bodyFraming
	remaining int64 // for framingContentLength

	// Chunked decode state.
	chunkState chunkState
	chunkLeft  int64
}

type chunkState int

const (
	chunkExpectSize chunkState = iota
	chunkExpectData
	chunkExpectDataCRLF
	chunkExpectTrailerEnd
	chunkDone
)

func newBodyDecoder(framing bodyFraming, contentLength int64) *bodyDecoder {
	return &bodyDecoder{framing: framing, remaining: contentLength, chunkState: chunkExpectSize}
}

// decode returns data chunks newly available in buf, the unconsumed
// remainder of buf, and whether the body has been fully received.
func (d *bodyDecoder) decode(buf []byte) (data [][]byte, rest []byte, done bool, err error) {
	switch d.framing {
	case framingNone:
		return nil, buf, true, nil

	case framingContentLength:
		if d.remaining == 0 {
			return nil, buf, true, nil
		}
		n := int64(len(buf))
		if n > d.remaining {
			n = d.remaining
		}
		if n == 0 {
			return nil, buf, false, nil
		}
		chunk := buf[:n]
		d.remaining -= n
		return [][]byte{chunk}, buf[n:], d.remaining == 0, nil

	case framingClose:
		if len(buf) == 0 {
			return nil, buf, false, nil
		}
		return [][]byte{buf}, nil, false, nil

	case framingChunked:
		return d.decodeChunked(buf)

	default:
		return nil, buf, true, nil
	}
}

func (d *bodyDecoder) decodeChunked(buf []byte) (data [][]byte, rest []byte, done bool, err error) {
	for {
		switch d.chunkState {
		case chunkExpectSize:
			idx := bytes.Index(buf, []byte("\r\n"))
			if idx < 0 {
				return data, buf, false, nil
			}
			line := buf[:idx]
			buf = buf[idx+2:]
			// Strip chunk extensions, if any.
			if semi := bytes.IndexByte(line, ';'); semi >= 0 {
				line = line[:semi]
			}
			size, perr := strconv.ParseInt(string(bytes.TrimSpace(line)), 16, 64)
			if perr != nil || size < 0 {
				return data, buf, false, fmt.Errorf("h1: invalid chunk size %q", line)
			}
			if size == 0 {
				d.chunkState = chunkExpectTrailerEnd
				continue
			}
			d.chunkLeft = size
			d.chunkState = chunkExpectData

		case chunkExpectData:
			if len(buf) == 0 {
				return data, buf, false, nil
			}
			n := int64(len(buf))
			if n > d.chunkLeft {
				n = d.chunkLeft
			}
			data = append(data, buf[:n])
			buf = buf[n:]
			d.chunkLeft -= n
			if d.chunkLeft == 0 {
				d.chunkState = chunkExpectDataCRLF
			}

		case chunkExpectDataCRLF:
			if len(buf) < 2 {
				return data, buf, false, nil
			}
			if buf[0] != '\r' || buf[1] != '\n' {
				return data, buf, false, fmt.Errorf("h1: malformed chunk terminator")
			}
			buf = buf[2:]
			d.chunkState = chunkExpectSize

		case chunkExpectTrailerEnd:
			// Consume (and discard) any trailer headers up to the final
			// blank line. A trailer-part is zero or more field lines, so
			// the terminating blank line may be the very first thing here.
			pos := 0
			for {
				idx := bytes.Index(buf[pos:], []byte("\r\n"))
				if idx < 0 {
					return data, buf, false, nil
				}
				if idx == 0 {
					buf = buf[pos+2:]
					d.chunkState = chunkDone
					return data, buf, true, nil
				}
				pos += idx + 2
			}

		case chunkDone:
			return data, buf, true, nil
		}
	}
}

// bodyEncoder encodes submitted data chunks according to the chosen
// outbound framing.
type bodyEncoder struct {
	framing bodyFraming
}

// encodeChunk returns the wire bytes for one submitted data chunk.
func (e *bodyEncoder) encodeChunk(chunk []byte, endStream bool) []byte {
	var buf bytes.Buffer
	switch e.framing {
	case framingChunked:
		if len(chunk) > 0 {
			fmt.Fprintf(&buf, "%x\r\n", len(chunk))
			buf.Write(chunk)
			buf.WriteString("\r\n")
		}
		if endStream {
			buf.WriteString("0\r\n\r\n")
		}
	default: // framingContentLength, framingNone, framingClose
		buf.Write(chunk)
	}
	return buf.Bytes()
}
