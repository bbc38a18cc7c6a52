package h1

import (
	"bufio"
	"bytes"
	"fmt"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/hface-go/hface"
)

// startLineAndHeaders is the result of parsing the first section of an
// HTTP/1.1 message: its start line, split into the pieces relevant to
// pseudo-header synthesis, plus the regular headers that followed.
type startLineAndHeaders struct {
	// Request-line fields (server role).
	method string
	target string

	// Status-line fields (client role).
	statusCode string

	proto   string // e.g. "HTTP/1.1"
	headers hface.Headers
}

// findHeaderBlock reports whether buf contains a complete start-line+headers
// block (terminated by a blank line) and, if so, returns that block
// (including the terminating blank line) and the remainder.
func findHeaderBlock(buf []byte) (block, rest []byte, ok bool) {
	idx := bytes.Index(buf, []byte("\r\n\r\n"))
	if idx < 0 {
		// Be lenient of bare LF line endings, as real deployments
		// sometimes emit them.
		idx = bytes.Index(buf, []byte("\n\n"))
		if idx < 0 {
			return nil, buf, false
		}
		return buf[:idx+2], buf[idx+2:], true
	}
	return buf[:idx+4], buf[idx+4:], true
}

// parseMessageHead parses a complete start-line+headers block using
// net/textproto, the same building block net/http itself uses internally
// for this job.
func parseMessageHead(block []byte, role hface.Role) (*startLineAndHeaders, error) {
	tp := textproto.NewReader(bufio.NewReader(bytes.NewReader(block)))
	line, err := tp.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("h1: reading start line: %w", err)
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil && len(mimeHeader) == 0 {
		return nil, fmt.Errorf("h1: reading headers: %w", err)
	}

	headers := make(hface.Headers, 0, len(mimeHeader))
	for name, values := range mimeHeader {
		for _, v := range values {
			headers = append(headers, hface.Header{Name: name, Value: v})
		}
	}

	sh := &startLineAndHeaders{headers: headers}
	if role == hface.RoleServer {
		parts := strings.SplitN(line, " ", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("h1: malformed request line %q", line)
		}
		sh.method, sh.target, sh.proto = parts[0], parts[1], parts[2]
	} else {
		parts := strings.SplitN(line, " ", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("h1: malformed status line %q", line)
		}
		sh.proto, sh.statusCode = parts[0], parts[1]
	}
	return sh, nil
}

// toHeadersReceived synthesizes the pseudo-headers required by §3
// invariant 6 and returns the full Headers list (pseudo-headers first).
func (sh *startLineAndHeaders) toHeadersReceived(role hface.Role, tlsActive bool) (hface.Headers, error) {
	if role == hface.RoleServer {
		host, _ := sh.headers.Get("Host")
		if host == "" {
			return nil, fmt.Errorf("h1: request has no Host header")
		}
		scheme := "http"
		if tlsActive {
			scheme = "https"
		}
		authority, path := host, sh.target
		if strings.HasPrefix(sh.target, "http://") || strings.HasPrefix(sh.target, "https://") {
			// Absolute-form target: split into authority + path.
			rest := sh.target
			rest = strings.TrimPrefix(rest, "https://")
			rest = strings.TrimPrefix(rest, "http://")
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				authority, path = rest[:i], rest[i:]
			} else {
				authority, path = rest, "/"
			}
		}
		pseudo := hface.Headers{
			{Name: ":method", Value: sh.method},
			{Name: ":scheme", Value: scheme},
			{Name: ":authority", Value: authority},
			{Name: ":path", Value: path},
		}
		return append(pseudo, sh.headers...), nil
	}

	pseudo := hface.Headers{{Name: ":status", Value: sh.statusCode}}
	return append(pseudo, sh.headers...), nil
}

// headerContentLength returns the parsed Content-Length header value, if any.
func headerContentLength(h hface.Headers) (int64, bool, error) {
	v, ok := h.Get("Content-Length")
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("h1: invalid Content-Length %q", v)
	}
	return n, true, nil
}

// isChunked reports whether Transfer-Encoding names chunked as (per
// RFC 9112 §6.1) the final coding applied.
func isChunked(h hface.Headers) bool {
	v, ok := h.Get("Transfer-Encoding")
	if !ok {
		return false
	}
	codings := strings.Split(v, ",")
	last := strings.TrimSpace(codings[len(codings)-1])
	return strings.EqualFold(last, "chunked")
}

// connectionClose reports whether the message's Connection header names
// "close".
func connectionClose(h hface.Headers) bool {
	for _, v := range h.Values("Connection") {
		for _, tok := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(tok), "close") {
				return true
			}
		}
	}
	return false
}

// isHTTP10 reports whether proto is "HTTP/1.0".
func isHTTP10(proto string) bool {
	return strings.TrimSpace(proto) == "HTTP/1.0"
}
