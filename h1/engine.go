package h1

import (
	"bytes"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"golang.org/x/net/http/httpguts"

	"github.com/hface-go/hface"
	"github.com/hface-go/hface/internal/eventqueue"
)

// Engine implements hface.TCPProtocol for HTTP/1.1, as specified in §4.4.
// It enforces single-stream, non-pipelined semantics: exactly one exchange
// (request+response) is in flight at a time, always on stream ID 1, reused
// across keep-alive exchanges until a Connection: close, an HTTP/1.0 peer,
// or an explicit SubmitClose ends the connection.
type Engine struct {
	role      hface.Role
	tlsActive bool

	localAddr, remoteAddr net.Addr
	extra                 map[string]any

	recv []byte
	send []byte

	events *eventqueue.Queue[hface.Event]

	terminated         bool
	busy               bool // an exchange is in flight on stream 1
	closeAfterExchange bool

	// Incoming message (request for a server, response for a client).
	readHead *startLineAndHeaders
	bodyDec  *bodyDecoder
	readDone bool

	// Outgoing message (response for a server, request for a client).
	headersSubmitted bool
	bodyEnc          *bodyEncoder
	writeDone        bool
}

// NewEngine returns a new HTTP/1.1 engine for the given role. tlsActive
// tells the engine whether the transport it rides is TLS, used to
// synthesize :scheme on received requests.
func NewEngine(role hface.Role, tlsActive bool) *Engine {
	return &Engine{
		role:      role,
		tlsActive: tlsActive,
		events:    eventqueue.New[hface.Event](),
	}
}

func (e *Engine) HTTPVersion() string          { return Version }
func (e *Engine) Multiplexed() bool            { return false }
func (e *Engine) ErrorCodes() hface.ErrorCodes { return errorCodes }

func (e *Engine) LocalAddr() net.Addr         { return e.localAddr }
func (e *Engine) RemoteAddr() net.Addr        { return e.remoteAddr }
func (e *Engine) SetLocalAddr(addr net.Addr)  { e.localAddr = addr }
func (e *Engine) SetRemoteAddr(addr net.Addr) { e.remoteAddr = addr }

func (e *Engine) ExtraAttributes() map[string]any {
	if e.extra == nil {
		e.extra = make(map[string]any)
	}
	return e.extra
}

// IsAvailable implements §3 invariant 5: true only when no exchange is
// currently in flight.
func (e *Engine) IsAvailable() bool {
	return !e.terminated && !e.busy
}

// AvailableStreamID always returns 1 and fails if an exchange is already
// open, per §3 invariant 5.
func (e *Engine) AvailableStreamID() (hface.StreamID, error) {
	if e.terminated {
		return 0, hface.NewError(hface.KindNotAvailable, "connection is terminated")
	}
	if e.busy {
		return 0, hface.NewError(hface.KindNotAvailable, "a request is already in flight")
	}
	return streamID, nil
}

func (e *Engine) SubmitHeaders(id hface.StreamID, headers hface.Headers, endStream bool) error {
	if e.terminated {
		return misuse("connection is terminated")
	}
	if id != streamID {
		return misuse("unknown stream id %d", id)
	}
	if e.role == hface.RoleServer {
		if !e.busy || e.readHead == nil {
			return misuse("no request in flight to respond to")
		}
	} else if e.busy {
		return misuse("a request is already in flight")
	}
	if e.headersSubmitted {
		return misuse("headers already submitted for this exchange")
	}
	if err := validateHeaders(headers); err != nil {
		return misuseErr(err)
	}

	headBytes, framing, err := encodeHead(e.role, headers, endStream)
	if err != nil {
		return misuseErr(err)
	}

	if e.role == hface.RoleClient {
		e.busy = true
	}
	if connectionClose(headers) {
		e.closeAfterExchange = true
	}
	e.send = append(e.send, headBytes...)
	e.headersSubmitted = true
	e.bodyEnc = &bodyEncoder{framing: framing}
	if endStream {
		e.writeDone = true
		e.maybeFinalizeExchange()
	}
	return nil
}

func (e *Engine) SubmitData(id hface.StreamID, data []byte, endStream bool) error {
	if e.terminated {
		return misuse("connection is terminated")
	}
	if id != streamID {
		return misuse("unknown stream id %d", id)
	}
	if !e.headersSubmitted {
		return misuse("headers not yet submitted for this exchange")
	}
	if e.writeDone {
		return misuse("stream is already closed for writing")
	}
	e.send = append(e.send, e.bodyEnc.encodeChunk(data, endStream)...)
	if endStream {
		e.writeDone = true
		e.maybeFinalizeExchange()
	}
	return nil
}

// SubmitStreamReset has no wire primitive on HTTP/1.1: it forces the
// connection closed, per §4.4.
func (e *Engine) SubmitStreamReset(id hface.StreamID, code hface.ErrorCode) error {
	if e.terminated {
		return misuse("connection is terminated")
	}
	if id != streamID {
		return misuse("unknown stream id %d", id)
	}
	e.events.Push(hface.StreamResetSent{StreamID: streamID, ErrorCode: code})
	e.events.Push(hface.ConnectionTerminated{ErrorCode: code})
	e.terminated = true
	return nil
}

// SubmitClose marks the connection for graceful shutdown once the current
// exchange (if any) completes; HTTP/1.1 has no GOAWAY of its own, so the
// "appropriate close framing" is simply not offering keep-alive.
func (e *Engine) SubmitClose(code *hface.ErrorCode) error {
	if e.terminated {
		return misuse("connection is terminated")
	}
	e.closeAfterExchange = true
	if !e.busy {
		ec := hface.ErrCodeNoError
		if code != nil {
			ec = *code
		}
		e.events.Push(hface.ConnectionTerminated{ErrorCode: ec})
		e.terminated = true
	}
	return nil
}

func (e *Engine) NextEvent() hface.Event {
	ev, ok := e.events.Pop()
	if !ok {
		return nil
	}
	return ev
}

func (e *Engine) BytesReceived(data []byte) {
	if e.terminated {
		return
	}
	e.recv = append(e.recv, data...)
	e.pump()
}

func (e *Engine) BytesToSend() []byte {
	out := e.send
	e.send = nil
	return out
}

func (e *Engine) EOFReceived() {
	if e.terminated {
		return
	}
	if e.readHead != nil && !e.readDone && e.bodyDec != nil && e.bodyDec.framing == framingClose {
		if len(e.recv) > 0 {
			e.events.Push(hface.DataReceived{StreamID: streamID, Data: append([]byte(nil), e.recv...), EndStream: true})
			e.recv = nil
		} else {
			e.events.Push(hface.DataReceived{StreamID: streamID, Data: nil, EndStream: true})
		}
		e.readDone = true
		e.maybeFinalizeExchange()
		return
	}
	if !e.busy {
		e.events.Push(hface.ConnectionTerminated{ErrorCode: hface.ErrCodeNoError})
		e.terminated = true
		return
	}
	if e.readHead != nil && !e.readDone {
		e.fail(fmt.Errorf("h1: connection closed mid-body"))
	}
}

func (e *Engine) ConnectionLost(err error) {
	if e.terminated {
		return
	}
	msg := "connection lost"
	if err != nil {
		msg = err.Error()
	}
	e.events.Push(hface.ConnectionTerminated{ErrorCode: hface.ErrCodeInternalError, Message: msg})
	e.terminated = true
}

func (e *Engine) pump() {
	for {
		progressed, err := e.pumpOnce()
		if err != nil {
			e.fail(err)
			return
		}
		if !progressed {
			return
		}
	}
}

func (e *Engine) fail(err error) {
	if e.terminated {
		return
	}
	e.events.Push(hface.ConnectionTerminated{ErrorCode: hface.ErrCodeProtocolError, Message: err.Error()})
	e.terminated = true
}

func (e *Engine) pumpOnce() (bool, error) {
	if e.terminated {
		return false, nil
	}

	if e.readHead == nil {
		if e.role == hface.RoleServer {
			if e.busy {
				return false, nil // no pipelining: wait for the in-flight exchange to finish
			}
		} else if !e.headersSubmitted {
			return false, nil // nothing to parse until a request has been submitted
		}

		block, rest, ok := findHeaderBlock(e.recv)
		if !ok {
			return false, nil
		}
		head, err := parseMessageHead(block, e.role)
		if err != nil {
			return false, err
		}
		e.recv = rest
		e.busy = true

		headersList, err := head.toHeadersReceived(e.role, e.tlsActive)
		if err != nil {
			return false, err
		}
		framing, length, err := determineIncomingFraming(e.role, headersList)
		if err != nil {
			return false, err
		}
		if connectionClose(headersList) || isHTTP10(head.proto) {
			e.closeAfterExchange = true
		}

		e.readHead = head
		e.bodyDec = newBodyDecoder(framing, length)
		endStream := framing == framingNone
		e.events.Push(hface.HeadersReceived{StreamID: streamID, Headers: headersList, EndStream: endStream})
		if endStream {
			e.readDone = true
			e.maybeFinalizeExchange()
		}
		return true, nil
	}

	if e.readDone {
		return false, nil
	}

	chunks, rest, done, err := e.bodyDec.decode(e.recv)
	if err != nil {
		return false, err
	}
	e.recv = rest
	progressed := len(chunks) > 0 || done
	for i, c := range chunks {
		last := done && i == len(chunks)-1
		e.events.Push(hface.DataReceived{StreamID: streamID, Data: append([]byte(nil), c...), EndStream: last})
	}
	if done {
		if len(chunks) == 0 {
			e.events.Push(hface.DataReceived{StreamID: streamID, Data: nil, EndStream: true})
		}
		e.readDone = true
		e.maybeFinalizeExchange()
	}
	return progressed, nil
}

func (e *Engine) maybeFinalizeExchange() {
	if !(e.readDone && e.writeDone) {
		return
	}
	if e.closeAfterExchange {
		e.events.Push(hface.ConnectionTerminated{ErrorCode: hface.ErrCodeNoError})
		e.terminated = true
		return
	}
	e.busy = false
	e.readHead = nil
	e.bodyDec = nil
	e.readDone = false
	e.headersSubmitted = false
	e.bodyEnc = nil
	e.writeDone = false
}

func determineIncomingFraming(role hface.Role, h hface.Headers) (bodyFraming, int64, error) {
	if isChunked(h) {
		return framingChunked, 0, nil
	}
	n, ok, err := headerContentLength(h)
	if err != nil {
		return 0, 0, err
	}
	if ok {
		if n == 0 {
			return framingNone, 0, nil
		}
		return framingContentLength, n, nil
	}
	if role == hface.RoleClient {
		return framingClose, 0, nil
	}
	return framingNone, 0, nil
}

func validateHeaders(h hface.Headers) error {
	for _, hd := range h {
		if hface.IsPseudo(hd.Name) {
			continue
		}
		if !httpguts.ValidHeaderFieldName(hd.Name) {
			return fmt.Errorf("h1: invalid header name %q", hd.Name)
		}
		if !httpguts.ValidHeaderFieldValue(hd.Value) {
			return fmt.Errorf("h1: invalid header value for %q", hd.Name)
		}
	}
	return nil
}

func findPseudo(pseudo hface.Headers, name string) (string, bool) {
	for _, h := range pseudo {
		if h.Name == name {
			return h.Value, true
		}
	}
	return "", false
}

func hasHeader(h hface.Headers, name string) bool {
	_, ok := h.Get(name)
	return ok
}

func encodeHead(role hface.Role, headers hface.Headers, endStream bool) ([]byte, bodyFraming, error) {
	pseudo, regular := headers.Split()
	var buf bytes.Buffer

	if role == hface.RoleServer {
		status, ok := findPseudo(pseudo, ":status")
		if !ok {
			return nil, 0, fmt.Errorf("h1: response headers missing :status")
		}
		code, err := strconv.Atoi(status)
		if err != nil {
			return nil, 0, fmt.Errorf("h1: invalid :status %q", status)
		}
		fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", code, http.StatusText(code))
	} else {
		method, ok := findPseudo(pseudo, ":method")
		if !ok {
			return nil, 0, fmt.Errorf("h1: request headers missing :method")
		}
		path, ok := findPseudo(pseudo, ":path")
		if !ok {
			return nil, 0, fmt.Errorf("h1: request headers missing :path")
		}
		authority, _ := findPseudo(pseudo, ":authority")
		fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", method, path)
		if authority != "" && !hasHeader(regular, "Host") {
			fmt.Fprintf(&buf, "Host: %s\r\n", authority)
		}
	}

	framing := framingChunked
	if n, ok, err := headerContentLength(regular); err != nil {
		return nil, 0, err
	} else if ok {
		if n == 0 {
			framing = framingNone
		} else {
			framing = framingContentLength
		}
	} else if endStream {
		framing = framingNone
		regular = append(regular, hface.Header{Name: "Content-Length", Value: "0"})
	} else {
		regular = append(regular, hface.Header{Name: "Transfer-Encoding", Value: "chunked"})
	}

	for _, h := range regular {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	buf.WriteString("\r\n")
	return buf.Bytes(), framing, nil
}

func misuse(format string, args ...any) error {
	return hface.NewError(hface.KindProtocolMisuse, format, args...)
}

func misuseErr(err error) error {
	return hface.WrapError(hface.KindProtocolMisuse, err, "%s", err.Error())
}
