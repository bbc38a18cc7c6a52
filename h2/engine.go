package h2

import (
	"fmt"
	"net"

	"golang.org/x/net/http/httpguts"

	"github.com/hface-go/hface"
	"github.com/hface-go/hface/internal/eventqueue"
	"github.com/hface-go/hface/internal/hfacegodebug"
)

// Engine implements hface.TCPProtocol for HTTP/2, as specified in §4.5. It
// owns no socket: callers drive it with BytesReceived/BytesToSend exactly
// as with h1, but many streams can be open concurrently instead of one.
type Engine struct {
	role hface.Role

	localAddr, remoteAddr net.Addr
	extra                 map[string]any

	recv []byte
	send []byte

	events *eventqueue.Queue[hface.Event]

	terminated        bool
	prefaceValidated  bool
	goawaySent        bool
	goawayReceived    bool
	highestSeenRemote uint32

	streams                  map[uint32]*streamState
	nextLocalStreamID        uint32
	localOpen                int
	peerMaxConcurrentStreams uint32

	codec *headerCodec
}

// NewEngine returns a new HTTP/2 engine for the given role. A client
// engine queues its connection preface and initial SETTINGS frame
// immediately; a server engine queues only its SETTINGS frame and waits
// for the client preface before parsing anything else.
func NewEngine(role hface.Role) *Engine {
	e := &Engine{
		role:                     role,
		events:                   eventqueue.New[hface.Event](),
		streams:                  make(map[uint32]*streamState),
		peerMaxConcurrentStreams: defaultMaxConcurrentStreams,
		codec:                    newHeaderCodec(),
	}
	if role == hface.RoleClient {
		e.nextLocalStreamID = 1
		e.prefaceValidated = true // clients never receive a preface of their own
		e.send = append(e.send, []byte(ClientPreface)...)
	} else {
		e.nextLocalStreamID = 2
	}

	settings := appendSetting(nil, settingsEnablePush, 0)
	settings = appendSetting(settings, settingsMaxConcurrentStreams, defaultMaxConcurrentStreams)
	e.send = appendFrame(e.send, frameSettings, 0, 0, settings)
	return e
}

func (e *Engine) HTTPVersion() string          { return Version }
func (e *Engine) Multiplexed() bool            { return true }
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

func (e *Engine) IsAvailable() bool {
	if e.terminated || e.goawaySent || e.goawayReceived {
		return false
	}
	return e.localOpen < int(e.peerMaxConcurrentStreams)
}

// AvailableStreamID returns the next odd (client) or even (server) id
// strictly greater than every id this side has previously allocated,
// reserving it immediately as §3 invariant 4 requires.
func (e *Engine) AvailableStreamID() (hface.StreamID, error) {
	if !e.IsAvailable() {
		return 0, hface.NewError(hface.KindNotAvailable, "no stream can be allocated right now")
	}
	id := e.nextLocalStreamID
	e.nextLocalStreamID += 2
	e.streams[id] = &streamState{id: id, reserved: true}
	e.localOpen++
	return hface.StreamID(id), nil
}

func (e *Engine) SubmitHeaders(id hface.StreamID, headers hface.Headers, endStream bool) error {
	if e.terminated {
		return misuse("connection is terminated")
	}
	sid := uint32(id)
	st, ok := e.streams[sid]
	mine := idIsClient(sid) == (e.role == hface.RoleClient)
	if mine {
		if !ok || !st.reserved || st.localHeadersSent {
			return misuse("stream %d was not reserved for submission", sid)
		}
	} else if !ok || !st.remoteHeadersReceived || st.localHeadersSent {
		return misuse("no request in flight on stream %d to respond to", sid)
	}
	if err := validateHeaders(headers); err != nil {
		return misuseErr(err)
	}

	block, err := e.codec.encode(headers)
	if err != nil {
		return misuseErr(err)
	}
	flags := flagEndHeaders
	if endStream {
		flags |= flagEndStream
	}
	e.send = appendFrame(e.send, frameHeaders, flags, sid, block)

	st.reserved = false
	st.localHeadersSent = true
	if endStream {
		st.localEndStreamSent = true
	}
	e.recountIfClosed(st)
	return nil
}

func (e *Engine) SubmitData(id hface.StreamID, data []byte, endStream bool) error {
	if e.terminated {
		return misuse("connection is terminated")
	}
	sid := uint32(id)
	st, ok := e.streams[sid]
	if !ok || !st.localHeadersSent {
		return misuse("headers not yet submitted on stream %d", sid)
	}
	if st.localEndStreamSent {
		return misuse("stream %d is already closed for writing", sid)
	}
	if st.reset {
		return misuse("stream %d was reset", sid)
	}

	var flags uint8
	if endStream {
		flags = flagEndStream
	}
	e.send = appendFrame(e.send, frameData, flags, sid, data)
	if endStream {
		st.localEndStreamSent = true
		e.recountIfClosed(st)
	}
	return nil
}

func (e *Engine) SubmitStreamReset(id hface.StreamID, code hface.ErrorCode) error {
	if e.terminated {
		return misuse("connection is terminated")
	}
	sid := uint32(id)
	st, ok := e.streams[sid]
	if !ok {
		return misuse("unknown stream id %d", sid)
	}
	wire := toWireErrorCode(code)
	e.send = appendFrame(e.send, frameRSTStream, 0, sid, rstStreamPayload(wire))
	st.reset = true
	e.recountIfClosed(st)
	e.events.Push(hface.StreamResetSent{StreamID: id, ErrorCode: code})
	return nil
}

// SubmitClose sends a GOAWAY naming the highest-numbered peer-initiated
// stream already accepted; from then on IsAvailable reports false, so this
// side allocates no new streams. HEADERS that open new peer-initiated
// streams after the GOAWAY are still accepted and surfaced as events.
func (e *Engine) SubmitClose(code *hface.ErrorCode) error {
	if e.terminated {
		return misuse("connection is terminated")
	}
	if e.goawaySent {
		return nil
	}
	ec := hface.ErrCodeNoError
	if code != nil {
		ec = *code
	}
	e.goawaySent = true
	lastID := e.lastProcessedRemoteStreamID()
	e.send = appendFrame(e.send, frameGoaway, 0, 0, goawayPayload(lastID, toWireErrorCode(ec)))
	if e.noStreamsOpen() {
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
	e.events.Push(hface.ConnectionTerminated{ErrorCode: hface.ErrCodeInternalError, Message: "connection closed unexpectedly"})
	e.terminated = true
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
	if e.role == hface.RoleServer && !e.prefaceValidated {
		if len(e.recv) < len(ClientPreface) {
			return false, nil
		}
		if string(e.recv[:len(ClientPreface)]) != ClientPreface {
			return false, fmt.Errorf("h2: missing or malformed client connection preface")
		}
		e.recv = e.recv[len(ClientPreface):]
		e.prefaceValidated = true
		return true, nil
	}

	fh, ok := readFrameHeader(e.recv)
	if !ok {
		return false, nil
	}
	total := frameHeaderLen + int(fh.length)
	if len(e.recv) < total {
		return false, nil
	}
	payload := e.recv[frameHeaderLen:total]
	e.recv = e.recv[total:]
	if err := e.handleFrame(fh, payload); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) handleFrame(fh frameHeader, payload []byte) error {
	switch fh.typ {
	case frameSettings:
		return e.handleSettings(fh, payload)
	case framePing:
		return e.handlePing(fh, payload)
	case framePriority:
		return e.handlePriority()
	case frameWindowUpdate:
		return nil // no flow control enforced
	case framePushPromise:
		return fmt.Errorf("h2: received unexpected PUSH_PROMISE (push is disabled)")
	case frameContinuation:
		return fmt.Errorf("h2: unsupported CONTINUATION frame on stream %d", fh.streamID)
	case frameHeaders:
		return e.handleHeaders(fh, payload)
	case frameData:
		return e.handleData(fh, payload)
	case frameRSTStream:
		return e.handleRSTStream(fh, payload)
	case frameGoaway:
		return e.handleGoaway(fh, payload)
	default:
		return nil // unknown frame types are ignored per RFC 9113 §4.1
	}
}

func (e *Engine) handleSettings(fh frameHeader, payload []byte) error {
	if fh.flags&flagAck != 0 {
		return nil
	}
	settings, err := parseSettings(payload)
	if err != nil {
		return err
	}
	if v, ok := settings[settingsMaxConcurrentStreams]; ok {
		e.peerMaxConcurrentStreams = v
	}
	e.send = appendFrame(e.send, frameSettings, flagAck, 0, nil)
	return nil
}

// handlePriority resolves the §9 open question on PRIORITY frames: reject
// or ignore, controlled by HFACEGODEBUG=h2priority=reject|ignore (ignore
// is the default, matching RFC 9113 §5.3.2's note that senders MAY no-op
// priority handling).
func (e *Engine) handlePriority() error {
	if hfacegodebug.Value("h2priority") == "reject" {
		return fmt.Errorf("h2: PRIORITY frames are rejected (HFACEGODEBUG=h2priority=reject)")
	}
	return nil
}

func (e *Engine) handlePing(fh frameHeader, payload []byte) error {
	if fh.flags&flagAck != 0 {
		return nil
	}
	if len(payload) != 8 {
		return fmt.Errorf("h2: malformed PING frame length %d", len(payload))
	}
	e.send = appendFrame(e.send, framePing, flagAck, 0, payload)
	return nil
}

func (e *Engine) handleHeaders(fh frameHeader, payload []byte) error {
	if fh.flags&flagEndHeaders == 0 {
		return fmt.Errorf("h2: unsupported multi-frame header block on stream %d", fh.streamID)
	}
	block, err := parseHeadersPayload(fh.flags, payload)
	if err != nil {
		return err
	}
	headers, err := e.codec.decode(block)
	if err != nil {
		return fmt.Errorf("h2: HPACK decode error: %w", err)
	}

	sid := fh.streamID
	mine := idIsClient(sid) == (e.role == hface.RoleClient)
	st, ok := e.streams[sid]
	if mine {
		if !ok || !st.localHeadersSent {
			return fmt.Errorf("h2: HEADERS received for stream %d we never opened", sid)
		}
	} else if !ok {
		if sid <= e.highestSeenRemote {
			return fmt.Errorf("h2: HEADERS received for already-closed stream %d", sid)
		}
		st = &streamState{id: sid}
		e.streams[sid] = st
		e.highestSeenRemote = sid
	}

	st.remoteHeadersReceived = true
	endStream := fh.flags&flagEndStream != 0
	if endStream {
		st.remoteEndStreamReceived = true
	}
	e.events.Push(hface.HeadersReceived{StreamID: hface.StreamID(sid), Headers: headers, EndStream: endStream})
	e.recountIfClosed(st)
	return nil
}

func (e *Engine) handleData(fh frameHeader, payload []byte) error {
	data, err := stripPadding(fh.flags, payload)
	if err != nil {
		return err
	}
	sid := fh.streamID
	st, ok := e.streams[sid]
	if !ok || !st.remoteHeadersReceived || st.remoteEndStreamReceived {
		return fmt.Errorf("h2: DATA received for stream %d with no open request", sid)
	}
	endStream := fh.flags&flagEndStream != 0
	if endStream {
		st.remoteEndStreamReceived = true
	}
	out := make([]byte, len(data))
	copy(out, data)
	e.events.Push(hface.DataReceived{StreamID: hface.StreamID(sid), Data: out, EndStream: endStream})
	e.recountIfClosed(st)
	return nil
}

func (e *Engine) handleRSTStream(fh frameHeader, payload []byte) error {
	code, err := parseRSTStreamPayload(payload)
	if err != nil {
		return err
	}
	sid := fh.streamID
	st, ok := e.streams[sid]
	if !ok {
		st = &streamState{id: sid}
		e.streams[sid] = st
	}
	st.reset = true
	e.recountIfClosed(st)
	e.events.Push(hface.StreamResetReceived{StreamID: hface.StreamID(sid), ErrorCode: fromWireErrorCode(code)})
	return nil
}

func (e *Engine) handleGoaway(fh frameHeader, payload []byte) error {
	lastID, code, err := parseGoawayPayload(payload)
	if err != nil {
		return err
	}
	e.goawayReceived = true
	e.events.Push(hface.GoawayReceived{LastStreamID: hface.StreamID(lastID), ErrorCode: fromWireErrorCode(code)})
	return nil
}

func (e *Engine) recountIfClosed(st *streamState) {
	if st.countedClosed {
		return
	}
	mine := idIsClient(st.id) == (e.role == hface.RoleClient)
	if mine && st.closed() {
		e.localOpen--
		st.countedClosed = true
	}
}

func (e *Engine) noStreamsOpen() bool {
	for _, st := range e.streams {
		if !st.closed() {
			return false
		}
	}
	return true
}

func (e *Engine) lastProcessedRemoteStreamID() uint32 {
	var max uint32
	for id, st := range e.streams {
		mine := idIsClient(id) == (e.role == hface.RoleClient)
		if !mine && st.remoteHeadersReceived && id > max {
			max = id
		}
	}
	return max
}

func validateHeaders(h hface.Headers) error {
	for _, hd := range h {
		if hface.IsPseudo(hd.Name) {
			continue
		}
		if !httpguts.ValidHeaderFieldName(hd.Name) {
			return fmt.Errorf("h2: invalid header name %q", hd.Name)
		}
		if !httpguts.ValidHeaderFieldValue(hd.Value) {
			return fmt.Errorf("h2: invalid header value for %q", hd.Name)
		}
	}
	return nil
}

func misuse(format string, args ...any) error {
	return hface.NewError(hface.KindProtocolMisuse, format, args...)
}

func misuseErr(err error) error {
	return hface.WrapError(hface.KindProtocolMisuse, err, "%s", err.Error())
}
