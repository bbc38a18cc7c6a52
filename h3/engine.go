package h3

import (
	"crypto/rand"
	"fmt"
	"net"
	"time"

	"github.com/hface-go/hface"
	"github.com/hface-go/hface/internal/eventqueue"
	"github.com/hface-go/hface/internal/hfacegodebug"
)

// defaultMaxConcurrentStreams bounds how many request streams this side
// will have open at once, mirroring h2's equivalent knob. Real HTTP/3
// relies on QUIC's own MAX_STREAMS frame for this; since hface's datagram
// envelope doesn't model QUIC flow-control frames, the engine enforces a
// fixed local cap instead.
const defaultMaxConcurrentStreams = 100

// Engine implements hface.QUICProtocol for HTTP/3, as specified in §4.6.
// It owns no socket: callers drive it with DatagramReceived/
// DatagramsToSend, exactly as h1 and h2 are driven with bytes.
type Engine struct {
	role hface.Role

	localAddr, remoteAddr net.Addr
	extra                 map[string]any

	events  *eventqueue.Queue[hface.Event]
	outDg   []hface.Datagram
	connID  []byte
	deadAt  *time.Time
	recvBuf map[uint64][]byte // per-stream partial-frame reassembly

	terminated     bool
	goawaySent     bool
	goawayReceived bool

	streams                  map[uint64]*streamState
	nextLocalStreamID        uint64
	localOpen                int
	peerMaxConcurrentStreams int
	highestSeenRemote        uint64
	seenAnyRemote            bool

	codec *headerCodec
}

// NewEngine returns a new HTTP/3 engine for the given role. It immediately
// queues an outbound SETTINGS frame on the control stream, the first thing
// RFC 9114 §6.2.1 requires each side to send.
func NewEngine(role hface.Role) *Engine {
	e := &Engine{
		role:                     role,
		events:                   eventqueue.New[hface.Event](),
		recvBuf:                  make(map[uint64][]byte),
		streams:                  make(map[uint64]*streamState),
		peerMaxConcurrentStreams: defaultMaxConcurrentStreams,
		codec:                    newHeaderCodec(),
	}
	if role == hface.RoleClient {
		e.nextLocalStreamID = 0
	} else {
		e.nextLocalStreamID = 1
	}
	e.connID = make([]byte, 8)
	_, _ = rand.Read(e.connID)

	settings := appendFrame(nil, frameSettings, appendSettings(nil))
	e.outDg = append(e.outDg, hface.Datagram{Payload: encodeFrameDatagram(controlStreamID, false, settings)})
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

// ConnectionIDs returns this connection's single connection ID. hface
// generates one per engine (it does not model QUIC's NEW_CONNECTION_ID
// frame or path migration), so the set never grows beyond one entry.
func (e *Engine) ConnectionIDs() [][]byte {
	return [][]byte{e.connID}
}

// Clock returns the current time, the monotonic source the surrounding
// I/O driver should slave its scheduling to.
func (e *Engine) Clock() time.Time { return time.Now() }

// GetTimer always returns nil: hface's HTTP/3 engine does not implement
// QUIC-level retransmission or ack timers (spec.md §1 and the component
// table for C8 both describe that machinery as a future-work concern of
// the underlying QUIC transport, not this layer), so it never needs the
// caller to wake it on a schedule.
func (e *Engine) GetTimer() *time.Time { return nil }

func (e *Engine) IsAvailable() bool {
	if e.terminated || e.goawaySent || e.goawayReceived {
		return false
	}
	return e.localOpen < e.peerMaxConcurrentStreams
}

// AvailableStreamID returns the next id in this side's bidirectional
// stream-id space (mod-4 parity per RFC 9000 §2.1), reserving it
// immediately as §3 invariant 4 requires.
func (e *Engine) AvailableStreamID() (hface.StreamID, error) {
	if !e.IsAvailable() {
		return 0, hface.NewError(hface.KindNotAvailable, "no stream can be allocated right now")
	}
	id := e.nextLocalStreamID
	e.nextLocalStreamID += 4
	e.streams[id] = &streamState{id: id, reserved: true}
	e.localOpen++
	return hface.StreamID(id), nil
}

func (e *Engine) SubmitHeaders(id hface.StreamID, headers hface.Headers, endStream bool) error {
	if e.terminated {
		return misuse("connection is terminated")
	}
	sid := uint64(id)
	st, ok := e.streams[sid]
	mine := idIsClient(sid) == (e.role == hface.RoleClient)
	if mine {
		if !ok || !st.reserved || st.localHeadersSent {
			return misuse("stream %d was not reserved for submission", sid)
		}
	} else if !ok || !st.remoteHeadersReceived || st.localHeadersSent {
		return misuse("no request in flight on stream %d to respond to", sid)
	}

	block, err := e.codec.encode(headers)
	if err != nil {
		return misuseErr(err)
	}
	frame := appendFrame(nil, frameHeaders, block)
	e.outDg = append(e.outDg, hface.Datagram{Payload: encodeFrameDatagram(sid, endStream, frame)})

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
	sid := uint64(id)
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

	frame := appendFrame(nil, frameData, data)
	e.outDg = append(e.outDg, hface.Datagram{Payload: encodeFrameDatagram(sid, endStream, frame)})
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
	sid := uint64(id)
	st, ok := e.streams[sid]
	if !ok {
		return misuse("unknown stream id %d", sid)
	}
	e.outDg = append(e.outDg, hface.Datagram{Payload: encodeResetDatagram(sid, toWireErrorCode(code))})
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
	frame := appendFrame(nil, frameGoaway, goawayPayload(lastID))
	e.outDg = append(e.outDg, hface.Datagram{Payload: encodeFrameDatagram(controlStreamID, false, frame)})
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

func (e *Engine) DatagramReceived(payload []byte, peer net.Addr) {
	if e.terminated {
		return
	}
	env, err := decodeDatagram(payload)
	if err != nil {
		e.fail(err)
		return
	}
	if err := e.handleEnvelope(env); err != nil {
		e.fail(err)
	}
}

func (e *Engine) DatagramsToSend() ([]hface.Datagram, *time.Time) {
	out := e.outDg
	e.outDg = nil
	return out, e.deadAt
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

func (e *Engine) fail(err error) {
	if e.terminated {
		return
	}
	e.events.Push(hface.ConnectionTerminated{ErrorCode: hface.ErrCodeProtocolError, Message: err.Error()})
	e.terminated = true
}

func (e *Engine) handleEnvelope(env decodedEnvelope) error {
	switch env.kind {
	case envelopeReset:
		return e.handleReset(env.streamID, env.code)
	case envelopeFrame:
		return e.handleStreamBytes(env.streamID, env.fin, env.frame)
	default:
		return fmt.Errorf("h3: unknown envelope kind %d", env.kind)
	}
}

// handleStreamBytes appends frame bytes to streamID's reassembly buffer
// and drains as many complete HTTP/3 frames as are available. hface's
// sender always puts exactly one frame in one envelope, so in practice
// this drains exactly one frame per call; the buffer exists so the engine
// degrades gracefully rather than assuming that invariant.
func (e *Engine) handleStreamBytes(streamID uint64, fin bool, data []byte) error {
	e.recvBuf[streamID] = append(e.recvBuf[streamID], data...)
	for {
		buf := e.recvBuf[streamID]
		fr, n, ok, err := readFrame(buf)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		e.recvBuf[streamID] = buf[n:]
		endStream := fin && len(e.recvBuf[streamID]) == 0
		if err := e.handleFrame(streamID, fr, endStream); err != nil {
			return err
		}
	}
	if fin && len(e.recvBuf[streamID]) == 0 {
		delete(e.recvBuf, streamID)
	}
	return nil
}

func (e *Engine) handleFrame(streamID uint64, fr h3Frame, endStream bool) error {
	if streamID == controlStreamID {
		switch fr.typ {
		case frameSettings:
			_, err := parseSettings(fr.payload)
			return err
		case frameGoaway:
			return e.handleGoaway(fr.payload)
		case frameCancelPush, frameMaxPushID:
			return e.handlePush(streamID)
		default:
			return nil // unknown control-stream frame types are ignored per RFC 9114 §9
		}
	}

	switch fr.typ {
	case frameHeaders:
		return e.handleHeaders(streamID, fr.payload, endStream)
	case frameData:
		return e.handleData(streamID, fr.payload, endStream)
	case framePushPromise:
		return e.handlePush(streamID)
	default:
		return nil // unknown frame types are ignored per RFC 9114 §9
	}
}

// handlePush resolves the §9 open question on server push: reject or
// ignore, controlled by HFACEGODEBUG=h3push=ignore|reject (reject is the
// default, since hface never advertises a non-zero MAX_PUSH_ID and a
// push frame arriving anyway is a clearer sign of peer misbehavior than
// h2's PRIORITY frames are).
func (e *Engine) handlePush(streamID uint64) error {
	if hfacegodebug.Value("h3push") == "ignore" {
		return nil
	}
	return fmt.Errorf("h3: received unexpected push frame on stream %d (push is disabled, HFACEGODEBUG=h3push=ignore to tolerate)", streamID)
}

func (e *Engine) handleHeaders(sid uint64, block []byte, endStream bool) error {
	headers, err := e.codec.decode(block)
	if err != nil {
		return fmt.Errorf("h3: QPACK decode error: %w", err)
	}

	mine := idIsClient(sid) == (e.role == hface.RoleClient)
	st, ok := e.streams[sid]
	if mine {
		if !ok || !st.localHeadersSent {
			return fmt.Errorf("h3: HEADERS received for stream %d we never opened", sid)
		}
	} else if !ok {
		if e.seenAnyRemote && sid <= e.highestSeenRemote {
			return fmt.Errorf("h3: HEADERS received for already-closed stream %d", sid)
		}
		st = &streamState{id: sid}
		e.streams[sid] = st
		e.highestSeenRemote = sid
		e.seenAnyRemote = true
	}

	st.remoteHeadersReceived = true
	if endStream {
		st.remoteEndStreamReceived = true
	}
	e.events.Push(hface.HeadersReceived{StreamID: hface.StreamID(sid), Headers: headers, EndStream: endStream})
	e.recountIfClosed(st)
	return nil
}

func (e *Engine) handleData(sid uint64, payload []byte, endStream bool) error {
	st, ok := e.streams[sid]
	if !ok || !st.remoteHeadersReceived || st.remoteEndStreamReceived {
		return fmt.Errorf("h3: DATA received for stream %d with no open request", sid)
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	if endStream {
		st.remoteEndStreamReceived = true
	}
	e.events.Push(hface.DataReceived{StreamID: hface.StreamID(sid), Data: out, EndStream: endStream})
	e.recountIfClosed(st)
	return nil
}

func (e *Engine) handleReset(sid uint64, code uint64) error {
	st, ok := e.streams[sid]
	if !ok {
		st = &streamState{id: sid}
		e.streams[sid] = st
	}
	st.reset = true
	delete(e.recvBuf, sid)
	e.recountIfClosed(st)
	e.events.Push(hface.StreamResetReceived{StreamID: hface.StreamID(sid), ErrorCode: fromWireErrorCode(code)})
	return nil
}

func (e *Engine) handleGoaway(payload []byte) error {
	id, err := parseGoawayPayload(payload)
	if err != nil {
		return err
	}
	e.goawayReceived = true
	e.events.Push(hface.GoawayReceived{LastStreamID: hface.StreamID(id), ErrorCode: hface.ErrCodeNoError})
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

func (e *Engine) lastProcessedRemoteStreamID() uint64 {
	var max uint64
	seen := false
	for id, st := range e.streams {
		mine := idIsClient(id) == (e.role == hface.RoleClient)
		if !mine && st.remoteHeadersReceived && (!seen || id > max) {
			max = id
			seen = true
		}
	}
	return max
}
