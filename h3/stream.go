package h3

// streamState tracks one request stream's half-closed bookkeeping, the
// same shape h2's streamState uses for its stream map.
type streamState struct {
	id uint64

	reserved bool // allocated via AvailableStreamID but headers not yet submitted

	localHeadersSent   bool
	localEndStreamSent bool

	remoteHeadersReceived   bool
	remoteEndStreamReceived bool

	reset bool

	countedClosed bool
}

func (s *streamState) closed() bool {
	if s.reset {
		return true
	}
	return s.localEndStreamSent && s.remoteEndStreamReceived
}

// idIsClient reports whether id belongs to a client-initiated
// bidirectional QUIC stream (id mod 4 == 0, per RFC 9000 §2.1) as opposed
// to a server-initiated one (id mod 4 == 1). Unidirectional streams (mod 4
// == 2 or 3) never appear here: control/QPACK streams are handled
// internally by the datagram envelope, not surfaced as request streams.
func idIsClient(id uint64) bool {
	return id%4 == 0
}
