package h2

// streamState tracks one stream's half-closed bookkeeping. A stream is
// fully closed, and no longer counted against concurrency, once both
// directions have ended or it has been reset.
type streamState struct {
	id uint32

	reserved bool // allocated via AvailableStreamID but headers not yet submitted

	localHeadersSent   bool
	localEndStreamSent bool

	remoteHeadersReceived   bool
	remoteEndStreamReceived bool

	reset bool

	countedClosed bool // true once this stream has already been subtracted from localOpen
}

func (s *streamState) closed() bool {
	if s.reset {
		return true
	}
	return s.localEndStreamSent && s.remoteEndStreamReceived
}

// idIsClient reports whether id belongs to the client's half of the
// stream-ID space (odd for clients, even for servers, per RFC 9113 §5.1.1).
func idIsClient(id uint32) bool {
	return id%2 == 1
}
