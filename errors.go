package hface

import "fmt"

// ErrorCode is a version-neutral abstract error kind. Each engine maps it
// to and from its wire representation via its ErrorCodes table; callers
// never see a version's concrete wire code.
type ErrorCode int

const (
	// ErrCodeNoError indicates graceful completion; no error occurred.
	ErrCodeNoError ErrorCode = iota
	// ErrCodeProtocolError indicates the peer violated the wire protocol.
	ErrCodeProtocolError
	// ErrCodeInternalError indicates an unexpected failure in this engine.
	ErrCodeInternalError
	// ErrCodeCancel indicates a stream was deliberately aborted by its
	// owner (e.g. HTTP/2's CANCEL, used by the S3 RST_STREAM scenario).
	ErrCodeCancel
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeNoError:
		return "no_error"
	case ErrCodeProtocolError:
		return "protocol_error"
	case ErrCodeInternalError:
		return "internal_error"
	case ErrCodeCancel:
		return "cancel"
	default:
		return fmt.Sprintf("error_code(%d)", int(c))
	}
}

// ErrorCodes is the minimum set of wire error codes a version must be able
// to express, in version-neutral form. Engines expose their concrete table
// via Protocol.ErrorCodes; the fields here are the version-neutral kinds,
// not wire values.
type ErrorCodes struct {
	NoError       ErrorCode
	ProtocolError ErrorCode
	InternalError ErrorCode
}

// DefaultErrorCodes is the identity mapping used by engines that don't need
// to translate kinds (the kinds above already double as their own table).
var DefaultErrorCodes = ErrorCodes{
	NoError:       ErrCodeNoError,
	ProtocolError: ErrCodeProtocolError,
	InternalError: ErrCodeInternalError,
}

// Kind enumerates the error taxonomy of §7: what went wrong and who's at
// fault. It lets callers errors.As into a *Error and branch on Kind rather
// than string-matching messages.
type Kind int

const (
	// KindProtocolMisuse means the caller violated the API contract (e.g.
	// submitting data before headers). Raised synchronously; connection
	// state is unchanged.
	KindProtocolMisuse Kind = iota
	// KindProtocolError means the peer sent something illegal on the wire.
	// The engines surface it as a ConnectionTerminated event, not a
	// returned error; ALPNFactory.Select returns it directly when the
	// negotiated ALPN token matches no child factory.
	KindProtocolError
	// KindNotAvailable means AvailableStreamID was called when no stream
	// can currently be allocated.
	KindNotAvailable
	// KindTransportError means the transport was lost from under the
	// engine (connection_lost).
	KindTransportError
	// KindInternalError means the engine reached an unexpected state.
	KindInternalError
)

func (k Kind) String() string {
	switch k {
	case KindProtocolMisuse:
		return "protocol misuse"
	case KindProtocolError:
		return "protocol error"
	case KindNotAvailable:
		return "not available"
	case KindTransportError:
		return "transport error"
	case KindInternalError:
		return "internal error"
	default:
		return "unknown error kind"
	}
}

// Error is the concrete error type returned by Protocol submit methods and
// AvailableStreamID. Its Kind selects which of §7's categories applies.
type Error struct {
	Kind    Kind
	Message string
	Err     error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error of the given kind with a formatted message.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an *Error of the given kind wrapping cause.
func WrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	if ae, ok := err.(*Error); ok {
		return ae.Kind == kind
	}
	return false
}
