package hface

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ALPNFactory is an ALPN-multiplexing TCPProtocolFactory: given an ordered
// list of child factories, it advertises the union of their ALPN tokens and
// instantiates whichever child matches the token negotiated during the TLS
// handshake. This is the "ALPN multiplexing factory" of §4.8, letting a
// listener accept HTTP/1.1 and HTTP/2 on the same endpoint.
type ALPNFactory struct {
	children []TCPProtocolFactory
}

// NewALPNFactory builds an ALPNFactory over children, preserving their
// given order as ALPN preference order. It fails if two children declare
// the same ALPN token or if no children are given, aggregating every such
// error into one, the way docker-compose/multierror wraps
// hashicorp/go-multierror to report all configuration problems at once
// instead of just the first one found.
func NewALPNFactory(children ...TCPProtocolFactory) (*ALPNFactory, error) {
	var errs *multierror.Error
	if len(children) == 0 {
		errs = multierror.Append(errs, fmt.Errorf("hface: ALPNFactory requires at least one child factory"))
	}
	seen := make(map[string]bool, len(children))
	for _, c := range children {
		token := c.ALPNProtocol()
		if seen[token] {
			errs = multierror.Append(errs, fmt.Errorf("hface: duplicate ALPN token %q", token))
			continue
		}
		seen[token] = true
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &ALPNFactory{children: append([]TCPProtocolFactory(nil), children...)}, nil
}

// ALPNProtocols returns the union of child ALPN tokens, in preference
// order, for advertising during the TLS handshake (tls.Config.NextProtos).
func (f *ALPNFactory) ALPNProtocols() []string {
	tokens := make([]string, len(f.children))
	for i, c := range f.children {
		tokens[i] = c.ALPNProtocol()
	}
	return tokens
}

// Select returns the child factory matching the negotiated ALPN token. If
// negotiated is empty (ALPN wasn't negotiated), it falls back to the first
// child (a pragmatic HTTP/1.1 default, assuming children are ordered
// least-capable-first or the caller otherwise put the fallback first). If
// negotiated is non-empty but matches no child, it fails with
// KindProtocolError: the peer negotiated something this factory never
// offered, which should not be able to happen with a spec-conformant TLS
// stack.
func (f *ALPNFactory) Select(negotiated string) (TCPProtocolFactory, error) {
	if negotiated == "" {
		return f.children[0], nil
	}
	for _, c := range f.children {
		if c.ALPNProtocol() == negotiated {
			return c, nil
		}
	}
	return nil, NewError(KindProtocolError, "ALPN negotiated unknown protocol %q", negotiated)
}

// ALPNProtocol implements TCPProtocolFactory. It has no single meaningful
// value for a multiplexing factory (the actual protocol is only known once
// negotiation completes), so it returns the empty string; callers that
// need the advertised set should use ALPNProtocols instead.
func (f *ALPNFactory) ALPNProtocol() string { return "" }

// NewProtocol implements TCPProtocolFactory by falling back to the first
// child, matching Select's no-ALPN behavior. Callers driving a real TLS
// handshake should call Select with the negotiated protocol instead, which
// is the documented way to use an ALPNFactory; NewProtocol exists only so
// ALPNFactory itself satisfies TCPProtocolFactory for uniform storage in a
// Registry.
func (f *ALPNFactory) NewProtocol(serverName string) (TCPProtocol, error) {
	return f.children[0].NewProtocol(serverName)
}
