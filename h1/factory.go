package h1

import "github.com/hface-go/hface"

// ServerFactory constructs HTTP/1.1 server-role engines, implementing
// hface.TCPProtocolFactory.
type ServerFactory struct {
	tlsActive bool
}

// NewServerFactory returns a factory for server-role engines. tlsActive
// should be true when connections produced by the listener this factory
// serves are terminated TLS (so :scheme is synthesized as "https").
func NewServerFactory(tlsActive bool) *ServerFactory {
	return &ServerFactory{tlsActive: tlsActive}
}

func (f *ServerFactory) ALPNProtocol() string { return Version }

func (f *ServerFactory) NewProtocol(serverName string) (hface.TCPProtocol, error) {
	return NewEngine(hface.RoleServer, f.tlsActive), nil
}

// ClientFactory constructs HTTP/1.1 client-role engines, implementing
// hface.TCPProtocolFactory.
type ClientFactory struct {
	tlsActive bool
}

// NewClientFactory returns a factory for client-role engines.
func NewClientFactory(tlsActive bool) *ClientFactory {
	return &ClientFactory{tlsActive: tlsActive}
}

func (f *ClientFactory) ALPNProtocol() string { return Version }

func (f *ClientFactory) NewProtocol(serverName string) (hface.TCPProtocol, error) {
	return NewEngine(hface.RoleClient, f.tlsActive), nil
}

// Register installs ServerFactory and ClientFactory constructors for
// "http/1.1" into r.
func Register(r *hface.Registry, tlsActive bool) error {
	if err := r.RegisterTCP(Version, hface.RoleServer, func() (hface.TCPProtocolFactory, error) {
		return NewServerFactory(tlsActive), nil
	}); err != nil {
		return err
	}
	return r.RegisterTCP(Version, hface.RoleClient, func() (hface.TCPProtocolFactory, error) {
		return NewClientFactory(tlsActive), nil
	})
}
