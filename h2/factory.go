package h2

import "github.com/hface-go/hface"

// ServerFactory constructs HTTP/2 server-role engines, implementing
// hface.TCPProtocolFactory.
type ServerFactory struct{}

// NewServerFactory returns a factory for server-role engines.
func NewServerFactory() *ServerFactory { return &ServerFactory{} }

func (f *ServerFactory) ALPNProtocol() string { return Version }

func (f *ServerFactory) NewProtocol(serverName string) (hface.TCPProtocol, error) {
	return NewEngine(hface.RoleServer), nil
}

// ClientFactory constructs HTTP/2 client-role engines, implementing
// hface.TCPProtocolFactory.
type ClientFactory struct{}

// NewClientFactory returns a factory for client-role engines.
func NewClientFactory() *ClientFactory { return &ClientFactory{} }

func (f *ClientFactory) ALPNProtocol() string { return Version }

func (f *ClientFactory) NewProtocol(serverName string) (hface.TCPProtocol, error) {
	return NewEngine(hface.RoleClient), nil
}

// Register installs ServerFactory and ClientFactory constructors for "h2"
// into r.
func Register(r *hface.Registry) error {
	if err := r.RegisterTCP(Version, hface.RoleServer, func() (hface.TCPProtocolFactory, error) {
		return NewServerFactory(), nil
	}); err != nil {
		return err
	}
	return r.RegisterTCP(Version, hface.RoleClient, func() (hface.TCPProtocolFactory, error) {
		return NewClientFactory(), nil
	})
}
