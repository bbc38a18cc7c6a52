package h3

import (
	"net"

	"github.com/hface-go/hface"
)

// ServerFactory constructs HTTP/3 server-role engines, implementing
// hface.QUICServerProtocolFactory.
type ServerFactory struct{}

// NewServerFactory returns a factory for server-role engines.
func NewServerFactory() *ServerFactory { return &ServerFactory{} }

func (f *ServerFactory) ALPNProtocol() string { return Version }

func (f *ServerFactory) NewServerProtocol(peer net.Addr) (hface.QUICProtocol, error) {
	e := NewEngine(hface.RoleServer)
	e.SetRemoteAddr(peer)
	return e, nil
}

// ClientFactory constructs HTTP/3 client-role engines, implementing
// hface.QUICClientProtocolFactory.
type ClientFactory struct{}

// NewClientFactory returns a factory for client-role engines.
func NewClientFactory() *ClientFactory { return &ClientFactory{} }

func (f *ClientFactory) ALPNProtocol() string { return Version }

func (f *ClientFactory) NewClientProtocol(remote net.Addr) (hface.QUICProtocol, error) {
	e := NewEngine(hface.RoleClient)
	e.SetRemoteAddr(remote)
	return e, nil
}

// Register installs ServerFactory and ClientFactory constructors for "h3"
// into r, the same explicit-registration call h2.Register and
// h1.Register make for their own version tags (§4.9, §9 "runtime factory
// registry → explicit registration").
func Register(r *hface.Registry) error {
	if err := r.RegisterQUICServer(Version, func() (hface.QUICServerProtocolFactory, error) {
		return NewServerFactory(), nil
	}); err != nil {
		return err
	}
	return r.RegisterQUICClient(Version, func() (hface.QUICClientProtocolFactory, error) {
		return NewClientFactory(), nil
	})
}
