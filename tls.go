package hface

import (
	"crypto/tls"
	"crypto/x509"
)

// There is no third-party TLS stack in the retrieval pack that serves as a
// plain configuration *record* (refraction-networking/utls, pulled in by
// luoxk-restys, is a fingerprint-evasion dialer, not a cert/ALPN config
// carrier) so ServerTLSConfig/ClientTLSConfig are built directly on
// crypto/tls and crypto/x509, matching how every engine in the pack
// ultimately configures its listener or dialer.

// ServerTLSConfig is the server-role TLS configuration record of §3/§4.7.
type ServerTLSConfig struct {
	// Certificates is the server's certificate chain and private key.
	Certificates []tls.Certificate
	// ClientAuth controls whether and how client certificates are
	// required.
	ClientAuth tls.ClientAuthType
	// ClientCAs validates client certificates when ClientAuth requires
	// them.
	ClientCAs *x509.CertPool
	// ALPNProtocols is the ALPN protocol list this server advertises, in
	// preference order.
	ALPNProtocols []string
}

// StdTLSConfig builds a *tls.Config suitable for a net/tls listener from
// this record.
func (c *ServerTLSConfig) StdTLSConfig() *tls.Config {
	return &tls.Config{
		Certificates: c.Certificates,
		ClientAuth:   c.ClientAuth,
		ClientCAs:    c.ClientCAs,
		NextProtos:   append([]string(nil), c.ALPNProtocols...),
	}
}

// ClientTLSConfig is the client-role TLS configuration record of §3/§4.7.
type ClientTLSConfig struct {
	// RootCAs is the trust store used to verify the server certificate.
	// If nil, the host's system trust store is used.
	RootCAs *x509.CertPool
	// ServerName overrides the SNI value sent during the handshake (and
	// the name verified against the server certificate); if empty it is
	// derived from the dial address.
	ServerName string
	// ALPNProtocols is the ALPN protocol list this client offers, in
	// preference order.
	ALPNProtocols []string
	// Certificates is an optional client certificate presented if the
	// server requests one.
	Certificates []tls.Certificate
	// InsecureSkipVerify disables server certificate verification. Never
	// set true in production; exists for test fixtures.
	InsecureSkipVerify bool
}

// StdTLSConfig builds a *tls.Config suitable for a net/tls dialer from this
// record.
func (c *ClientTLSConfig) StdTLSConfig() *tls.Config {
	return &tls.Config{
		RootCAs:            c.RootCAs,
		ServerName:         c.ServerName,
		NextProtos:         append([]string(nil), c.ALPNProtocols...),
		Certificates:       c.Certificates,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
}
