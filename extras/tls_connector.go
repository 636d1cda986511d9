package extras

import (
	"crypto/tls"
	"net"

	"github.com/nimbushttp/nimbus"
)

// ListenTLSTCP is ListenTCP with the accepted connections wrapped in TLS
// before being handed to the core.
func ListenTLSTCP(addr string, tlsConfig *tls.Config, server *nimbus.Server, cfg TCPConnectorConfig) (*TCPConnector, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return NewTCPConnector(tls.NewListener(ln, tlsConfig), server, cfg), nil
}

// ListenTLSUnix is ListenUnix with the accepted connections wrapped in
// TLS.
func ListenTLSUnix(path string, tlsConfig *tls.Config, server *nimbus.Server, cfg TCPConnectorConfig) (*UnixConnector, error) {
	c, err := ListenUnix(path, server, cfg)
	if err != nil {
		return nil, err
	}

	c.ln = tls.NewListener(c.ln, tlsConfig)

	return c, nil
}
