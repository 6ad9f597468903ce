package lifecycle

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
)

// Transport opens the listening socket for a server.
type Transport interface {
	Listen(network, addr string) (net.Listener, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(network, addr string) (net.Listener, error)

// Listen makes TransportFunc satisfy Transport.
func (f TransportFunc) Listen(network, addr string) (net.Listener, error) {
	return f(network, addr)
}

// TCPTransport listens with plain TCP.
type TCPTransport struct{}

// Listen opens a TCP listener on addr.
func (TCPTransport) Listen(network, addr string) (net.Listener, error) {
	return net.Listen(network, addr)
}

// TLSTransport terminates TLS with a certificate pair loaded from disk, or
// with Config when it already carries certificates.
type TLSTransport struct {
	CertFile string
	KeyFile  string
	Config   *tls.Config
}

// Listen opens a TCP listener on addr and wraps it with TLS.
func (t TLSTransport) Listen(network, addr string) (net.Listener, error) {
	cfg, err := t.tlsConfig()
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}
	return tls.NewListener(ln, cfg), nil
}

func (t TLSTransport) tlsConfig() (*tls.Config, error) {
	var cfg *tls.Config
	if t.Config != nil {
		cfg = t.Config.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if len(cfg.Certificates) > 0 || cfg.GetCertificate != nil {
		return cfg, nil
	}
	if t.CertFile == "" || t.KeyFile == "" {
		return nil, errors.New("tls transport requires a certificate and key")
	}
	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load tls key pair: %w", err)
	}
	cfg.Certificates = []tls.Certificate{cert}
	return cfg, nil
}
