package modbus

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"
)

// LoadCertPool loads a PEM certificate store (one or more certificates)
// from a file into a CertPool usable as either a TLS RootCAs or ClientCAs
// pool.
func LoadCertPool(filePath string) (*x509.CertPool, error) {
	buf, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("%v: empty file", filePath)
	}

	cp := x509.NewCertPool()
	if !cp.AppendCertsFromPEM(buf) {
		return nil, fmt.Errorf("%v: no certificate found", filePath)
	}
	return cp, nil
}

// tlsClientConfig builds the tls.Config for a client dialing a TLS-secured
// Modbus TCP server: clientCert authenticates this client (mutual TLS),
// caCertPool validates the server's certificate.
func tlsClientConfig(clientCert tls.Certificate, caCertPool *x509.CertPool, serverName string) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{clientCert},
		RootCAs:      caCertPool,
		ServerName:   serverName,
		MinVersion:   tls.VersionTLS12,
	}
}

// tlsServerConfig builds the tls.Config for a server requiring mutual TLS:
// serverCert identifies the server, caCertPool validates connecting
// clients.
func tlsServerConfig(serverCert tls.Certificate, caCertPool *x509.CertPool) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		ClientCAs:    caCertPool,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		MinVersion:   tls.VersionTLS12,
	}
}

// tlsSockWrapper wraps a TLS connection to work around its handling of
// write timeouts: a timed-out write corrupts a *tls.Conn's internal state
// (https://pkg.go.dev/crypto/tls#Conn.SetWriteDeadline), so every
// subsequent operation returns the same stale timeout error instead of a
// clear "connection closed". Closing the socket on the first write timeout
// turns that into an unambiguous ErrNetClosing on subsequent calls.
type tlsSockWrapper struct {
	sock net.Conn
}

func newTLSSockWrapper(sock net.Conn) *tlsSockWrapper {
	return &tlsSockWrapper{sock: sock}
}

func (tsw *tlsSockWrapper) Read(buf []byte) (int, error) {
	return tsw.sock.Read(buf)
}

func (tsw *tlsSockWrapper) Write(buf []byte) (int, error) {
	n, err := tsw.sock.Write(buf)
	if err != nil && os.IsTimeout(err) {
		tsw.sock.Close()
	}
	return n, err
}

func (tsw *tlsSockWrapper) Close() error {
	return tsw.sock.Close()
}

func (tsw *tlsSockWrapper) SetDeadline(deadline time.Time) error {
	return tsw.sock.SetDeadline(deadline)
}

func (tsw *tlsSockWrapper) SetReadDeadline(deadline time.Time) error {
	return tsw.sock.SetReadDeadline(deadline)
}

func (tsw *tlsSockWrapper) SetWriteDeadline(deadline time.Time) error {
	return tsw.sock.SetWriteDeadline(deadline)
}

func (tsw *tlsSockWrapper) LocalAddr() net.Addr {
	return tsw.sock.LocalAddr()
}

func (tsw *tlsSockWrapper) RemoteAddr() net.Addr {
	return tsw.sock.RemoteAddr()
}

func newTLSTransport(sock net.Conn) *pollableTransport {
	return newSocketTransport(newTLSSockWrapper(sock))
}
