package modbus

import (
	"net"
	"time"
)

// socketReadWriter adapts a net.Conn (TCP or TLS) to rawReadWriter with a
// short per-call read deadline, so Read returns (0, nil) on an idle
// connection instead of blocking, the same masking trick the serial
// adapter uses.
type socketReadWriter struct {
	conn net.Conn
}

const socketReadTimeout = 10 * time.Millisecond

func newSocketReadWriter(conn net.Conn) *socketReadWriter {
	return &socketReadWriter{conn: conn}
}

func newSocketTransport(conn net.Conn) *pollableTransport {
	return newPollableTransport(newSocketReadWriter(conn), nil)
}

func (s *socketReadWriter) Read(buf []byte) (int, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(socketReadTimeout)); err != nil {
		return 0, err
	}
	n, err := s.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, nil
		}
		return n, err
	}
	return n, nil
}

func (s *socketReadWriter) Write(buf []byte) (int, error) {
	return s.conn.Write(buf)
}

func (s *socketReadWriter) Close() error {
	return s.conn.Close()
}
