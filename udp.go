package modbus

import (
	"net"
	"time"
)

// udpReadWriter adapts a *net.UDPConn to rawReadWriter, letting the frame
// codecs consume it byte by byte even though UDP delivers whole datagrams:
// each underlying Read pulls one datagram and hands out its bytes one
// request at a time, buffering the remainder for the next call (grounded
// on the pack's UDP-as-byte-stream wrapper, adapted to the short-timeout
// masking convention the socket and serial adapters use instead of a
// one-shot SetDeadline per frame).
type udpReadWriter struct {
	sock          *net.UDPConn
	rxbuf         []byte
	leftoverCount int
}

func newUDPReadWriter(conn net.Conn) *udpReadWriter {
	return &udpReadWriter{
		sock:  conn.(*net.UDPConn),
		rxbuf: make([]byte, mbapMaxFrameLen),
	}
}

func newUDPTransport(conn net.Conn) *pollableTransport {
	return newPollableTransport(newUDPReadWriter(conn), nil)
}

func (u *udpReadWriter) Read(buf []byte) (int, error) {
	if u.leftoverCount > 0 {
		copied := copy(buf, u.rxbuf[0:u.leftoverCount])
		if u.leftoverCount > copied {
			copy(u.rxbuf, u.rxbuf[copied:u.leftoverCount])
		}
		u.leftoverCount -= copied
		return copied, nil
	}

	if err := u.sock.SetReadDeadline(time.Now().Add(socketReadTimeout)); err != nil {
		return 0, err
	}
	rlen, err := u.sock.Read(u.rxbuf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, nil
		}
		return 0, err
	}

	copied := copy(buf, u.rxbuf[0:rlen])
	if rlen > copied {
		copy(u.rxbuf, u.rxbuf[copied:rlen])
	}
	u.leftoverCount = rlen - copied
	return copied, nil
}

func (u *udpReadWriter) Write(buf []byte) (int, error) {
	return u.sock.Write(buf)
}

func (u *udpReadWriter) Close() error {
	return u.sock.Close()
}
