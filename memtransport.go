package modbus

import "net"

// newMemTransportPair returns two connected, in-process transports backed
// by net.Pipe, for exercising a Client against a Server without any real
// network or serial link (used by the test suite and available to callers
// who want to embed a Modbus server in a single process).
func newMemTransportPair() (client *pollableTransport, server *pollableTransport) {
	c, s := net.Pipe()
	return newSocketTransport(c), newSocketTransport(s)
}
