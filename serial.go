package modbus

import (
	"time"

	"go.bug.st/serial"
)

// Parity/stop-bit selectors for serial port configuration, mirrored onto
// go.bug.st/serial's own enums so callers never need to import it directly.
const (
	PARITY_NONE uint = iota
	PARITY_EVEN
	PARITY_ODD
)

const (
	STOPBITS_ONE uint = iota
	STOPBITS_ONE_POINT_FIVE
	STOPBITS_TWO
)

// serialPortConfig is the subset of RTU/ASCII dial parameters that come
// from the Configuration passed to NewClient.
type serialPortConfig struct {
	Device   string
	Speed    uint
	DataBits uint
	Parity   uint
	StopBits uint
}

// serialReadWriter adapts go.bug.st/serial's Port to rawReadWriter: the
// port is opened with a short read timeout so Read returns (0, nil)
// promptly instead of blocking indefinitely, letting pollableTransport
// synthesize HasData on top of it.
type serialReadWriter struct {
	port serial.Port
}

const serialReadTimeout = 10 * time.Millisecond

func openSerialPort(conf *serialPortConfig) (*pollableTransport, error) {
	var parity serial.Parity
	switch conf.Parity {
	case PARITY_EVEN:
		parity = serial.EvenParity
	case PARITY_ODD:
		parity = serial.OddParity
	default:
		parity = serial.NoParity
	}

	var stopBits serial.StopBits
	switch conf.StopBits {
	case STOPBITS_ONE_POINT_FIVE:
		stopBits = serial.OnePointFiveStopBits
	case STOPBITS_TWO:
		stopBits = serial.TwoStopBits
	default:
		stopBits = serial.OneStopBit
	}

	port, err := serial.Open(conf.Device, &serial.Mode{
		BaudRate: int(conf.Speed),
		DataBits: int(conf.DataBits),
		Parity:   parity,
		StopBits: stopBits,
	})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(serialReadTimeout); err != nil {
		port.Close()
		return nil, err
	}

	rw := &serialReadWriter{port: port}
	return newPollableTransport(rw, nil), nil
}

func (s *serialReadWriter) Read(buf []byte) (int, error) {
	n, err := s.port.Read(buf)
	if n == 0 && err != nil {
		// go.bug.st/serial reports a read timeout as io.EOF-free
		// zero-byte read with no error on most platforms; on the
		// rare backend that surfaces an error for a plain timeout
		// we mask it the same way the RTU serial port historically
		// has, since the caller treats "no data yet" and "timed out
		// waiting" identically.
		return 0, nil
	}
	return n, err
}

func (s *serialReadWriter) Write(buf []byte) (int, error) {
	return s.port.Write(buf)
}

func (s *serialReadWriter) Close() error {
	return s.port.Close()
}
