package modbus

import (
	"time"
)

// ioState names the phase of a single frame's assembly, mirroring the state
// machine in §4.7: AwaitingHeader and AwaitingBody are collapsed into one
// read loop here (the "header" for a length-driven codec is simply "enough
// bytes to know the total length"), but the terminal states are kept
// distinct so callers and tests can tell a timeout from a transport error.
type ioState int

const (
	ioAwaitingHeader ioState = iota
	ioAwaitingBody
	ioFrameReady
	ioTimeout
	ioError
)

// pollInterval is how long the framed I/O driver sleeps between HasData
// checks when a transport reports no data yet available.
const pollInterval = 10 * time.Millisecond

// pollRead blocks until it has read exactly n bytes from t, the deadline
// passes, or t reports a hard error. It never busy-loops: every iteration
// that finds no data waits pollInterval before checking again.
func pollRead(t transport, n int, deadline time.Time) ([]byte, ioState, error) {
	buf := make([]byte, 0, n)
	for len(buf) < n {
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil, ioTimeout, ErrRequestTimedOut
		}
		if !t.HasData() {
			time.Sleep(pollInterval)
			continue
		}
		chunk := make([]byte, n-len(buf))
		nr, err := t.Read(chunk)
		if nr < 0 || err != nil {
			return nil, ioError, err
		}
		buf = append(buf, chunk[:nr]...)
	}
	return buf, ioFrameReady, nil
}

// lengthProbe inspects the bytes collected so far (from the start of the
// ADU) and reports either how many more bytes must be read before the next
// call can make progress, or that the frame is now complete.
type lengthProbe func(soFar []byte) (needMore int, complete bool, err error)

// assembleLengthFramed drives a length-driven codec (RTU, TCP) to
// completion: it reads minInitial bytes, then repeatedly consults probe and
// reads whatever it asks for until probe reports the frame complete.
func assembleLengthFramed(t transport, minInitial int, probe lengthProbe, deadline time.Time) ([]byte, error) {
	buf, state, err := pollRead(t, minInitial, deadline)
	if state != ioFrameReady {
		return nil, err
	}

	for {
		needMore, complete, perr := probe(buf)
		if perr != nil {
			return nil, perr
		}
		if complete {
			return buf, nil
		}
		more, state, err := pollRead(t, needMore, deadline)
		if state != ioFrameReady {
			return nil, err
		}
		buf = append(buf, more...)
	}
}

// assembleDelimited drives a delimiter-driven codec (ASCII) to completion:
// bytes are read one at a time until the trailing delimiter sequence has
// been seen, or maxLen is exceeded (a malformed/unterminated frame).
func assembleDelimited(t transport, delimiter []byte, maxLen int, deadline time.Time) ([]byte, error) {
	buf := make([]byte, 0, 64)
	one := make([]byte, 1)
	for {
		if len(buf) > maxLen {
			return nil, ErrShortFrame
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return nil, ErrRequestTimedOut
		}
		if !t.HasData() {
			time.Sleep(pollInterval)
			continue
		}
		nr, err := t.Read(one)
		if nr < 0 || err != nil {
			return nil, err
		}
		if nr == 0 {
			continue
		}
		buf = append(buf, one[0])
		if hasSuffix(buf, delimiter) {
			return buf, nil
		}
	}
}

func hasSuffix(buf []byte, suffix []byte) bool {
	if len(buf) < len(suffix) {
		return false
	}
	tail := buf[len(buf)-len(suffix):]
	for i := range suffix {
		if tail[i] != suffix[i] {
			return false
		}
	}
	return true
}
