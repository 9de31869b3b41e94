package modbus

import "time"

// FrameCodec selects which ADU framing a transport carries, so the same
// readFrame/writeFrame pair can drive RTU, ASCII or TCP links.
type FrameCodec uint

const (
	FrameCodecRTU FrameCodec = iota
	FrameCodecASCII
	FrameCodecTCP
)

// readFrame reads and decodes one complete ADU from t using codec's
// framing. isRequest selects which side of the RTU length table to use
// (TCP/ASCII frames carry an explicit or delimited length and don't need
// it).
func readFrame(t transport, codec FrameCodec, isRequest bool, deadline time.Time) (*pdu, error) {
	switch codec {
	case FrameCodecRTU:
		return readRTUFrame(t, isRequest, deadline)
	case FrameCodecASCII:
		return readASCIIFrame(t, isRequest, deadline)
	case FrameCodecTCP:
		return readTCPFrame(t, deadline)
	default:
		return nil, ErrConfigurationError
	}
}

// writeFrame encodes p per codec's framing and writes it to t.
func writeFrame(t transport, codec FrameCodec, p *pdu) error {
	var buf []byte
	switch codec {
	case FrameCodecRTU:
		buf = encodeRTUFrame(p)
	case FrameCodecASCII:
		buf = encodeASCIIFrame(p)
	case FrameCodecTCP:
		buf = encodeTCPFrame(p)
	default:
		return ErrConfigurationError
	}

	n, err := t.Write(buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return ErrShortFrame
	}
	return t.Flush()
}
