package modbus

import (
	"encoding/hex"
	"time"
)

// ASCII framing wraps the same unit-id/function-code/payload body as RTU,
// but hex-encodes it between a leading colon and a trailing CRLF, with an
// LRC checksum byte (also hex-encoded) in place of RTU's binary CRC.
const (
	asciiStart    = ':'
	asciiCR       = '\r'
	asciiLF       = '\n'
	asciiMinBytes = 1 + 2 + 2 + 2 + 2 // ':' + unitID + fc + lrc + crlf, hex-encoded
	asciiMaxBytes = 513               // ':' + 2*(1 addr byte + 253 PDU max) + lrc + crlf
)

var asciiDelimiter = []byte{asciiCR, asciiLF}

// readASCIIFrame reads one ':'-delimited, CRLF-terminated ASCII frame from
// t, decodes its hex body, verifies the LRC, and returns the pdu.
func readASCIIFrame(t transport, isRequest bool, deadline time.Time) (*pdu, error) {
	frame, err := readASCIIFrameBytes(t, deadline)
	if err != nil {
		return nil, err
	}
	return decodeASCIIFrame(frame, isRequest)
}

// readASCIIFrameBytes scans for the leading ':' (discarding any stray bytes
// ahead of it, as happens after noise on the line) and then reads through
// the trailing CRLF.
func readASCIIFrameBytes(t transport, deadline time.Time) ([]byte, error) {
	one := make([]byte, 1)
	for {
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
		if nr == 1 && one[0] == asciiStart {
			break
		}
	}

	rest, err := assembleDelimited(t, asciiDelimiter, asciiMaxBytes, deadline)
	if err != nil {
		return nil, err
	}
	return append([]byte{asciiStart}, rest...), nil
}

// decodeASCIIFrame validates and decodes a complete ASCII frame, including
// its leading ':' and trailing CRLF.
func decodeASCIIFrame(frame []byte, isRequest bool) (*pdu, error) {
	if len(frame) < asciiMinBytes || frame[0] != asciiStart {
		return nil, ErrShortFrame
	}
	if frame[len(frame)-2] != asciiCR || frame[len(frame)-1] != asciiLF {
		return nil, ErrShortFrame
	}

	hexBody := frame[1 : len(frame)-2]
	if len(hexBody)%2 != 0 {
		return nil, ErrShortFrame
	}
	body := make([]byte, len(hexBody)/2)
	if _, err := hex.Decode(body, hexBody); err != nil {
		return nil, ErrShortFrame
	}
	if len(body) < 3 {
		return nil, ErrShortFrame
	}

	data, wireLRC := body[:len(body)-1], body[len(body)-1]
	var l lrc
	l.init()
	l.add(data)
	if !l.isEqual(wireLRC) {
		return nil, ErrBadLRC
	}

	fcByte := data[1]
	p := &pdu{
		unitID:       data[0],
		functionCode: fcByte &^ exceptionFlag,
	}
	if fcByte&exceptionFlag != 0 {
		if len(data) < 3 {
			return nil, ErrShortFrame
		}
		p.exceptionCode = data[2]
	} else {
		p.payload = append([]byte(nil), data[2:]...)
	}
	_ = isRequest
	return p, nil
}

// encodeASCIIFrame serializes p into a complete ASCII frame: ':', the
// hex-encoded body, the hex-encoded LRC byte, and a trailing CRLF. Hex
// digits are emitted upper-case, as ASCII-mode Modbus devices expect.
func encodeASCIIFrame(p *pdu) []byte {
	fcByte := p.functionCode
	var data []byte
	if p.exceptionCode != exInvalid {
		fcByte |= exceptionFlag
		data = []byte{p.unitID, fcByte, p.exceptionCode}
	} else {
		data = make([]byte, 0, 2+len(p.payload))
		data = append(data, p.unitID, fcByte)
		data = append(data, p.payload...)
	}

	var l lrc
	l.init()
	l.add(data)
	body := append(data, l.value())

	encoded := make([]byte, hex.EncodedLen(len(body)))
	hex.Encode(encoded, body)
	for i, c := range encoded {
		if c >= 'a' && c <= 'f' {
			encoded[i] = c - ('a' - 'A')
		}
	}

	out := make([]byte, 0, 1+len(encoded)+2)
	out = append(out, asciiStart)
	out = append(out, encoded...)
	out = append(out, asciiCR, asciiLF)
	return out
}
