package modbus

import (
	"time"
)

// MBAP header layout: transaction id (2), protocol id (2, always 0x0000),
// length (2, byte count of everything from the unit id onward), unit id (1).
const (
	mbapHeaderLength = 7
	mbapMaxFrameLen  = 260
)

// readTCPFrame reads one MBAP-framed ADU from t and decodes it into a pdu.
// Unlike RTU, the frame length is carried explicitly in the header, so no
// function-code-aware length table is needed.
func readTCPFrame(t transport, deadline time.Time) (*pdu, error) {
	probe := func(soFar []byte) (int, bool, error) {
		if len(soFar) < mbapHeaderLength {
			return mbapHeaderLength - len(soFar), false, nil
		}
		length := int(bytesToUint16(BigEndian, soFar[4:6]))
		// A length of 0 or 1 leaves no room for a function code; we
		// tolerate it as a malformed-but-complete frame rather than
		// blocking forever waiting for bytes that were never coming
		// (§9 open question: zero-length PDU).
		if length < 2 {
			return 0, true, nil
		}
		total := mbapHeaderLength - 1 + length
		if total > mbapMaxFrameLen {
			return 0, false, ErrProtocolError
		}
		need := total - len(soFar)
		if need > 0 {
			return need, false, nil
		}
		return 0, true, nil
	}

	buf, err := assembleLengthFramed(t, mbapHeaderLength, probe, deadline)
	if err != nil {
		return nil, err
	}
	return decodeTCPFrame(buf)
}

// decodeTCPFrame decodes a fully-assembled MBAP frame (header plus PDU)
// into a pdu. transactionID is preserved so the client can match requests
// to responses (§4.6).
func decodeTCPFrame(buf []byte) (*pdu, error) {
	if len(buf) < mbapHeaderLength {
		return nil, ErrShortFrame
	}
	protocolID := bytesToUint16(BigEndian, buf[2:4])
	if protocolID != 0x0000 {
		return nil, ErrUnknownProtocolID
	}
	length := int(bytesToUint16(BigEndian, buf[4:6]))
	if length < 2 {
		return nil, ErrShortFrame
	}

	transactionID := bytesToUint16(BigEndian, buf[0:2])
	unitID := buf[6]
	pduBytes := buf[mbapHeaderLength:]
	if len(pduBytes) < 1 {
		return nil, ErrShortFrame
	}

	fcByte := pduBytes[0]
	p := &pdu{
		transactionID: transactionID,
		unitID:        unitID,
		functionCode:  fcByte &^ exceptionFlag,
	}
	if fcByte&exceptionFlag != 0 {
		if len(pduBytes) < 2 {
			return nil, ErrShortFrame
		}
		p.exceptionCode = pduBytes[1]
	} else {
		p.payload = append([]byte(nil), pduBytes[1:]...)
	}
	return p, nil
}

// encodeTCPFrame serializes p into a complete MBAP frame.
func encodeTCPFrame(p *pdu) []byte {
	fcByte := p.functionCode
	var pduBytes []byte
	if p.exceptionCode != exInvalid {
		fcByte |= exceptionFlag
		pduBytes = []byte{fcByte, p.exceptionCode}
	} else {
		pduBytes = make([]byte, 0, 1+len(p.payload))
		pduBytes = append(pduBytes, fcByte)
		pduBytes = append(pduBytes, p.payload...)
	}

	length := uint16(1 + len(pduBytes))
	out := make([]byte, 0, mbapHeaderLength+len(pduBytes))
	out = append(out, uint16ToBytes(BigEndian, p.transactionID)...)
	out = append(out, uint16ToBytes(BigEndian, 0x0000)...)
	out = append(out, uint16ToBytes(BigEndian, length)...)
	out = append(out, p.unitID)
	out = append(out, pduBytes...)
	return out
}
