package modbus

import (
	"time"
)

// rtu ADUs have no explicit length field; the frame boundary is derived
// from the function code and, for variable-length PDUs, a byte count
// embedded partway through the payload (§4.4). rtuPDULength implements that
// derivation for both directions so the same table serves the client
// reading a response and the server reading a request.
//
// soFar is the PDU payload collected so far, i.e. everything after the
// function code byte. Once the total payload length can be determined from
// soFar it is returned as total with more == 0. Otherwise total is -1 and
// more is the number of additional bytes the caller must read before
// calling again.
func rtuPDULength(isRequest bool, fc uint8, soFar []byte) (total int, more int, err error) {
	fixed := func(n int) (int, int, error) {
		if len(soFar) < n {
			return -1, n - len(soFar), nil
		}
		return n, 0, nil
	}
	// byteCountPrefixed treats soFar[offset] as a one-byte count of
	// trailing data bytes once soFar reaches that length.
	byteCountPrefixed := func(offset int) (int, int, error) {
		if len(soFar) < offset+1 {
			return -1, offset + 1 - len(soFar), nil
		}
		n := offset + 1 + int(soFar[offset])
		if len(soFar) < n {
			return -1, n - len(soFar), nil
		}
		return n, 0, nil
	}

	switch fc {
	case fcReadCoils, fcReadDiscreteInputs, fcReadHoldingRegisters, fcReadInputRegisters:
		if isRequest {
			return fixed(4)
		}
		return byteCountPrefixed(0)
	case fcWriteSingleCoil, fcWriteSingleRegister:
		return fixed(4)
	case fcReadExceptionStatus:
		if isRequest {
			return fixed(0)
		}
		return fixed(1)
	case fcDiagnostics:
		return fixed(4)
	case fcGetComEventCounter:
		if isRequest {
			return fixed(0)
		}
		return fixed(4)
	case fcGetComEventLog:
		if isRequest {
			return fixed(0)
		}
		return byteCountPrefixed(0)
	case fcWriteMultipleCoils, fcWriteMultipleRegisters:
		if isRequest {
			return byteCountPrefixed(4)
		}
		return fixed(4)
	case fcReportSlaveID:
		if isRequest {
			return fixed(0)
		}
		return byteCountPrefixed(0)
	case fcReadFileRecord, fcWriteFileRecord:
		return byteCountPrefixed(0)
	case fcMaskWriteRegister:
		return fixed(6)
	case fcReadWriteMultipleRegisters:
		if isRequest {
			return byteCountPrefixed(8)
		}
		return byteCountPrefixed(0)
	case fcReadFIFOQueue:
		if isRequest {
			return fixed(2)
		}
		// byte count is a 2-byte field here, and it counts every byte
		// that follows it (the FIFO count field plus the registers).
		if len(soFar) < 2 {
			return -1, 2 - len(soFar), nil
		}
		n := 2 + int(bytesToUint16(BigEndian, soFar[0:2]))
		if len(soFar) < n {
			return -1, n - len(soFar), nil
		}
		return n, 0, nil
	default:
		return -1, 0, ErrIllegalFunction
	}
}

// rtuMinADULength is the smallest possible complete RTU ADU: unit id,
// function code, and the 2-byte CRC (the shortest legal payload, on an
// exception response, is 1 byte, but we only need a lower bound here to
// size the initial read).
const rtuMinADULength = 4

// readRTUFrame assembles one complete RTU ADU from t, verifies its CRC, and
// decodes it into a pdu. isRequest selects which side of the PDU-length
// table to use (the server reads requests, the client reads responses).
func readRTUFrame(t transport, isRequest bool, deadline time.Time) (*pdu, error) {
	probe := func(soFar []byte) (int, bool, error) {
		if len(soFar) < 2 {
			return 2 - len(soFar), false, nil
		}
		fc := soFar[1] &^ exceptionFlag
		isException := !isRequest && soFar[1]&exceptionFlag != 0
		if isException {
			total := 3 // unitID, fc, exceptionCode, then +2 CRC below
			if len(soFar) < total {
				return total - len(soFar), false, nil
			}
			return (total + 2) - len(soFar), len(soFar) == total+2, nil
		}
		payloadSoFar := soFar[2:]
		total, more, err := rtuPDULength(isRequest, fc, payloadSoFar)
		if err != nil {
			return 0, false, err
		}
		if total < 0 {
			return more, false, nil
		}
		need := (2 + total + 2) - len(soFar)
		if need > 0 {
			return need, false, nil
		}
		return 0, true, nil
	}

	buf, err := assembleLengthFramed(t, 2, probe, deadline)
	if err != nil {
		return nil, err
	}
	return decodeRTUFrame(buf)
}

// decodeRTUFrame validates the CRC on a fully-assembled RTU ADU and returns
// the decoded pdu. The ADU must include its trailing 2 CRC bytes.
func decodeRTUFrame(buf []byte) (*pdu, error) {
	if len(buf) < rtuMinADULength {
		return nil, ErrShortFrame
	}

	body := buf[:len(buf)-2]
	var c crc
	c.init()
	c.add(body)
	if !c.isEqual(buf[len(buf)-2], buf[len(buf)-1]) {
		return nil, ErrBadCRC
	}

	fcByte := buf[1]
	p := &pdu{
		unitID:       buf[0],
		functionCode: fcByte &^ exceptionFlag,
	}
	if fcByte&exceptionFlag != 0 {
		p.exceptionCode = buf[2]
	} else {
		p.payload = append([]byte(nil), buf[2:len(buf)-2]...)
	}
	return p, nil
}

// encodeRTUFrame serializes p (a request or a success/exception response)
// into a complete RTU ADU, CRC included.
func encodeRTUFrame(p *pdu) []byte {
	fcByte := p.functionCode
	var body []byte
	if p.exceptionCode != exInvalid {
		fcByte |= exceptionFlag
		body = []byte{p.unitID, fcByte, p.exceptionCode}
	} else {
		body = make([]byte, 0, 2+len(p.payload))
		body = append(body, p.unitID, fcByte)
		body = append(body, p.payload...)
	}

	var c crc
	c.init()
	c.add(body)
	return append(body, c.value()...)
}
