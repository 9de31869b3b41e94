package modbus

import "time"

// writableBroadcastFCs is the set of function codes legal on a broadcast
// (unit id 0) request: the Write* family plus MaskWriteRegister and
// WriteFileRecord (§3, §8
// property 8). ReadWriteMultipleRegisters is excluded even though it
// writes, since its response carries data a broadcast has nowhere to
// deliver.
var writableBroadcastFCs = map[uint8]bool{
	fcWriteSingleCoil:        true,
	fcWriteSingleRegister:    true,
	fcWriteMultipleCoils:     true,
	fcWriteMultipleRegisters: true,
	fcWriteFileRecord:        true,
	fcMaskWriteRegister:      true,
}

func exceptionResponse(req *pdu, exCode uint8) *pdu {
	return &pdu{
		transactionID: req.transactionID,
		unitID:        req.unitID,
		functionCode:  req.functionCode,
		exceptionCode: exCode,
	}
}

func okResponse(req *pdu, payload []byte) *pdu {
	return &pdu{
		transactionID: req.transactionID,
		unitID:        req.unitID,
		functionCode:  req.functionCode,
		exceptionCode: exInvalid,
		payload:       payload,
	}
}

// ProcessIncomingFrame reads one frame from t, applies unit-id/broadcast
// filtering, dispatches it, and writes back the response (unless the
// request was broadcast or not addressed to this server). It returns true
// iff a request was read and dispatched, regardless of whether a response
// was sent (§4.5).
func (s *Server) ProcessIncomingFrame(t transport, codec FrameCodec, deadline time.Time) bool {
	req, err := readFrame(t, codec, true, deadline)
	if err != nil {
		return false
	}

	res := s.processIncoming(req)
	if res == nil {
		// nil comes back for a broadcast write (dispatched, never answered),
		// a rejected broadcast non-write, or another unit's request
		return req.unitID == 0 && writableBroadcastFCs[req.functionCode]
	}

	if err := writeFrame(t, codec, res); err != nil {
		s.logger.Warningf("failed to write response: %v", err)
	}
	return true
}

// Poll is a single non-blocking turn: if t currently has no data available,
// it returns false immediately instead of waiting out a full deadline.
func (s *Server) Poll(t transport, codec FrameCodec) bool {
	if !t.HasData() {
		return false
	}
	return s.ProcessIncomingFrame(t, codec, time.Now().Add(s.effectiveTimeout()))
}

func (s *Server) effectiveTimeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 30 * time.Second
}

// processIncoming applies §4.5's addressing rules around the pure
// dispatcher: requests not addressed to this unit (and not broadcast) are
// ignored outright; broadcast reads are rejected outright; broadcast
// writes are applied but never answered.
func (s *Server) processIncoming(req *pdu) *pdu {
	broadcast := req.unitID == 0
	if !broadcast && req.unitID != s.unitID {
		return nil
	}
	if broadcast && !writableBroadcastFCs[req.functionCode] {
		return nil
	}

	res := s.Process(req)
	if broadcast {
		return nil
	}
	return res
}

// Process is the pure per-function-code dispatcher (§4.5): it always
// increments the communication-event and message counters and appends one
// event-log entry, then builds and returns the response, independent of
// any addressing/broadcast concerns (those live in processIncoming).
func (s *Server) Process(req *pdu) *pdu {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.eventCounter++
	s.messageCounter++
	s.log.record(req.functionCode, s.eventCounter)

	switch req.functionCode {
	case fcReadCoils:
		return s.handleReadBits(req, s.coils)
	case fcReadDiscreteInputs:
		return s.handleReadBits(req, s.discrete)
	case fcReadHoldingRegisters:
		return s.handleReadRegisters(req, s.holding, true)
	case fcReadInputRegisters:
		return s.handleReadRegisters(req, s.input, false)
	case fcWriteSingleCoil:
		return s.handleWriteSingleCoil(req)
	case fcWriteSingleRegister:
		return s.handleWriteSingleRegister(req)
	case fcReadExceptionStatus:
		return okResponse(req, []byte{s.exceptionStatus})
	case fcDiagnostics:
		return s.handleDiagnostics(req)
	case fcGetComEventCounter:
		status := uint16(0x0000)
		if s.listenOnly {
			status = 0xffff
		}
		payload := append(uint16ToBytes(BigEndian, status), uint16ToBytes(BigEndian, s.eventCounter)...)
		return okResponse(req, payload)
	case fcGetComEventLog:
		return s.handleGetComEventLog(req)
	case fcWriteMultipleCoils:
		return s.handleWriteMultipleCoils(req)
	case fcWriteMultipleRegisters:
		return s.handleWriteMultipleRegisters(req)
	case fcReportSlaveID:
		return s.handleReportSlaveID(req)
	case fcReadFileRecord:
		return s.handleReadFileRecord(req)
	case fcWriteFileRecord:
		return s.handleWriteFileRecord(req)
	case fcMaskWriteRegister:
		return s.handleMaskWriteRegister(req)
	case fcReadWriteMultipleRegisters:
		return s.handleReadWriteMultipleRegisters(req)
	case fcReadFIFOQueue:
		return s.handleReadFIFOQueue(req)
	default:
		return exceptionResponse(req, exIllegalFunction)
	}
}

func decodeAddrCount(payload []byte) (addr uint16, count uint16, ok bool) {
	if len(payload) != 4 {
		return 0, 0, false
	}
	return bytesToUint16(BigEndian, payload[0:2]), bytesToUint16(BigEndian, payload[2:4]), true
}

func spanOverflows(addr uint16, count uint16) bool {
	return count == 0 || uint32(addr)+uint32(count) > 0x10000
}

func (s *Server) handleReadBits(req *pdu, m *coilMap) *pdu {
	addr, count, ok := decodeAddrCount(req.payload)
	if !ok {
		return exceptionResponse(req, exIllegalDataValue)
	}
	if spanOverflows(addr, count) || count > 2000 {
		return exceptionResponse(req, exIllegalDataValue)
	}

	values := make([]bool, count)
	for i := uint32(0); i < uint32(count); i++ {
		v, present := m.get(addr + uint16(i))
		if !present {
			return exceptionResponse(req, exIllegalDataAddress)
		}
		values[i] = v
	}

	byteCount := (int(count) + 7) / 8
	payload := append([]byte{byte(byteCount)}, encodeBools(values)...)
	return okResponse(req, payload)
}

func (s *Server) handleReadRegisters(req *pdu, m *registerMap, holdingClass bool) *pdu {
	addr, count, ok := decodeAddrCount(req.payload)
	if !ok {
		return exceptionResponse(req, exIllegalDataValue)
	}
	if spanOverflows(addr, count) || count > 125 {
		return exceptionResponse(req, exIllegalDataValue)
	}

	if holdingClass && s.floatRange != nil {
		if s.floatRange.contains(addr, count) {
			if !s.floatRange.aligned(addr) || count%2 != 0 {
				return exceptionResponse(req, exIllegalDataAddress)
			}
			return s.readFloatsAsRegisters(req, addr, count)
		}
		if s.floatRange.overlaps(addr, count) {
			return exceptionResponse(req, exIllegalDataAddress)
		}
	}

	values := make([]uint16, count)
	for i := uint32(0); i < uint32(count); i++ {
		v, present := m.get(addr + uint16(i))
		if !present {
			return exceptionResponse(req, exIllegalDataAddress)
		}
		values[i] = v
	}

	payload := append([]byte{byte(count * 2)}, uint16sToBytes(s.wireFormat.ByteOrder, values)...)
	return okResponse(req, payload)
}

func (s *Server) readFloatsAsRegisters(req *pdu, addr uint16, count uint16) *pdu {
	start := int(addr-s.floatRange.StartRegister) / 2
	floats := s.floatValues[start : start+int(count)/2]

	var data []byte
	for _, f := range floats {
		data = append(data, float32ToBytes(s.wireFormat.ByteOrder, s.wireFormat.WordOrder, f)...)
	}
	payload := append([]byte{byte(count * 2)}, data...)
	return okResponse(req, payload)
}

func (s *Server) handleWriteSingleCoil(req *pdu) *pdu {
	if len(req.payload) < 4 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	addr := bytesToUint16(BigEndian, req.payload[0:2])
	wireVal := bytesToUint16(BigEndian, req.payload[2:4])
	if wireVal != coilOn && wireVal != coilOff {
		return exceptionResponse(req, exIllegalDataValue)
	}

	if !s.coils.set(addr, wireVal == coilOn) {
		return exceptionResponse(req, exIllegalDataAddress)
	}

	return okResponse(req, append([]byte{}, req.payload[0:4]...))
}

func (s *Server) handleWriteSingleRegister(req *pdu) *pdu {
	if len(req.payload) < 4 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	addr := bytesToUint16(BigEndian, req.payload[0:2])
	value := bytesToUint16(BigEndian, req.payload[2:4])

	if s.floatRange != nil && s.floatRange.overlaps(addr, 1) {
		return exceptionResponse(req, exIllegalDataAddress)
	}
	if !s.holding.set(addr, value) {
		return exceptionResponse(req, exIllegalDataAddress)
	}

	return okResponse(req, append([]byte{}, req.payload[0:4]...))
}

func (s *Server) handleWriteMultipleCoils(req *pdu) *pdu {
	if len(req.payload) < 5 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	addr := bytesToUint16(BigEndian, req.payload[0:2])
	count := bytesToUint16(BigEndian, req.payload[2:4])
	byteCount := req.payload[4]

	if spanOverflows(addr, count) || count > 0x7b0 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	expected := (int(count) + 7) / 8
	if int(byteCount) != expected || len(req.payload)-5 != expected {
		return exceptionResponse(req, exIllegalDataValue)
	}

	for i := uint32(0); i < uint32(count); i++ {
		if !s.coils.isSpanRegistered(addr+uint16(i), 1) {
			return exceptionResponse(req, exIllegalDataAddress)
		}
	}

	values := decodeBools(count, req.payload[5:])
	for i, v := range values {
		s.coils.set(addr+uint16(i), v)
	}

	payload := append(uint16ToBytes(BigEndian, addr), uint16ToBytes(BigEndian, count)...)
	return okResponse(req, payload)
}

func (s *Server) handleWriteMultipleRegisters(req *pdu) *pdu {
	if len(req.payload) < 5 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	addr := bytesToUint16(BigEndian, req.payload[0:2])
	count := bytesToUint16(BigEndian, req.payload[2:4])
	byteCount := req.payload[4]

	if spanOverflows(addr, count) || count > 0x7b {
		return exceptionResponse(req, exIllegalDataValue)
	}
	expected := int(count) * 2
	if int(byteCount) != expected || len(req.payload)-5 != expected {
		return exceptionResponse(req, exIllegalDataValue)
	}

	if s.floatRange != nil && s.floatRange.overlaps(addr, count) {
		if !s.floatRange.contains(addr, count) || !s.floatRange.aligned(addr) || count%2 != 0 {
			return exceptionResponse(req, exIllegalDataAddress)
		}
		start := int(addr-s.floatRange.StartRegister) / 2
		floats := bytesToFloat32s(s.wireFormat.ByteOrder, s.wireFormat.WordOrder, req.payload[5:])
		copy(s.floatValues[start:start+len(floats)], floats)
	} else {
		for i := uint32(0); i < uint32(count); i++ {
			if !s.holding.isSpanRegistered(addr+uint16(i), 1) {
				return exceptionResponse(req, exIllegalDataAddress)
			}
		}
		values := bytesToUint16s(s.wireFormat.ByteOrder, req.payload[5:])
		for i, v := range values {
			s.holding.set(addr+uint16(i), v)
		}
	}

	payload := append(uint16ToBytes(BigEndian, addr), uint16ToBytes(BigEndian, count)...)
	return okResponse(req, payload)
}

func (s *Server) handleMaskWriteRegister(req *pdu) *pdu {
	if len(req.payload) != 6 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	addr := bytesToUint16(BigEndian, req.payload[0:2])
	andMask := bytesToUint16(BigEndian, req.payload[2:4])
	orMask := bytesToUint16(BigEndian, req.payload[4:6])

	current, present := s.holding.get(addr)
	if !present {
		return exceptionResponse(req, exIllegalDataAddress)
	}
	s.holding.set(addr, (current&andMask)|orMask)

	return okResponse(req, append([]byte{}, req.payload...))
}

func (s *Server) handleReadWriteMultipleRegisters(req *pdu) *pdu {
	if len(req.payload) < 9 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	readAddr := bytesToUint16(BigEndian, req.payload[0:2])
	readCount := bytesToUint16(BigEndian, req.payload[2:4])
	writeAddr := bytesToUint16(BigEndian, req.payload[4:6])
	writeCount := bytesToUint16(BigEndian, req.payload[6:8])
	writeByteCount := req.payload[8]

	if spanOverflows(readAddr, readCount) || readCount > 125 ||
		spanOverflows(writeAddr, writeCount) || writeCount > 0x79 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	if int(writeByteCount) != int(writeCount)*2 || len(req.payload)-9 != int(writeByteCount) {
		return exceptionResponse(req, exIllegalDataValue)
	}

	// write first
	if s.floatRange != nil && s.floatRange.overlaps(writeAddr, writeCount) {
		if !s.floatRange.contains(writeAddr, writeCount) || !s.floatRange.aligned(writeAddr) || writeCount%2 != 0 {
			return exceptionResponse(req, exIllegalDataAddress)
		}
		start := int(writeAddr-s.floatRange.StartRegister) / 2
		floats := bytesToFloat32s(s.wireFormat.ByteOrder, s.wireFormat.WordOrder, req.payload[9:])
		copy(s.floatValues[start:start+len(floats)], floats)
	} else {
		for i := uint32(0); i < uint32(writeCount); i++ {
			if !s.holding.isSpanRegistered(writeAddr+uint16(i), 1) {
				return exceptionResponse(req, exIllegalDataAddress)
			}
		}
		values := bytesToUint16s(s.wireFormat.ByteOrder, req.payload[9:])
		for i, v := range values {
			s.holding.set(writeAddr+uint16(i), v)
		}
	}

	// then read
	if s.floatRange != nil && s.floatRange.contains(readAddr, readCount) && s.floatRange.aligned(readAddr) && readCount%2 == 0 {
		start := int(readAddr-s.floatRange.StartRegister) / 2
		floats := s.floatValues[start : start+int(readCount)/2]
		var data []byte
		for _, f := range floats {
			data = append(data, float32ToBytes(s.wireFormat.ByteOrder, s.wireFormat.WordOrder, f)...)
		}
		payload := append([]byte{byte(readCount * 2)}, data...)
		return okResponse(req, payload)
	}
	if s.floatRange != nil && s.floatRange.overlaps(readAddr, readCount) {
		return exceptionResponse(req, exIllegalDataAddress)
	}

	values := make([]uint16, readCount)
	for i := uint32(0); i < uint32(readCount); i++ {
		v, present := s.holding.get(readAddr + uint16(i))
		if !present {
			return exceptionResponse(req, exIllegalDataAddress)
		}
		values[i] = v
	}
	payload := append([]byte{byte(readCount * 2)}, uint16sToBytes(s.wireFormat.ByteOrder, values)...)
	return okResponse(req, payload)
}

func (s *Server) handleReadFIFOQueue(req *pdu) *pdu {
	if len(req.payload) != 2 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	addr := bytesToUint16(BigEndian, req.payload[0:2])

	values, present := s.fifos[addr]
	if !present || len(values) == 0 {
		return exceptionResponse(req, exIllegalDataAddress)
	}
	if len(values) > fifoMaxCount {
		return exceptionResponse(req, exIllegalDataValue)
	}

	byteCount := uint16(2 + 2*len(values))
	payload := append(uint16ToBytes(BigEndian, byteCount), uint16ToBytes(BigEndian, uint16(len(values)))...)
	payload = append(payload, uint16sToBytes(s.wireFormat.ByteOrder, values)...)
	return okResponse(req, payload)
}

func (s *Server) handleDiagnostics(req *pdu) *pdu {
	if len(req.payload) < 2 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	// every sub-function is answered as 0x0000 (Return Query Data) would
	// be: the request payload is echoed verbatim.
	return okResponse(req, append([]byte{}, req.payload...))
}

func (s *Server) handleGetComEventLog(req *pdu) *pdu {
	events := s.log.wireBytes()
	status := uint16(0x0000)
	if s.listenOnly {
		status = 0xffff
	}

	data := make([]byte, 0, 5+len(events))
	data = append(data, uint16ToBytes(BigEndian, status)...)
	data = append(data, uint16ToBytes(BigEndian, s.eventCounter)...)
	data = append(data, uint16ToBytes(BigEndian, s.messageCounter)...)
	data = append(data, events...)

	payload := append([]byte{byte(len(data))}, data...)
	return okResponse(req, payload)
}

func (s *Server) handleReportSlaveID(req *pdu) *pdu {
	data := []byte{s.unitID, 0xff}
	payload := append([]byte{byte(len(data))}, data...)
	return okResponse(req, payload)
}

// fileSubRequestLen is the wire size of one FC 20 request sub-request:
// file(2), record(2), length(2) (§4.4).
const fileSubRequestLen = 6

func (s *Server) handleReadFileRecord(req *pdu) *pdu {
	if len(req.payload) < 1 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	byteCount := int(req.payload[0])
	if byteCount == 0 || byteCount%fileSubRequestLen != 0 || len(req.payload)-1 != byteCount {
		return exceptionResponse(req, exIllegalDataValue)
	}

	var respData []byte
	for off := 1; off < len(req.payload); off += fileSubRequestLen {
		sub := req.payload[off : off+fileSubRequestLen]
		fileNum := bytesToUint16(BigEndian, sub[0:2])
		recNum := bytesToUint16(BigEndian, sub[2:4])
		length := bytesToUint16(BigEndian, sub[4:6])

		records, present := s.files[fileNum]
		if !present {
			return exceptionResponse(req, exIllegalDataAddress)
		}
		values, present := records[recNum]
		if !present || len(values) < int(length) {
			return exceptionResponse(req, exIllegalDataAddress)
		}
		values = values[:length]

		dataLen := len(values) * 2 // register data length, not counting the header fields
		respData = append(respData, fileRecordReferenceType, byte(dataLen))
		respData = append(respData, uint16ToBytes(BigEndian, fileNum)...)
		respData = append(respData, uint16ToBytes(BigEndian, recNum)...)
		respData = append(respData, uint16sToBytes(s.wireFormat.ByteOrder, values)...)
	}

	payload := append([]byte{byte(len(respData))}, respData...)
	return okResponse(req, payload)
}

func (s *Server) handleWriteFileRecord(req *pdu) *pdu {
	if len(req.payload) < 1 {
		return exceptionResponse(req, exIllegalDataValue)
	}
	byteCount := int(req.payload[0])
	if byteCount == 0 || len(req.payload)-1 != byteCount {
		return exceptionResponse(req, exIllegalDataValue)
	}

	off := 1
	for off < len(req.payload) {
		if off+7 > len(req.payload) {
			return exceptionResponse(req, exIllegalDataValue)
		}
		refType := req.payload[off]
		if refType != fileRecordReferenceType {
			return exceptionResponse(req, exIllegalDataValue)
		}
		fileNum := bytesToUint16(BigEndian, req.payload[off+1:off+3])
		recNum := bytesToUint16(BigEndian, req.payload[off+3:off+5])
		length := bytesToUint16(BigEndian, req.payload[off+5:off+7])
		dataStart := off + 7
		dataEnd := dataStart + int(length)*2
		if dataEnd > len(req.payload) {
			return exceptionResponse(req, exIllegalDataValue)
		}

		values := bytesToUint16s(s.wireFormat.ByteOrder, req.payload[dataStart:dataEnd])
		if s.files[fileNum] == nil {
			s.files[fileNum] = make(map[uint16][]uint16)
		}
		s.files[fileNum][recNum] = values

		off = dataEnd
	}

	return okResponse(req, append([]byte{}, req.payload...))
}
