package modbus

import (
	"testing"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(WithServerUnitID(1))
	if err != nil {
		t.Fatalf("unexpected error creating server: %v", err)
	}
	return s
}

func TestProcessReadHoldingRegistersRoundTrip(t *testing.T) {
	s := newTestServer(t)
	s.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 10})
	s.SetHoldingRegister(3, 0xbeef)

	req := &pdu{
		unitID:       1,
		functionCode: fcReadHoldingRegisters,
		payload:      append(uint16ToBytes(BigEndian, 3), uint16ToBytes(BigEndian, 1)...),
	}
	res := s.Process(req)

	if res.exceptionCode != exInvalid {
		t.Fatalf("unexpected exception 0x%02x", res.exceptionCode)
	}
	if res.payload[0] != 2 {
		t.Errorf("expected byte count 2, got %v", res.payload[0])
	}
	if v := bytesToUint16(BigEndian, res.payload[1:3]); v != 0xbeef {
		t.Errorf("expected 0xbeef, got 0x%04x", v)
	}
}

func TestProcessWriteMultipleRegistersTCPThenRead(t *testing.T) {
	s := newTestServer(t)
	s.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 10})

	writeReq := &pdu{
		transactionID: 42,
		unitID:        1,
		functionCode:  fcWriteMultipleRegisters,
		payload: append(
			append(uint16ToBytes(BigEndian, 0), uint16ToBytes(BigEndian, 3)...),
			append([]byte{6}, uint16sToBytes(BigEndian, []uint16{1, 2, 3})...)...,
		),
	}
	writeRes := s.Process(writeReq)
	if writeRes.exceptionCode != exInvalid {
		t.Fatalf("unexpected exception on write: 0x%02x", writeRes.exceptionCode)
	}
	if writeRes.transactionID != 42 {
		t.Errorf("expected transaction id to be preserved, got %v", writeRes.transactionID)
	}

	for addr, want := range map[uint16]uint16{0: 1, 1: 2, 2: 3} {
		if v, _ := s.GetHoldingRegister(addr); v != want {
			t.Errorf("register %d: expected %v, got %v", addr, want, v)
		}
	}
}

func TestProcessMaskWriteRegister(t *testing.T) {
	s := newTestServer(t)
	s.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 1})
	s.SetHoldingRegister(0, 0x1234)

	req := &pdu{
		unitID:       1,
		functionCode: fcMaskWriteRegister,
		payload: append(
			uint16ToBytes(BigEndian, 0),
			append(uint16ToBytes(BigEndian, 0xff00), uint16ToBytes(BigEndian, 0x0056)...)...,
		),
	}
	res := s.Process(req)
	if res.exceptionCode != exInvalid {
		t.Fatalf("unexpected exception 0x%02x", res.exceptionCode)
	}

	v, _ := s.GetHoldingRegister(0)
	if v != 0x1256 {
		t.Errorf("expected (0x1234 & 0xff00) | 0x0056 == 0x1256, got 0x%04x", v)
	}
}

func TestProcessReadCoilsPacking(t *testing.T) {
	s := newTestServer(t)
	s.AddCoils(AddressSpan{StartAddress: 0, Count: 8})
	for _, addr := range []uint16{0, 2, 4, 6} {
		s.SetCoil(addr, true)
	}

	req := &pdu{
		unitID:       1,
		functionCode: fcReadCoils,
		payload:      append(uint16ToBytes(BigEndian, 0), uint16ToBytes(BigEndian, 8)...),
	}
	res := s.Process(req)
	if res.exceptionCode != exInvalid {
		t.Fatalf("unexpected exception 0x%02x", res.exceptionCode)
	}
	if res.payload[0] != 1 {
		t.Errorf("expected byte count 1, got %v", res.payload[0])
	}
	if res.payload[1] != 0x55 {
		t.Errorf("expected packed byte 0x55, got 0x%02x", res.payload[1])
	}
}

func TestProcessReadFIFOQueue(t *testing.T) {
	s := newTestServer(t)
	s.SetFIFOQueue(10, []uint16{1, 2, 3, 4})

	req := &pdu{
		unitID:       1,
		functionCode: fcReadFIFOQueue,
		payload:      uint16ToBytes(BigEndian, 10),
	}
	res := s.Process(req)
	if res.exceptionCode != exInvalid {
		t.Fatalf("unexpected exception 0x%02x", res.exceptionCode)
	}

	byteCount := bytesToUint16(BigEndian, res.payload[0:2])
	fifoCount := bytesToUint16(BigEndian, res.payload[2:4])
	if byteCount != 10 {
		t.Errorf("expected byte count 10, got %v", byteCount)
	}
	if fifoCount != 4 {
		t.Errorf("expected fifo count 4, got %v", fifoCount)
	}
}

func TestProcessReadUnregisteredAddressException(t *testing.T) {
	s := newTestServer(t)
	s.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 5})

	req := &pdu{
		unitID:       1,
		functionCode: fcReadHoldingRegisters,
		payload:      append(uint16ToBytes(BigEndian, 100), uint16ToBytes(BigEndian, 1)...),
	}
	res := s.Process(req)
	if res.exceptionCode != exIllegalDataAddress {
		t.Errorf("expected exIllegalDataAddress (0x02), got 0x%02x", res.exceptionCode)
	}
	if res.functionCode != fcReadHoldingRegisters {
		t.Errorf("functionCode on an exception pdu must stay bare, got 0x%02x", res.functionCode)
	}

	wire := encodeTCPFrame(res)
	if wire[mbapHeaderLength] != (fcReadHoldingRegisters | exceptionFlag) {
		t.Errorf("expected the exception flag OR-ed onto the wire byte, got 0x%02x", wire[mbapHeaderLength])
	}
	if wire[mbapHeaderLength+1] != exIllegalDataAddress {
		t.Errorf("expected exception byte 0x02 on the wire, got 0x%02x", wire[mbapHeaderLength+1])
	}
}

func TestProcessIncomingBroadcastAppliesButDoesNotRespond(t *testing.T) {
	s := newTestServer(t)
	s.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 1})

	req := &pdu{
		unitID:       0, // broadcast
		functionCode: fcWriteSingleRegister,
		payload:      append(uint16ToBytes(BigEndian, 0), uint16ToBytes(BigEndian, 0xcafe)...),
	}
	res := s.processIncoming(req)
	if res != nil {
		t.Errorf("expected no response to a broadcast write, got %v", res)
	}

	v, _ := s.GetHoldingRegister(0)
	if v != 0xcafe {
		t.Errorf("expected the broadcast write to still apply, got 0x%04x", v)
	}
}

func TestProcessIncomingBroadcastReadIsRejected(t *testing.T) {
	s := newTestServer(t)
	s.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 1})

	req := &pdu{
		unitID:       0,
		functionCode: fcReadHoldingRegisters,
		payload:      append(uint16ToBytes(BigEndian, 0), uint16ToBytes(BigEndian, 1)...),
	}
	if res := s.processIncoming(req); res != nil {
		t.Errorf("expected a broadcast read to be silently dropped, got %v", res)
	}
}

func TestProcessIncomingWrongUnitIDIgnored(t *testing.T) {
	s := newTestServer(t)
	s.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 1})

	req := &pdu{
		unitID:       2, // server is unit 1
		functionCode: fcReadHoldingRegisters,
		payload:      append(uint16ToBytes(BigEndian, 0), uint16ToBytes(BigEndian, 1)...),
	}
	if res := s.processIncoming(req); res != nil {
		t.Errorf("expected a request to a different unit id to be ignored, got %v", res)
	}
}

func TestProcessFloatOverlayRead(t *testing.T) {
	s := newTestServer(t)
	if err := s.AddFloatOverlay(FloatRange{StartRegister: 100, RegisterCount: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.SetFloat(0, 3.5)

	req := &pdu{
		unitID:       1,
		functionCode: fcReadHoldingRegisters,
		payload:      append(uint16ToBytes(BigEndian, 100), uint16ToBytes(BigEndian, 2)...),
	}
	res := s.Process(req)
	if res.exceptionCode != exInvalid {
		t.Fatalf("unexpected exception 0x%02x", res.exceptionCode)
	}
	got := bytesToFloat32(BigEndian, HighWordFirst, res.payload[1:5])
	if got != 3.5 {
		t.Errorf("expected 3.5, got %v", got)
	}
}

func TestProcessFloatOverlayPartialOverlapRejected(t *testing.T) {
	s := newTestServer(t)
	s.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 200})
	if err := s.AddFloatOverlay(FloatRange{StartRegister: 100, RegisterCount: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := &pdu{
		unitID:       1,
		functionCode: fcReadHoldingRegisters,
		payload:      append(uint16ToBytes(BigEndian, 99), uint16ToBytes(BigEndian, 2)...),
	}
	res := s.Process(req)
	if res.exceptionCode != exIllegalDataAddress {
		t.Errorf("expected exIllegalDataAddress for a partially-overlapping read, got 0x%02x", res.exceptionCode)
	}
}

func TestProcessFloatOverlayMisalignedReadRejected(t *testing.T) {
	s := newTestServer(t)
	if err := s.AddFloatOverlay(FloatRange{StartRegister: 0, RegisterCount: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.SetFloat(0, 1.5)
	s.SetFloat(1, 2.5)

	// addr=1 falls inside [0,4) but not on a float-cell boundary
	req := &pdu{
		unitID:       1,
		functionCode: fcReadHoldingRegisters,
		payload:      append(uint16ToBytes(BigEndian, 1), uint16ToBytes(BigEndian, 2)...),
	}
	res := s.Process(req)
	if res.exceptionCode != exIllegalDataAddress {
		t.Errorf("expected exIllegalDataAddress for a misaligned float read, got 0x%02x", res.exceptionCode)
	}
}

func TestProcessFileRecordReadRoundTrip(t *testing.T) {
	s := newTestServer(t)
	s.SetFileRecord(4, 1, []uint16{0x1111, 0x2222, 0x3333})

	sub := append(uint16ToBytes(BigEndian, 4), uint16ToBytes(BigEndian, 1)...)
	sub = append(sub, uint16ToBytes(BigEndian, 3)...)
	req := &pdu{
		unitID:       1,
		functionCode: fcReadFileRecord,
		payload:      append([]byte{byte(len(sub))}, sub...),
	}
	res := s.Process(req)
	if res.exceptionCode != exInvalid {
		t.Fatalf("unexpected exception 0x%02x", res.exceptionCode)
	}

	// resp_len(1), then {0x06, data_len(1), file(2), rec(2), data(6)}
	if int(res.payload[0]) != len(res.payload)-1 {
		t.Fatalf("resp_len header does not match the actual sub-record bytes")
	}
	if res.payload[1] != fileRecordReferenceType {
		t.Errorf("expected the reference-type byte (0x06) first, got 0x%02x", res.payload[1])
	}
	if res.payload[2] != 6 {
		t.Errorf("expected data_len 6 (3 registers), got %v", res.payload[2])
	}
	fileNum := bytesToUint16(BigEndian, res.payload[3:5])
	recNum := bytesToUint16(BigEndian, res.payload[5:7])
	if fileNum != 4 || recNum != 1 {
		t.Errorf("expected file=4 rec=1, got file=%v rec=%v", fileNum, recNum)
	}
	values := bytesToUint16s(BigEndian, res.payload[7:13])
	want := []uint16{0x1111, 0x2222, 0x3333}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("value %d: expected 0x%04x, got 0x%04x", i, want[i], values[i])
		}
	}
}
