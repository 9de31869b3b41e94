package modbus

import (
	"errors"
	"testing"
	"time"
)

// newTestClientServerPair wires a live Client to a live Server over an
// in-memory net.Pipe, with no dialing or real network/serial link
// involved. The server runs its request loop in a background goroutine
// for the duration of the test.
func newTestClientServerPair(t *testing.T, timeout time.Duration) (*Client, *Server) {
	t.Helper()

	clientSide, serverSide := newMemTransportPair()

	srv, err := NewServer(WithServerUnitID(1))
	if err != nil {
		t.Fatalf("unexpected error creating server: %v", err)
	}
	go srv.Serve(serverSide, FrameCodecTCP, "mem")
	t.Cleanup(func() { clientSide.Close() })

	cl := &Client{
		conf:       Configuration{Timeout: timeout},
		unitID:     1,
		wireFormat: DefaultWireFormatOptions(),
		logger:     newLogger("modbus-client-test"),
		transport:  clientSide,
		codec:      FrameCodecTCP,
	}
	return cl, srv
}

func TestClientReadWriteHoldingRegistersRoundTrip(t *testing.T) {
	cl, srv := newTestClientServerPair(t, time.Second)
	srv.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 10})

	if err := cl.WriteRegisters(0, []uint16{10, 20, 30}); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	values, err := cl.ReadHoldingRegisters(0, 3)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	want := []uint16{10, 20, 30}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("register %d: expected %v, got %v", i, want[i], values[i])
		}
	}
}

func TestClientReadCoilsRoundTrip(t *testing.T) {
	cl, srv := newTestClientServerPair(t, time.Second)
	srv.AddCoils(AddressSpan{StartAddress: 0, Count: 8})

	if err := cl.WriteCoils(0, []bool{true, false, true, false, true, false, true, false}); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	values, err := cl.ReadCoils(0, 8)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	want := []bool{true, false, true, false, true, false, true, false}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("coil %d: expected %v, got %v", i, want[i], values[i])
		}
	}
}

func TestClientMaskWriteRegister(t *testing.T) {
	cl, srv := newTestClientServerPair(t, time.Second)
	srv.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 1})
	srv.SetHoldingRegister(0, 0x1234)

	if err := cl.MaskWriteRegister(0, 0xff00, 0x0056); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, _ := srv.GetHoldingRegister(0)
	if v != 0x1256 {
		t.Errorf("expected 0x1256, got 0x%04x", v)
	}
}

func TestClientExceptionSurfacesAsSentinelError(t *testing.T) {
	cl, srv := newTestClientServerPair(t, time.Second)
	srv.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 5})

	_, err := cl.ReadHoldingRegisters(100, 1)
	if !errors.Is(err, ErrIllegalDataAddress) {
		t.Errorf("expected ErrIllegalDataAddress, got %v", err)
	}
}

func TestClientRequestTimesOutAgainstUnresponsiveServer(t *testing.T) {
	clientSide, serverSide := newMemTransportPair()
	defer clientSide.Close()
	defer serverSide.Close()

	// the peer reads requests but never answers them
	go func() {
		buf := make([]byte, 64)
		for {
			if _, err := serverSide.Read(buf); err != nil {
				return
			}
		}
	}()

	cl := &Client{
		conf:       Configuration{Timeout: 50 * time.Millisecond},
		unitID:     1,
		wireFormat: DefaultWireFormatOptions(),
		logger:     newLogger("modbus-client-test"),
		transport:  clientSide,
		codec:      FrameCodecTCP,
	}

	_, err := cl.ReadHoldingRegisters(0, 1)
	if !errors.Is(err, ErrRequestTimedOut) {
		t.Errorf("expected ErrRequestTimedOut, got %v", err)
	}
}

func TestClientFloatOverlayRoundTrip(t *testing.T) {
	cl, srv := newTestClientServerPair(t, time.Second)
	if err := srv.AddFloatOverlay(FloatRange{StartRegister: 100, RegisterCount: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := cl.WriteFloat32s(100, []float32{1.5, -2.25}); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	values, err := cl.ReadFloat32s(100, 2)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if values[0] != 1.5 || values[1] != -2.25 {
		t.Errorf("expected [1.5, -2.25], got %v", values)
	}
}

func TestClientReadWriteMultipleRegisters(t *testing.T) {
	cl, srv := newTestClientServerPair(t, time.Second)
	srv.AddHoldingRegisters(AddressSpan{StartAddress: 0, Count: 10})
	srv.SetHoldingRegister(0, 111)

	read, err := cl.ReadWriteMultipleRegisters(0, 1, 1, []uint16{222})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if read[0] != 111 {
		t.Errorf("expected register 0 to read back 111, got %v", read[0])
	}
	if v, _ := srv.GetHoldingRegister(1); v != 222 {
		t.Errorf("expected register 1 to have been written to 222, got %v", v)
	}
}

func TestClientReadFIFOQueue(t *testing.T) {
	cl, srv := newTestClientServerPair(t, time.Second)
	srv.SetFIFOQueue(10, []uint16{1, 2, 3, 4})

	values, err := cl.ReadFIFOQueue(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 4 {
		t.Fatalf("expected 4 values, got %v", len(values))
	}
	for i, want := range []uint16{1, 2, 3, 4} {
		if values[i] != want {
			t.Errorf("value %d: expected %v, got %v", i, want, values[i])
		}
	}
}

func TestClientReadFileRecordRoundTrip(t *testing.T) {
	cl, srv := newTestClientServerPair(t, time.Second)
	srv.SetFileRecord(4, 1, []uint16{0x1111, 0x2222, 0x3333})
	srv.SetFileRecord(4, 2, []uint16{0xaaaa})

	results, err := cl.ReadFileRecord(
		[]FileRecordRequest{{FileNumber: 4, RecordNumber: 1}, {FileNumber: 4, RecordNumber: 2}},
		[]uint16{3, 1},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 sub-records, got %v", len(results))
	}

	want0 := []uint16{0x1111, 0x2222, 0x3333}
	if len(results[0]) != len(want0) {
		t.Fatalf("expected %v registers in the first sub-record, got %v", len(want0), len(results[0]))
	}
	for i := range want0 {
		if results[0][i] != want0[i] {
			t.Errorf("sub-record 0, value %d: expected 0x%04x, got 0x%04x", i, want0[i], results[0][i])
		}
	}
	if len(results[1]) != 1 || results[1][0] != 0xaaaa {
		t.Errorf("expected second sub-record [0xaaaa], got %v", results[1])
	}
}

func TestClientFloatOverlayMisalignedReadRejectedLocally(t *testing.T) {
	cl, srv := newTestClientServerPair(t, time.Second)
	if err := srv.AddFloatOverlay(FloatRange{StartRegister: 100, RegisterCount: 4}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fr := FloatRange{StartRegister: 100, RegisterCount: 4}
	cl.SetWireFormat(WireFormatOptions{
		ByteOrder:           BigEndian,
		WordOrder:           HighWordFirst,
		FloatCountSemantics: CountIsFloatCount,
		FloatRange:          &fr,
	})

	if _, err := cl.ReadFloat32s(101, 1); !errors.Is(err, ErrUnexpectedParameters) {
		t.Errorf("expected ErrUnexpectedParameters for a misaligned float read, got %v", err)
	}
	if err := cl.WriteFloat32s(101, []float32{1.0}); !errors.Is(err, ErrUnexpectedParameters) {
		t.Errorf("expected ErrUnexpectedParameters for a misaligned float write, got %v", err)
	}
}
