package modbus

import (
	"testing"
)

func TestUint16ToBytes(t *testing.T) {
	out := uint16ToBytes(BigEndian, 0x4321)
	if len(out) != 2 {
		t.Errorf("expected 2 bytes, got %v", len(out))
	}
	if out[0] != 0x43 || out[1] != 0x21 {
		t.Errorf("expected {0x43, 0x21}, got {0x%02x, 0x%02x}", out[0], out[1])
	}

	out = uint16ToBytes(LittleEndian, 0x4321)
	if out[0] != 0x21 || out[1] != 0x43 {
		t.Errorf("expected {0x21, 0x43}, got {0x%02x, 0x%02x}", out[0], out[1])
	}
}

func TestUint16sToBytes(t *testing.T) {
	out := uint16sToBytes(BigEndian, []uint16{0x4321, 0x8765, 0xcba9})
	if len(out) != 6 {
		t.Errorf("expected 6 bytes, got %v", len(out))
	}
	want := []byte{0x43, 0x21, 0x87, 0x65, 0xcb, 0xa9}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("byte %d: expected 0x%02x, got 0x%02x", i, want[i], out[i])
		}
	}
}

func TestBytesToUint16(t *testing.T) {
	if v := bytesToUint16(BigEndian, []byte{0x43, 0x21}); v != 0x4321 {
		t.Errorf("expected 0x4321, got 0x%04x", v)
	}
	if v := bytesToUint16(LittleEndian, []byte{0x43, 0x21}); v != 0x2143 {
		t.Errorf("expected 0x2143, got 0x%04x", v)
	}
}

func TestBytesToUint16s(t *testing.T) {
	results := bytesToUint16s(BigEndian, []byte{0x11, 0x22, 0x33, 0x44})
	if len(results) != 2 || results[0] != 0x1122 || results[1] != 0x3344 {
		t.Errorf("unexpected results: %v", results)
	}
}

func TestSwapWords(t *testing.T) {
	in := []byte{0x87, 0x65, 0x43, 0x21}

	// big endian + high word first is the native layout: no swap
	out := swapWords(BigEndian, HighWordFirst, in)
	if out[0] != 0x87 || out[1] != 0x65 || out[2] != 0x43 || out[3] != 0x21 {
		t.Errorf("expected untouched {0x87, 0x65, 0x43, 0x21}, got %v", out)
	}

	// big endian + low word first swaps the two registers
	out = swapWords(BigEndian, LowWordFirst, in)
	if out[0] != 0x43 || out[1] != 0x21 || out[2] != 0x87 || out[3] != 0x65 {
		t.Errorf("expected {0x43, 0x21, 0x87, 0x65}, got %v", out)
	}
}

func TestUint32ToBytesAndBack(t *testing.T) {
	for _, tc := range []struct {
		bo ByteOrder
		wo WordOrder
	}{
		{BigEndian, HighWordFirst},
		{BigEndian, LowWordFirst},
		{LittleEndian, HighWordFirst},
		{LittleEndian, LowWordFirst},
	} {
		out := uint32ToBytes(tc.bo, tc.wo, 0x87654321)
		if len(out) != 4 {
			t.Errorf("expected 4 bytes, got %v", len(out))
		}
		back := bytesToUint32(tc.bo, tc.wo, out)
		if back != 0x87654321 {
			t.Errorf("bo=%v wo=%v: roundtrip mismatch, got 0x%08x", tc.bo, tc.wo, back)
		}
	}
}

func TestUint32ToBytesBigEndianHighWordFirst(t *testing.T) {
	out := uint32ToBytes(BigEndian, HighWordFirst, 0x87654321)
	if out[0] != 0x87 || out[1] != 0x65 || out[2] != 0x43 || out[3] != 0x21 {
		t.Errorf("expected {0x87, 0x65, 0x43, 0x21}, got {0x%02x, 0x%02x, 0x%02x, 0x%02x}",
			out[0], out[1], out[2], out[3])
	}
}

func TestBytesToUint32s(t *testing.T) {
	results := bytesToUint32s(BigEndian, HighWordFirst, []byte{
		0x87, 0x65, 0x43, 0x21,
		0x00, 0x11, 0x22, 0x33,
	})
	if len(results) != 2 {
		t.Errorf("expected 2 values, got %v", len(results))
	}
	if results[0] != 0x87654321 || results[1] != 0x00112233 {
		t.Errorf("unexpected results: %08x %08x", results[0], results[1])
	}
}

func TestFloat32RoundTrip(t *testing.T) {
	for _, tc := range []struct {
		bo ByteOrder
		wo WordOrder
	}{
		{BigEndian, HighWordFirst},
		{BigEndian, LowWordFirst},
		{LittleEndian, HighWordFirst},
		{LittleEndian, LowWordFirst},
	} {
		out := float32ToBytes(tc.bo, tc.wo, 1.234)
		back := bytesToFloat32(tc.bo, tc.wo, out)
		if back != float32(1.234) {
			t.Errorf("bo=%v wo=%v: roundtrip mismatch, got %v", tc.bo, tc.wo, back)
		}
	}
}

func TestFloat32ToBytesBigEndianHighWordFirst(t *testing.T) {
	out := float32ToBytes(BigEndian, HighWordFirst, 1.234)
	if out[0] != 0x3f || out[1] != 0x9d || out[2] != 0xf3 || out[3] != 0xb6 {
		t.Errorf("expected {0x3f, 0x9d, 0xf3, 0xb6}, got {0x%02x, 0x%02x, 0x%02x, 0x%02x}",
			out[0], out[1], out[2], out[3])
	}
}

func TestUint64RoundTrip(t *testing.T) {
	for _, tc := range []struct {
		bo ByteOrder
		wo WordOrder
	}{
		{BigEndian, HighWordFirst},
		{BigEndian, LowWordFirst},
		{LittleEndian, HighWordFirst},
		{LittleEndian, LowWordFirst},
	} {
		out := uint64ToBytes(tc.bo, tc.wo, 0x0fedcba987654321)
		if len(out) != 8 {
			t.Errorf("expected 8 bytes, got %v", len(out))
		}
		back := bytesToUint64(tc.bo, tc.wo, out)
		if back != 0x0fedcba987654321 {
			t.Errorf("bo=%v wo=%v: roundtrip mismatch, got 0x%016x", tc.bo, tc.wo, back)
		}
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	out := float64ToBytes(BigEndian, HighWordFirst, 1.2345678)
	if len(out) != 8 {
		t.Errorf("expected 8 bytes, got %v", len(out))
	}
	back := bytesToFloat64(BigEndian, HighWordFirst, out)
	if back != 1.2345678 {
		t.Errorf("expected 1.2345678, got %v", back)
	}
}

func TestDecodeBools(t *testing.T) {
	results := decodeBools(1, []byte{0x01})
	if len(results) != 1 || results[0] != true {
		t.Errorf("expected [true], got %v", results)
	}

	results = decodeBools(9, []byte{0x75, 0x03})
	want := []bool{true, false, true, false, true, true, true, false, true}
	if len(results) != len(want) {
		t.Fatalf("expected %d values, got %v", len(want), len(results))
	}
	for i, b := range want {
		if b != results[i] {
			t.Errorf("expected %v at %v, got %v", b, i, results[i])
		}
	}
}

func TestEncodeBools(t *testing.T) {
	results := encodeBools([]bool{false, true, false, true})
	if len(results) != 1 || results[0] != 0x0a {
		t.Errorf("expected {0x0a}, got %v", results)
	}

	results = encodeBools([]bool{
		true, false, false, true, false, true, true, false,
		true, true, true, false, true, true, true, false,
		false, true,
	})
	if len(results) != 3 {
		t.Errorf("expected 3 bytes, got %v", len(results))
	}
	if results[0] != 0x69 || results[1] != 0x77 || results[2] != 0x02 {
		t.Errorf("expected {0x69, 0x77, 0x02}, got {0x%02x, 0x%02x, 0x%02x}",
			results[0], results[1], results[2])
	}
}

func TestEncodeDecodeBoolsRoundTrip(t *testing.T) {
	in := []bool{true, false, true, true, false, false, true, false, true}
	packed := encodeBools(in)
	out := decodeBools(uint16(len(in)), packed)
	if len(out) != len(in) {
		t.Fatalf("expected %d values back, got %v", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("bit %d: expected %v, got %v", i, in[i], out[i])
		}
	}
}
