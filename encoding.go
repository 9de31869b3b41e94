package modbus

import (
	"encoding/binary"
	"math"
)

// ByteOrder controls how 16-bit quantities are encoded on the wire.
type ByteOrder uint

const (
	// BigEndian encodes the most significant byte first. This is the
	// Modbus default.
	BigEndian ByteOrder = 1
	// LittleEndian encodes the least significant byte first.
	LittleEndian ByteOrder = 2
)

// WordOrder controls how two registers are combined into one 32-bit (or
// four into one 64-bit) quantity.
type WordOrder uint

const (
	// HighWordFirst means the most significant register comes first.
	// This is the Modbus default.
	HighWordFirst WordOrder = 1
	// LowWordFirst means the least significant register comes first.
	LowWordFirst WordOrder = 2
)

func stdByteOrder(bo ByteOrder) binary.ByteOrder {
	if bo == LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func uint16ToBytes(bo ByteOrder, in uint16) []byte {
	out := make([]byte, 2)
	stdByteOrder(bo).PutUint16(out, in)
	return out
}

func uint16sToBytes(bo ByteOrder, in []uint16) (out []byte) {
	for _, v := range in {
		out = append(out, uint16ToBytes(bo, v)...)
	}
	return
}

func bytesToUint16(bo ByteOrder, in []byte) uint16 {
	return stdByteOrder(bo).Uint16(in)
}

func bytesToUint16s(bo ByteOrder, in []byte) (out []uint16) {
	for i := 0; i+2 <= len(in); i += 2 {
		out = append(out, bytesToUint16(bo, in[i:i+2]))
	}
	return
}

// swapWords reorders a 2*n-byte buffer of n-register words so that, given a
// buffer already encoded with the standard (big/little) byte order, the
// register pairs themselves are reordered high-word-first or
// low-word-first. n is len(in)/2, the number of registers in the group (2
// for a float32/uint32, 4 for a float64/uint64).
func swapWords(bo ByteOrder, wo WordOrder, in []byte) []byte {
	regCount := len(in) / 2
	nativeHighFirst := bo == BigEndian

	if (wo == HighWordFirst) == nativeHighFirst {
		return in
	}

	out := make([]byte, len(in))
	for i := 0; i < regCount; i++ {
		src := i * 2
		dst := (regCount - 1 - i) * 2
		out[dst], out[dst+1] = in[src], in[src+1]
	}
	return out
}

func uint32ToBytes(bo ByteOrder, wo WordOrder, in uint32) []byte {
	out := make([]byte, 4)
	stdByteOrder(bo).PutUint32(out, in)
	return swapWords(bo, wo, out)
}

func bytesToUint32(bo ByteOrder, wo WordOrder, in []byte) uint32 {
	ordered := swapWords(bo, wo, in)
	return stdByteOrder(bo).Uint32(ordered)
}

func bytesToUint32s(bo ByteOrder, wo WordOrder, in []byte) (out []uint32) {
	for i := 0; i+4 <= len(in); i += 4 {
		out = append(out, bytesToUint32(bo, wo, in[i:i+4]))
	}
	return
}

func uint64ToBytes(bo ByteOrder, wo WordOrder, in uint64) []byte {
	out := make([]byte, 8)
	stdByteOrder(bo).PutUint64(out, in)
	return swapWords(bo, wo, out)
}

func bytesToUint64(bo ByteOrder, wo WordOrder, in []byte) uint64 {
	ordered := swapWords(bo, wo, in)
	return stdByteOrder(bo).Uint64(ordered)
}

func bytesToUint64s(bo ByteOrder, wo WordOrder, in []byte) (out []uint64) {
	for i := 0; i+8 <= len(in); i += 8 {
		out = append(out, bytesToUint64(bo, wo, in[i:i+8]))
	}
	return
}

func float32ToBytes(bo ByteOrder, wo WordOrder, in float32) []byte {
	return uint32ToBytes(bo, wo, math.Float32bits(in))
}

func bytesToFloat32(bo ByteOrder, wo WordOrder, in []byte) float32 {
	return math.Float32frombits(bytesToUint32(bo, wo, in))
}

func bytesToFloat32s(bo ByteOrder, wo WordOrder, in []byte) (out []float32) {
	for _, u := range bytesToUint32s(bo, wo, in) {
		out = append(out, math.Float32frombits(u))
	}
	return
}

func float64ToBytes(bo ByteOrder, wo WordOrder, in float64) []byte {
	return uint64ToBytes(bo, wo, math.Float64bits(in))
}

func bytesToFloat64(bo ByteOrder, wo WordOrder, in []byte) float64 {
	return math.Float64frombits(bytesToUint64(bo, wo, in))
}

func bytesToFloat64s(bo ByteOrder, wo WordOrder, in []byte) (out []float64) {
	for _, u := range bytesToUint64s(bo, wo, in) {
		out = append(out, math.Float64frombits(u))
	}
	return
}

// encodeBools packs a slice of coil/discrete-input values into bytes, bit 0
// of byte 0 being the first (lowest-addressed) value (§4.1).
func encodeBools(in []bool) []byte {
	byteCount := (len(in) + 7) / 8
	out := make([]byte, byteCount)
	for i, v := range in {
		if v {
			out[i/8] |= 0x01 << uint(i%8)
		}
	}
	return out
}

// decodeBools unpacks quantity coil/discrete-input values out of in.
func decodeBools(quantity uint16, in []byte) (out []bool) {
	for i := uint(0); i < uint(quantity); i++ {
		out = append(out, (in[i/8]>>(i%8))&0x01 == 0x01)
	}
	return
}
