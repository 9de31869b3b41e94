package modbus

// FloatCountSemantics controls how a client-level "read N floats" call
// interprets its count argument.
type FloatCountSemantics uint

const (
	// CountIsFloatCount means the count argument is the number of floats
	// to read/write (each consuming 2 registers). This is the default.
	CountIsFloatCount FloatCountSemantics = 1
	// CountIsRegisterCount means the count argument is the number of
	// registers to read/write (each float consuming 2 of them).
	CountIsRegisterCount FloatCountSemantics = 2
)

// FloatRange optionally declares a contiguous holding-register range as a
// float overlay: StartRegister through StartRegister+RegisterCount-1,
// reinterpreted as RegisterCount/2 32-bit floats. RegisterCount must be
// even.
type FloatRange struct {
	StartRegister uint16
	RegisterCount uint16
}

// contains reports whether [start, start+count) falls entirely inside the
// float range.
func (r FloatRange) contains(start uint16, count uint16) bool {
	rangeEnd := uint32(r.StartRegister) + uint32(r.RegisterCount)
	spanEnd := uint32(start) + uint32(count)
	return uint32(start) >= uint32(r.StartRegister) && spanEnd <= rangeEnd
}

// overlaps reports whether [start, start+count) shares any address with
// the float range.
func (r FloatRange) overlaps(start uint16, count uint16) bool {
	rangeEnd := uint32(r.StartRegister) + uint32(r.RegisterCount)
	spanEnd := uint32(start) + uint32(count)
	return uint32(start) < rangeEnd && spanEnd > uint32(r.StartRegister)
}

// aligned reports whether start falls on a float-cell boundary within the
// range, i.e. (start - StartRegister) is an even number of registers.
func (r FloatRange) aligned(start uint16) bool {
	return (start-r.StartRegister)%2 == 0
}

// WireFormatOptions configures how 16-bit and 32-bit quantities are laid
// out on the wire, and how client-level float calls interpret their count
// argument and validate their address range. Both Client and Server accept
// one; the zero value is not valid, use DefaultWireFormatOptions to
// construct one with Modbus-standard defaults.
type WireFormatOptions struct {
	ByteOrder           ByteOrder
	WordOrder           WordOrder
	FloatCountSemantics FloatCountSemantics
	// FloatRange is nil when no float overlay has been declared.
	FloatRange *FloatRange
}

// DefaultWireFormatOptions returns the Modbus-standard defaults: big
// endian, high word first, float count semantics, no float range.
func DefaultWireFormatOptions() WireFormatOptions {
	return WireFormatOptions{
		ByteOrder:           BigEndian,
		WordOrder:           HighWordFirst,
		FloatCountSemantics: CountIsFloatCount,
	}
}
