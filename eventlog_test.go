package modbus

import (
	"testing"
)

func TestEventLogRecordAndWireBytes(t *testing.T) {
	l := newEventLog()

	l.record(fcReadHoldingRegisters, 1)
	l.record(fcWriteSingleCoil, 2)
	l.record(fcReadCoils, 3)

	wire := l.wireBytes()
	want := []byte{fcReadHoldingRegisters, fcWriteSingleCoil, fcReadCoils}
	if len(wire) != len(want) {
		t.Fatalf("expected %v entries, got %v", len(want), len(wire))
	}
	for i := range want {
		if wire[i] != want[i] {
			t.Errorf("entry %d: expected 0x%02x, got 0x%02x", i, want[i], wire[i])
		}
	}
}

func TestEventLogEvictsOldest(t *testing.T) {
	l := newEventLog()

	for i := 0; i < eventLogCapacity+10; i++ {
		l.record(fcReadCoils, uint16(i))
	}

	if len(l.entries) != eventLogCapacity {
		t.Fatalf("expected the log capped at %v entries, got %v", eventLogCapacity, len(l.entries))
	}
	// the 10 oldest events (counts 0..9) should have been evicted
	if l.entries[0].eventCount != 10 {
		t.Errorf("expected the oldest surviving entry to have count 10, got %v", l.entries[0].eventCount)
	}
	last := l.entries[len(l.entries)-1]
	if last.eventCount != uint16(eventLogCapacity+9) {
		t.Errorf("expected the newest entry to have count %v, got %v", eventLogCapacity+9, last.eventCount)
	}
}

func TestEventLogClear(t *testing.T) {
	l := newEventLog()
	l.record(fcReadCoils, 1)
	l.clear()

	if len(l.entries) != 0 {
		t.Errorf("expected an empty log after clear(), got %v entries", len(l.entries))
	}
	if len(l.wireBytes()) != 0 {
		t.Errorf("expected no wire bytes after clear()")
	}
}
