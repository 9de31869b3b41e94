package modbus

import (
	"testing"
)

func TestRegisterMapAddGetSet(t *testing.T) {
	m := newRegisterMap()

	if _, ok := m.get(10); ok {
		t.Error("unregistered address should report ok=false")
	}

	m.addSpan(AddressSpan{StartAddress: 10, Count: 3})
	for _, addr := range []uint16{10, 11, 12} {
		v, ok := m.get(addr)
		if !ok {
			t.Errorf("address %d should be registered", addr)
		}
		if v != 0 {
			t.Errorf("address %d should default to 0, got %v", addr, v)
		}
	}
	if _, ok := m.get(13); ok {
		t.Error("address 13 should not be registered")
	}

	if !m.set(11, 0x1234) {
		t.Error("set() on a registered address should succeed")
	}
	if v, _ := m.get(11); v != 0x1234 {
		t.Errorf("expected 0x1234, got 0x%04x", v)
	}

	if m.set(13, 1) {
		t.Error("set() on an unregistered address should fail")
	}
}

func TestRegisterMapRemoveSpan(t *testing.T) {
	m := newRegisterMap()
	m.addSpan(AddressSpan{StartAddress: 0, Count: 5})
	m.removeSpan(AddressSpan{StartAddress: 1, Count: 2})

	if _, ok := m.get(0); !ok {
		t.Error("address 0 should still be registered")
	}
	if _, ok := m.get(1); ok {
		t.Error("address 1 should have been removed")
	}
	if _, ok := m.get(2); ok {
		t.Error("address 2 should have been removed")
	}
	if _, ok := m.get(3); !ok {
		t.Error("address 3 should still be registered")
	}
}

func TestRegisterMapAddSpanPreservesExistingValue(t *testing.T) {
	m := newRegisterMap()
	m.addSpan(AddressSpan{StartAddress: 0, Count: 1})
	m.set(0, 42)

	// re-registering an already-registered address must not reset it
	m.addSpan(AddressSpan{StartAddress: 0, Count: 2})
	if v, _ := m.get(0); v != 42 {
		t.Errorf("re-registering should not clear the value, got %v", v)
	}
}

func TestRegisterMapIsSpanRegistered(t *testing.T) {
	m := newRegisterMap()
	m.addSpan(AddressSpan{StartAddress: 100, Count: 10})

	if !m.isSpanRegistered(100, 10) {
		t.Error("the full span should be registered")
	}
	if !m.isSpanRegistered(105, 2) {
		t.Error("a sub-span should be registered")
	}
	if m.isSpanRegistered(105, 10) {
		t.Error("a span extending past the registered range should not be registered")
	}
	if m.isSpanRegistered(200, 1) {
		t.Error("a disjoint address should not be registered")
	}
}

func TestCoilMapAddGetSet(t *testing.T) {
	m := newCoilMap()
	m.addSpan(AddressSpan{StartAddress: 0, Count: 4})

	v, ok := m.get(2)
	if !ok || v != false {
		t.Errorf("expected (false, true), got (%v, %v)", v, ok)
	}

	if !m.set(2, true) {
		t.Error("set() on a registered coil should succeed")
	}
	if v, _ := m.get(2); v != true {
		t.Error("expected coil 2 to read back true")
	}

	if m.set(9, true) {
		t.Error("set() on an unregistered coil should fail")
	}
}

func TestCoilMapRemoveSpan(t *testing.T) {
	m := newCoilMap()
	m.addSpan(AddressSpan{StartAddress: 0, Count: 4})
	m.removeSpan(AddressSpan{StartAddress: 0, Count: 4})

	if m.isSpanRegistered(0, 4) {
		t.Error("coils should have been fully unregistered")
	}
}
