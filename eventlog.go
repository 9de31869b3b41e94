package modbus

// eventLogEntry pairs the function code that triggered a request with the
// communication-event counter value at the time it was processed (§3).
type eventLogEntry struct {
	eventID    uint8
	eventCount uint16
}

// eventLog is the server's communication event log: a fixed-capacity ring,
// oldest entries evicted once eventLogCapacity is exceeded (§3). It backs
// function code 12 (Get Com Event Log).
type eventLog struct {
	entries []eventLogEntry
}

func newEventLog() *eventLog {
	return &eventLog{entries: make([]eventLogEntry, 0, eventLogCapacity)}
}

// record appends one event, evicting the oldest entry if the log is
// already at capacity.
func (e *eventLog) record(eventID uint8, eventCount uint16) {
	e.entries = append(e.entries, eventLogEntry{eventID: eventID, eventCount: eventCount})
	if len(e.entries) > eventLogCapacity {
		e.entries = e.entries[len(e.entries)-eventLogCapacity:]
	}
}

// wireBytes returns the event id byte of every logged entry, oldest
// first, the order FC 12 puts them on the wire.
func (e *eventLog) wireBytes() []byte {
	out := make([]byte, len(e.entries))
	for i, ev := range e.entries {
		out[i] = ev.eventID
	}
	return out
}

func (e *eventLog) clear() {
	e.entries = e.entries[:0]
}
