package modbus

import (
	"errors"
	"net"
	"sync"
	"time"
)

// Server is a Modbus server (slave/unit): it owns one unit's data model —
// holding registers, input registers, coils, discrete inputs, file
// records, FIFO queues, the communication event log and counters, and an
// optional float overlay — and answers requests delivered over any
// transport (RTU, ASCII, TCP, UDP, TLS) via Start (TCP-style accept loop)
// or Serve (a single already-open transport, e.g. a serial link).
//
// All exported accessors are safe for concurrent use; a single internal
// lock serializes both request processing and direct state access from
// the owning application (e.g. updating an input register from a sensor
// poll loop running alongside Start).
type Server struct {
	// Timeout sets the idle session timeout for connections accepted via
	// Start and for links driven by Serve; Poll uses it (30s when zero) as
	// its per-frame deadline.
	Timeout time.Duration
	// MaxClients caps the number of concurrent connections accepted via
	// Start. Zero means unlimited.
	MaxClients uint

	unitID     uint8
	wireFormat WireFormatOptions
	logger     LeveledLogger

	lock sync.Mutex

	holding  *registerMap
	input    *registerMap
	coils    *coilMap
	discrete *coilMap

	// files maps file number -> record number -> register values (§3).
	files map[uint16]map[uint16][]uint16
	// fifos maps a FIFO pointer address -> its queued register values,
	// capped at fifoMaxCount entries (§3).
	fifos map[uint16][]uint16

	exceptionStatus uint8
	eventCounter    uint16
	messageCounter  uint16
	log             *eventLog
	listenOnly      bool

	// floatRange/floatValues back the optional float overlay (§3): when
	// set, reads/writes of holding registers fully inside floatRange are
	// redirected here instead of the plain holding register map.
	floatRange  *FloatRange
	floatValues []float32

	listener net.Listener
	conns    []net.Conn
}

// Option configures a Server at construction time.
type Option func(*Server) error

// WithLogger sets the server's logger.
func WithLogger(logger LeveledLogger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithTimeout sets the idle session timeout for accepted connections.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Server) error {
		s.Timeout = timeout
		return nil
	}
}

// WithMaxClients caps the number of concurrent accepted connections.
func WithMaxClients(max uint) Option {
	return func(s *Server) error {
		s.MaxClients = max
		return nil
	}
}

// WithServerUnitID sets the unit id this server answers as. A request
// addressed to any other non-broadcast unit id is silently ignored, the
// way a single-drop RTU/ASCII slave would. Defaults to 1.
func WithServerUnitID(id uint8) Option {
	return func(s *Server) error {
		s.unitID = id
		return nil
	}
}

// WithServerWireFormat sets the byte/word order this server uses to
// interpret 32-bit requests and format 32-bit responses. Its FloatRange
// field is not read by the server; the float overlay is set only by
// AddFloatOverlay.
func WithServerWireFormat(opts WireFormatOptions) Option {
	return func(s *Server) error {
		s.wireFormat = opts
		return nil
	}
}

// NewServer allocates a Server with empty address maps; registers
// addresses with the Add* methods before starting to serve requests.
func NewServer(opts ...Option) (*Server, error) {
	s := &Server{
		Timeout:    30 * time.Second,
		unitID:     1,
		wireFormat: DefaultWireFormatOptions(),
		logger:     newLogger("modbus-server"),
		holding:    newRegisterMap(),
		input:      newRegisterMap(),
		coils:      newCoilMap(),
		discrete:   newCoilMap(),
		files:      make(map[uint16]map[uint16][]uint16),
		fifos:      make(map[uint16][]uint16),
		log:        newEventLog(),
	}

	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// AddHoldingRegisters registers span for reads (FC 3, 23) and writes (FC
// 6, 16, 22, 23), defaulting each newly-registered address to 0.
func (s *Server) AddHoldingRegisters(span AddressSpan) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.holding.addSpan(span)
}

func (s *Server) RemoveHoldingRegisters(span AddressSpan) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.holding.removeSpan(span)
}

// AddInputRegisters registers span for reads (FC 4) only.
func (s *Server) AddInputRegisters(span AddressSpan) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.input.addSpan(span)
}

func (s *Server) RemoveInputRegisters(span AddressSpan) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.input.removeSpan(span)
}

// AddCoils registers span for reads (FC 1) and writes (FC 5, 15).
func (s *Server) AddCoils(span AddressSpan) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.coils.addSpan(span)
}

func (s *Server) RemoveCoils(span AddressSpan) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.coils.removeSpan(span)
}

// AddDiscreteInputs registers span for reads (FC 2) only.
func (s *Server) AddDiscreteInputs(span AddressSpan) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.discrete.addSpan(span)
}

func (s *Server) RemoveDiscreteInputs(span AddressSpan) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.discrete.removeSpan(span)
}

// GetHoldingRegister/SetHoldingRegister give the owning application direct,
// locked access to the same store the dispatcher reads and writes,
// allowing e.g. a background poll loop to publish sensor readings that
// clients will subsequently read back over the wire.
func (s *Server) GetHoldingRegister(addr uint16) (uint16, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.holding.get(addr)
}

func (s *Server) SetHoldingRegister(addr uint16, value uint16) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.holding.set(addr, value)
}

func (s *Server) GetInputRegister(addr uint16) (uint16, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.input.get(addr)
}

func (s *Server) SetInputRegister(addr uint16, value uint16) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.input.set(addr, value)
}

func (s *Server) GetCoil(addr uint16) (bool, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.coils.get(addr)
}

func (s *Server) SetCoil(addr uint16, value bool) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.coils.set(addr, value)
}

func (s *Server) GetDiscreteInput(addr uint16) (bool, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.discrete.get(addr)
}

func (s *Server) SetDiscreteInput(addr uint16, value bool) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.discrete.set(addr, value)
}

// SetFileRecord stores (or replaces) one record of a file, for FC 20/21
// (Read/Write File Record).
func (s *Server) SetFileRecord(fileNumber uint16, recordNumber uint16, values []uint16) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.files[fileNumber] == nil {
		s.files[fileNumber] = make(map[uint16][]uint16)
	}
	s.files[fileNumber][recordNumber] = append([]uint16(nil), values...)
}

func (s *Server) GetFileRecord(fileNumber uint16, recordNumber uint16) ([]uint16, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	records, ok := s.files[fileNumber]
	if !ok {
		return nil, false
	}
	values, ok := records[recordNumber]
	return values, ok
}

// SetFIFOQueue seeds the FIFO queue at pointerAddr with values, most
// recently queued last (matching the order FC 24 returns them in). values
// longer than fifoMaxCount is a caller error; it is truncated to the first
// fifoMaxCount entries.
func (s *Server) SetFIFOQueue(pointerAddr uint16, values []uint16) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(values) > fifoMaxCount {
		values = values[:fifoMaxCount]
	}
	s.fifos[pointerAddr] = append([]uint16(nil), values...)
}

func (s *Server) GetFIFOQueue(pointerAddr uint16) []uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]uint16(nil), s.fifos[pointerAddr]...)
}

// AddFloatOverlay declares a contiguous holding-register range to be
// reinterpreted as 32-bit floats (§3). r.RegisterCount must be even. Reads
// and writes of holding registers whose span falls entirely inside r are
// thereafter served from the float storage instead of the plain register
// map; a span partially overlapping r is rejected with IllegalDataAddress
// by the dispatcher.
func (s *Server) AddFloatOverlay(r FloatRange) error {
	if r.RegisterCount%2 != 0 {
		return ErrConfigurationError
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.floatRange = &r
	s.floatValues = make([]float32, r.RegisterCount/2)
	return nil
}

func (s *Server) GetFloat(index int) (float32, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if index < 0 || index >= len(s.floatValues) {
		return 0, false
	}
	return s.floatValues[index], true
}

func (s *Server) SetFloat(index int, value float32) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if index < 0 || index >= len(s.floatValues) {
		return false
	}
	s.floatValues[index] = value
	return true
}

// SetExceptionStatus sets the 8 coil-like flags FC 7 (Read Exception
// Status) reports.
func (s *Server) SetExceptionStatus(status uint8) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.exceptionStatus = status
}

// Start begins accepting client connections on l (typically a *net.TCPListener
// or tls.Listen result) in a background goroutine.
func (s *Server) Start(l net.Listener) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.listener != nil {
		return errors.New("server already started")
	}
	s.listener = l

	go s.acceptClients()

	return nil
}

// Stop stops accepting new connections and closes every active session.
func (s *Server) Stop() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.listener == nil {
		return errors.New("server not started")
	}

	err := s.listener.Close()
	for _, c := range s.conns {
		c.Close()
	}
	s.listener = nil
	s.conns = nil

	return err
}

// Serve processes requests arriving on a single already-open transport
// (e.g. an RTU or ASCII serial link, or one UDP socket) until the
// transport is closed or returns a protocol error. It blocks the calling
// goroutine; callers wanting a background server typically invoke it via
// `go server.Serve(...)`.
func (s *Server) Serve(t transport, codec FrameCodec, clientAddr string) {
	s.handleTransport(t, codec, clientAddr)
}

func (s *Server) acceptClients() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.lock.Lock()
			stopped := s.listener == nil
			s.lock.Unlock()
			if stopped {
				return
			}
			s.logger.Warningf("failed to accept client connection: %v", err)
			continue
		}

		s.lock.Lock()
		accept := s.MaxClients == 0 || uint(len(s.conns)) < s.MaxClients
		if accept {
			s.conns = append(s.conns, conn)
		}
		s.lock.Unlock()

		if !accept {
			s.logger.Warningf("max. number of concurrent connections reached, rejecting %v", conn.RemoteAddr())
			conn.Close()
			continue
		}

		go s.handleTCPClient(conn)
	}
}

func (s *Server) handleTCPClient(conn net.Conn) {
	s.handleTransport(newSocketTransport(conn), FrameCodecTCP, conn.RemoteAddr().String())

	s.lock.Lock()
	for i := range s.conns {
		if s.conns[i] == conn {
			s.conns[i] = s.conns[len(s.conns)-1]
			s.conns = s.conns[:len(s.conns)-1]
			break
		}
	}
	s.lock.Unlock()

	conn.Close()
}

// handleTransport reads one request at a time off t using codec's framing,
// dispatches it via process, and writes the response back, until t is
// closed, an idle timeout elapses, or a framing error forces the link
// closed (§4.7: a malformed RTU/ASCII/TCP frame is unrecoverable mid-link,
// since there is no reliable resynchronization point).
func (s *Server) handleTransport(t transport, codec FrameCodec, clientAddr string) {
	for {
		deadline := time.Time{}
		if s.Timeout > 0 {
			deadline = time.Now().Add(s.Timeout)
		}

		req, err := readFrame(t, codec, true, deadline)
		if err != nil {
			if !errors.Is(err, ErrBadCRC) && !errors.Is(err, ErrBadLRC) {
				return
			}
			s.logger.Warningf("framing error from %s: %v", clientAddr, err)
			return
		}

		res := s.processIncoming(req)
		if res == nil {
			// a broadcast write (no response is sent, §5), a rejected
			// broadcast non-write, or a request addressed to a
			// different unit id (silently ignored, as a single-drop
			// slave would).
			continue
		}

		if err := writeFrame(t, codec, res); err != nil {
			s.logger.Warningf("failed to write response to %s: %v", clientAddr, err)
			return
		}
	}
}
