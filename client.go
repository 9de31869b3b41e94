package modbus

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// transportType identifies which concrete link and framing a Client's URL
// resolved to.
type transportType uint

const (
	transportTypeRTU transportType = iota
	transportTypeRTUOverTCP
	transportTypeRTUOverUDP
	transportTypeTCP
	transportTypeTCPOverTLS
	transportTypeUDP
)

// Configuration describes how to dial a Modbus server/unit. URL selects
// both the transport and the framing: "rtu://", "rtuovertcp://",
// "rtuoverudp://", "tcp://", "tcp+tls://" or "udp://", followed by a
// device path (rtu) or host:port (everything else).
type Configuration struct {
	URL string

	// Speed/DataBits/Parity/StopBits only apply to rtu:// links.
	Speed    uint
	DataBits uint
	Parity   uint
	StopBits uint

	// Timeout bounds how long a request waits for a response.
	Timeout time.Duration

	// TLSClientCert/TLSRootCAs are mandatory for tcp+tls://.
	TLSClientCert *tls.Certificate
	TLSRootCAs    *x509.CertPool

	Logger LeveledLogger
}

// Client is a Modbus client (master): it dials a single server/unit over
// RTU, TCP, UDP or TLS (no URL scheme selects ASCII framing) and issues
// requests for all 18
// function codes, serializing access behind a single lock the way a real
// fieldbus master would (only one outstanding request per link at a time).
type Client struct {
	conf Configuration

	logger LeveledLogger
	lock   sync.Mutex

	unitID     uint8
	wireFormat WireFormatOptions

	transport     transport
	transportType transportType
	codec         FrameCodec

	nextTxnID uint16
}

// NewClient validates conf and returns a Client ready to be Open()ed. It
// does not dial anything yet.
func NewClient(conf *Configuration) (mc *Client, err error) {
	mc = &Client{
		conf:       *conf,
		unitID:     1,
		wireFormat: DefaultWireFormatOptions(),
		logger:     conf.Logger,
	}
	if mc.logger == nil {
		mc.logger = newLogger("modbus-client")
	}

	parts := strings.SplitN(conf.URL, "://", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, ErrConfigurationError
	}

	switch parts[0] {
	case "rtu":
		mc.transportType = transportTypeRTU
		mc.codec = FrameCodecRTU
		if mc.conf.Speed == 0 {
			mc.conf.Speed = 19200
		}
		if mc.conf.DataBits == 0 {
			mc.conf.DataBits = 8
		}
		if mc.conf.Timeout == 0 {
			mc.conf.Timeout = 300 * time.Millisecond
		}
	case "rtuovertcp":
		mc.transportType = transportTypeRTUOverTCP
		mc.codec = FrameCodecRTU
		if mc.conf.Timeout == 0 {
			mc.conf.Timeout = 1 * time.Second
		}
	case "rtuoverudp":
		mc.transportType = transportTypeRTUOverUDP
		mc.codec = FrameCodecRTU
		if mc.conf.Timeout == 0 {
			mc.conf.Timeout = 1 * time.Second
		}
	case "tcp":
		mc.transportType = transportTypeTCP
		mc.codec = FrameCodecTCP
		if mc.conf.Timeout == 0 {
			mc.conf.Timeout = 1 * time.Second
		}
	case "tcp+tls":
		mc.transportType = transportTypeTCPOverTLS
		mc.codec = FrameCodecTCP
		if mc.conf.TLSClientCert == nil || mc.conf.TLSRootCAs == nil {
			return nil, ErrConfigurationError
		}
		if mc.conf.Timeout == 0 {
			mc.conf.Timeout = 1 * time.Second
		}
	case "udp":
		mc.transportType = transportTypeUDP
		mc.codec = FrameCodecTCP
		if mc.conf.Timeout == 0 {
			mc.conf.Timeout = 1 * time.Second
		}
	default:
		return nil, ErrConfigurationError
	}

	return mc, nil
}

// Open dials the configured transport. A Client that is already open
// returns ErrTransportIsAlreadyOpen.
func (mc *Client) Open() (err error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()

	if mc.transport != nil {
		return ErrTransportIsAlreadyOpen
	}

	addr := strings.SplitN(mc.conf.URL, "://", 2)[1]

	switch mc.transportType {
	case transportTypeRTU:
		t, err := openSerialPort(&serialPortConfig{
			Device:   addr,
			Speed:    mc.conf.Speed,
			DataBits: mc.conf.DataBits,
			Parity:   mc.conf.Parity,
			StopBits: mc.conf.StopBits,
		})
		if err != nil {
			return err
		}
		mc.transport = t

	case transportTypeRTUOverTCP:
		conn, err := net.DialTimeout("tcp", addr, mc.conf.Timeout)
		if err != nil {
			return err
		}
		mc.transport = newSocketTransport(conn)

	case transportTypeRTUOverUDP, transportTypeUDP:
		raddr, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return err
		}
		conn, err := net.DialUDP("udp", nil, raddr)
		if err != nil {
			return err
		}
		mc.transport = newUDPTransport(conn)

	case transportTypeTCP:
		conn, err := net.DialTimeout("tcp", addr, mc.conf.Timeout)
		if err != nil {
			return err
		}
		mc.transport = newSocketTransport(conn)

	case transportTypeTCPOverTLS:
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return err
		}
		dialer := &net.Dialer{Timeout: mc.conf.Timeout}
		plainConn, err := dialer.Dial("tcp", addr)
		if err != nil {
			return err
		}
		tlsConn := tls.Client(plainConn, tlsClientConfig(*mc.conf.TLSClientCert, mc.conf.TLSRootCAs, host))
		if err := tlsConn.Handshake(); err != nil {
			plainConn.Close()
			return err
		}
		mc.transport = newTLSTransport(tlsConn)

	default:
		return ErrConfigurationError
	}

	return nil
}

// Close releases the underlying transport. A Client that is not open
// returns ErrTransportIsAlreadyClosed.
func (mc *Client) Close() (err error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()

	if mc.transport == nil {
		return ErrTransportIsAlreadyClosed
	}
	err = mc.transport.Close()
	mc.transport = nil
	return
}

// SetUnitID changes the unit id every subsequent request targets.
func (mc *Client) SetUnitID(id uint8) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	mc.unitID = id
}

// SetWireFormat changes the byte/word order and float-call semantics every
// subsequent request uses.
func (mc *Client) SetWireFormat(opts WireFormatOptions) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	mc.wireFormat = opts
}

// WithUnitID sets the Client's unit id. The new id replaces the configured
// default and stays in effect for every later call.
func WithUnitID(id uint8) func(*Client) {
	return func(mc *Client) { mc.unitID = id }
}

// WithWireFormat sets the Client's byte/word order and float-call
// semantics. The new options stay in effect for every later call.
func WithWireFormat(opts WireFormatOptions) func(*Client) {
	return func(mc *Client) { mc.wireFormat = opts }
}

// executeRequest assigns a transaction id, writes req, reads back the
// matching response and validates its unit id, mapping transport timeouts
// to ErrRequestTimedOut.
func (mc *Client) executeRequest(req *pdu) (res *pdu, err error) {
	if mc.transport == nil {
		return nil, ErrConfigurationError
	}

	mc.nextTxnID++
	req.transactionID = mc.nextTxnID

	if err = writeFrame(mc.transport, mc.codec, req); err != nil {
		return nil, err
	}

	deadline := time.Time{}
	if mc.conf.Timeout > 0 {
		deadline = time.Now().Add(mc.conf.Timeout)
	}

	res, err = readFrame(mc.transport, mc.codec, false, deadline)
	if err != nil {
		if os.IsTimeout(err) {
			err = ErrRequestTimedOut
		}
		return nil, err
	}

	if mc.codec == FrameCodecTCP && res.transactionID != req.transactionID {
		return nil, ErrBadTransactionID
	}

	isException := res.exceptionCode != exInvalid
	if !isException && res.unitID != req.unitID {
		return nil, ErrBadUnitID
	}
	if isException && res.unitID != req.unitID && res.unitID != 0xff {
		return nil, ErrBadUnitID
	}

	return res, nil
}

func (mc *Client) newRequest(fc uint8) *pdu {
	return &pdu{unitID: mc.unitID, functionCode: fc}
}

func exceptionPayload(res *pdu) (uint8, bool) {
	if res.exceptionCode == exInvalid {
		return 0, false
	}
	return res.exceptionCode, true
}

// ReadCoils reads quantity coils starting at addr (FC 1).
func (mc *Client) ReadCoils(addr uint16, quantity uint16, options ...func(*Client)) ([]bool, error) {
	return mc.readBits(fcReadCoils, addr, quantity, options...)
}

// ReadDiscreteInputs reads quantity discrete inputs starting at addr (FC 2).
func (mc *Client) ReadDiscreteInputs(addr uint16, quantity uint16, options ...func(*Client)) ([]bool, error) {
	return mc.readBits(fcReadDiscreteInputs, addr, quantity, options...)
}

func (mc *Client) readBits(fc uint8, addr uint16, quantity uint16, options ...func(*Client)) ([]bool, error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	if quantity == 0 || quantity > 2000 {
		return nil, ErrUnexpectedParameters
	}

	req := mc.newRequest(fc)
	req.payload = append(uint16ToBytes(BigEndian, addr), uint16ToBytes(BigEndian, quantity)...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return nil, err
	}
	if code, ok := exceptionPayload(res); ok {
		return nil, mapExceptionCodeToError(code)
	}
	if len(res.payload) < 1 || int(res.payload[0]) != len(res.payload)-1 {
		return nil, ErrProtocolError
	}

	return decodeBools(quantity, res.payload[1:]), nil
}

// ReadHoldingRegisters reads quantity holding registers starting at addr
// (FC 3).
func (mc *Client) ReadHoldingRegisters(addr uint16, quantity uint16, options ...func(*Client)) ([]uint16, error) {
	return mc.readRegisters(fcReadHoldingRegisters, addr, quantity, options...)
}

// ReadInputRegisters reads quantity input registers starting at addr (FC 4).
func (mc *Client) ReadInputRegisters(addr uint16, quantity uint16, options ...func(*Client)) ([]uint16, error) {
	return mc.readRegisters(fcReadInputRegisters, addr, quantity, options...)
}

func (mc *Client) readRegisters(fc uint8, addr uint16, quantity uint16, options ...func(*Client)) ([]uint16, error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	if quantity == 0 || quantity > 125 {
		return nil, ErrUnexpectedParameters
	}

	req := mc.newRequest(fc)
	req.payload = append(uint16ToBytes(BigEndian, addr), uint16ToBytes(BigEndian, quantity)...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return nil, err
	}
	if code, ok := exceptionPayload(res); ok {
		return nil, mapExceptionCodeToError(code)
	}
	if len(res.payload) != 1+2*int(quantity) || res.payload[0] != byte(2*quantity) {
		return nil, ErrProtocolError
	}

	return bytesToUint16s(mc.wireFormat.ByteOrder, res.payload[1:]), nil
}

// ReadUint32s reads quantity consecutive 32-bit values (two registers each)
// starting at addr out of the holding register space.
func (mc *Client) ReadUint32s(addr uint16, quantity uint16, options ...func(*Client)) ([]uint32, error) {
	values, err := mc.ReadHoldingRegisters(addr, quantity*2, options...)
	if err != nil {
		return nil, err
	}
	return bytesToUint32s(mc.wireFormat.ByteOrder, mc.wireFormat.WordOrder, uint16sToBytes(mc.wireFormat.ByteOrder, values)), nil
}

// ReadFloat32s reads quantity consecutive float32 values (two registers
// each) starting at addr out of the holding register space.
func (mc *Client) ReadFloat32s(addr uint16, quantity uint16, options ...func(*Client)) ([]float32, error) {
	regCount := quantity
	if mc.wireFormat.FloatCountSemantics != CountIsRegisterCount {
		regCount = quantity * 2
	}
	if err := mc.checkFloatRange(addr, regCount); err != nil {
		return nil, err
	}
	values, err := mc.ReadHoldingRegisters(addr, regCount, options...)
	if err != nil {
		return nil, err
	}
	return bytesToFloat32s(mc.wireFormat.ByteOrder, mc.wireFormat.WordOrder, uint16sToBytes(mc.wireFormat.ByteOrder, values)), nil
}

// checkFloatRange rejects addr/regCount spans that fall outside, or are
// misaligned with, the wire format's declared float overlay (if any).
func (mc *Client) checkFloatRange(addr uint16, regCount uint16) error {
	fr := mc.wireFormat.FloatRange
	if fr == nil {
		return nil
	}
	if !fr.contains(addr, regCount) || !fr.aligned(addr) || regCount%2 != 0 {
		return ErrUnexpectedParameters
	}
	return nil
}

// ReadUint64s reads quantity consecutive 64-bit values (four registers
// each) starting at addr out of the holding register space.
func (mc *Client) ReadUint64s(addr uint16, quantity uint16, options ...func(*Client)) ([]uint64, error) {
	values, err := mc.ReadHoldingRegisters(addr, quantity*4, options...)
	if err != nil {
		return nil, err
	}
	return bytesToUint64s(mc.wireFormat.ByteOrder, mc.wireFormat.WordOrder, uint16sToBytes(mc.wireFormat.ByteOrder, values)), nil
}

// ReadFloat64s reads quantity consecutive float64 values (four registers
// each) starting at addr out of the holding register space.
func (mc *Client) ReadFloat64s(addr uint16, quantity uint16, options ...func(*Client)) ([]float64, error) {
	regCount := quantity
	if mc.wireFormat.FloatCountSemantics != CountIsRegisterCount {
		regCount = quantity * 4
	}
	if err := mc.checkFloatRange(addr, regCount); err != nil {
		return nil, err
	}
	values, err := mc.ReadHoldingRegisters(addr, regCount, options...)
	if err != nil {
		return nil, err
	}
	return bytesToFloat64s(mc.wireFormat.ByteOrder, mc.wireFormat.WordOrder, uint16sToBytes(mc.wireFormat.ByteOrder, values)), nil
}

// WriteCoil writes a single coil (FC 5).
func (mc *Client) WriteCoil(addr uint16, value bool, options ...func(*Client)) error {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	wireVal := coilOff
	if value {
		wireVal = coilOn
	}

	req := mc.newRequest(fcWriteSingleCoil)
	req.payload = append(uint16ToBytes(BigEndian, addr), uint16ToBytes(BigEndian, wireVal)...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return err
	}
	if code, ok := exceptionPayload(res); ok {
		return mapExceptionCodeToError(code)
	}
	if len(res.payload) != 4 {
		return ErrProtocolError
	}
	return nil
}

// WriteCoils writes len(values) coils starting at addr (FC 15).
func (mc *Client) WriteCoils(addr uint16, values []bool, options ...func(*Client)) error {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	quantity := len(values)
	if quantity == 0 || quantity > 0x7b0 {
		return ErrUnexpectedParameters
	}

	req := mc.newRequest(fcWriteMultipleCoils)
	req.payload = append(uint16ToBytes(BigEndian, addr), uint16ToBytes(BigEndian, uint16(quantity))...)
	packed := encodeBools(values)
	req.payload = append(req.payload, byte(len(packed)))
	req.payload = append(req.payload, packed...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return err
	}
	if code, ok := exceptionPayload(res); ok {
		return mapExceptionCodeToError(code)
	}
	if len(res.payload) != 4 {
		return ErrProtocolError
	}
	return nil
}

// WriteRegister writes a single holding register (FC 6).
func (mc *Client) WriteRegister(addr uint16, value uint16, options ...func(*Client)) error {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	req := mc.newRequest(fcWriteSingleRegister)
	req.payload = append(uint16ToBytes(BigEndian, addr), uint16ToBytes(BigEndian, value)...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return err
	}
	if code, ok := exceptionPayload(res); ok {
		return mapExceptionCodeToError(code)
	}
	if len(res.payload) != 4 {
		return ErrProtocolError
	}
	return nil
}

// WriteRegisters writes len(values) holding registers starting at addr
// (FC 16).
func (mc *Client) WriteRegisters(addr uint16, values []uint16, options ...func(*Client)) error {
	return mc.writeRegisters(addr, uint16sToBytes(mc.wireFormat.ByteOrder, values), options...)
}

// WriteUint32s writes len(values) consecutive 32-bit values into the
// holding register space starting at addr.
func (mc *Client) WriteUint32s(addr uint16, values []uint32, options ...func(*Client)) error {
	var raw []byte
	for _, v := range values {
		raw = append(raw, uint32ToBytes(mc.wireFormat.ByteOrder, mc.wireFormat.WordOrder, v)...)
	}
	return mc.writeRegisters(addr, raw, options...)
}

// WriteFloat32s writes len(values) consecutive float32 values into the
// holding register space starting at addr.
func (mc *Client) WriteFloat32s(addr uint16, values []float32, options ...func(*Client)) error {
	if err := mc.checkFloatRange(addr, uint16(len(values)*2)); err != nil {
		return err
	}
	var raw []byte
	for _, v := range values {
		raw = append(raw, float32ToBytes(mc.wireFormat.ByteOrder, mc.wireFormat.WordOrder, v)...)
	}
	return mc.writeRegisters(addr, raw, options...)
}

// WriteUint64s writes len(values) consecutive 64-bit values into the
// holding register space starting at addr.
func (mc *Client) WriteUint64s(addr uint16, values []uint64, options ...func(*Client)) error {
	var raw []byte
	for _, v := range values {
		raw = append(raw, uint64ToBytes(mc.wireFormat.ByteOrder, mc.wireFormat.WordOrder, v)...)
	}
	return mc.writeRegisters(addr, raw, options...)
}

// WriteFloat64s writes len(values) consecutive float64 values into the
// holding register space starting at addr.
func (mc *Client) WriteFloat64s(addr uint16, values []float64, options ...func(*Client)) error {
	if err := mc.checkFloatRange(addr, uint16(len(values)*4)); err != nil {
		return err
	}
	var raw []byte
	for _, v := range values {
		raw = append(raw, float64ToBytes(mc.wireFormat.ByteOrder, mc.wireFormat.WordOrder, v)...)
	}
	return mc.writeRegisters(addr, raw, options...)
}

func (mc *Client) writeRegisters(addr uint16, raw []byte, options ...func(*Client)) error {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	quantity := len(raw) / 2
	if quantity == 0 || quantity > 0x7b {
		return ErrUnexpectedParameters
	}

	req := mc.newRequest(fcWriteMultipleRegisters)
	req.payload = append(uint16ToBytes(BigEndian, addr), uint16ToBytes(BigEndian, uint16(quantity))...)
	req.payload = append(req.payload, byte(len(raw)))
	req.payload = append(req.payload, raw...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return err
	}
	if code, ok := exceptionPayload(res); ok {
		return mapExceptionCodeToError(code)
	}
	if len(res.payload) != 4 {
		return ErrProtocolError
	}
	return nil
}

// ReadExceptionStatus returns the server's 8 exception status flags (FC 7).
func (mc *Client) ReadExceptionStatus(options ...func(*Client)) (uint8, error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	req := mc.newRequest(fcReadExceptionStatus)
	res, err := mc.executeRequest(req)
	if err != nil {
		return 0, err
	}
	if code, ok := exceptionPayload(res); ok {
		return 0, mapExceptionCodeToError(code)
	}
	if len(res.payload) != 1 {
		return 0, ErrProtocolError
	}
	return res.payload[0], nil
}

// Diagnostics issues sub-function 0x0000 (Return Query Data), echoing data
// back unmodified on a healthy link (FC 8).
func (mc *Client) Diagnostics(data []byte, options ...func(*Client)) ([]byte, error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	req := mc.newRequest(fcDiagnostics)
	req.payload = append([]byte{0x00, 0x00}, data...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return nil, err
	}
	if code, ok := exceptionPayload(res); ok {
		return nil, mapExceptionCodeToError(code)
	}
	if len(res.payload) < 2 {
		return nil, ErrProtocolError
	}
	return res.payload[2:], nil
}

// GetComEventCounter returns the server's communication event counter and
// whether it is in a listen-only state (FC 11).
func (mc *Client) GetComEventCounter(options ...func(*Client)) (eventCount uint16, listenOnly bool, err error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	req := mc.newRequest(fcGetComEventCounter)
	res, execErr := mc.executeRequest(req)
	if execErr != nil {
		return 0, false, execErr
	}
	if code, ok := exceptionPayload(res); ok {
		return 0, false, mapExceptionCodeToError(code)
	}
	if len(res.payload) != 4 {
		return 0, false, ErrProtocolError
	}
	status := bytesToUint16(BigEndian, res.payload[0:2])
	return bytesToUint16(BigEndian, res.payload[2:4]), status == 0xffff, nil
}

// GetComEventLog returns the server's event/message counters and the
// function code of every logged event, oldest first (FC 12).
func (mc *Client) GetComEventLog(options ...func(*Client)) (eventCount uint16, messageCount uint16, events []uint8, err error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	req := mc.newRequest(fcGetComEventLog)
	res, execErr := mc.executeRequest(req)
	if execErr != nil {
		return 0, 0, nil, execErr
	}
	if code, ok := exceptionPayload(res); ok {
		return 0, 0, nil, mapExceptionCodeToError(code)
	}
	if len(res.payload) < 1 || int(res.payload[0]) != len(res.payload)-1 || len(res.payload) < 7 {
		return 0, 0, nil, ErrProtocolError
	}
	data := res.payload[1:]
	eventCount = bytesToUint16(BigEndian, data[2:4])
	messageCount = bytesToUint16(BigEndian, data[4:6])
	events = append([]uint8(nil), data[6:]...)
	return eventCount, messageCount, events, nil
}

// ReportSlaveID returns the unit's identifier byte and run-indicator
// status byte (FC 17).
func (mc *Client) ReportSlaveID(options ...func(*Client)) (id uint8, running bool, err error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	req := mc.newRequest(fcReportSlaveID)
	res, execErr := mc.executeRequest(req)
	if execErr != nil {
		return 0, false, execErr
	}
	if code, ok := exceptionPayload(res); ok {
		return 0, false, mapExceptionCodeToError(code)
	}
	if len(res.payload) < 3 || int(res.payload[0]) != len(res.payload)-1 {
		return 0, false, ErrProtocolError
	}
	return res.payload[1], res.payload[2] == 0xff, nil
}

// FileRecordRequest is one sub-request of a ReadFileRecord/WriteFileRecord
// call: read or write registers of RecordNumber inside FileNumber. A read
// takes its register count from ReadFileRecord's counts argument; a write
// writes len(Values) registers.
type FileRecordRequest struct {
	FileNumber   uint16
	RecordNumber uint16
	Values       []uint16 // ignored (and may be nil) for a read
}

// ReadFileRecord reads one or more file records in a single request
// (FC 20).
func (mc *Client) ReadFileRecord(requests []FileRecordRequest, counts []uint16, options ...func(*Client)) ([][]uint16, error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	if len(requests) == 0 || len(requests) != len(counts) {
		return nil, ErrUnexpectedParameters
	}

	var sub []byte
	for i, r := range requests {
		sub = append(sub, uint16ToBytes(BigEndian, r.FileNumber)...)
		sub = append(sub, uint16ToBytes(BigEndian, r.RecordNumber)...)
		sub = append(sub, uint16ToBytes(BigEndian, counts[i])...)
	}

	req := mc.newRequest(fcReadFileRecord)
	req.payload = append([]byte{byte(len(sub))}, sub...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return nil, err
	}
	if code, ok := exceptionPayload(res); ok {
		return nil, mapExceptionCodeToError(code)
	}
	if len(res.payload) < 1 || int(res.payload[0]) != len(res.payload)-1 {
		return nil, ErrProtocolError
	}

	var results [][]uint16
	data := res.payload[1:]
	for len(data) > 0 {
		if len(data) < 6 {
			return nil, ErrProtocolError
		}
		refType := data[0]
		dataLen := int(data[1])
		if refType != fileRecordReferenceType || 6+dataLen > len(data) {
			return nil, ErrProtocolError
		}
		regBytes := data[6 : 6+dataLen]
		results = append(results, bytesToUint16s(mc.wireFormat.ByteOrder, regBytes))
		data = data[6+dataLen:]
	}
	return results, nil
}

// WriteFileRecord writes one or more file records in a single request
// (FC 21).
func (mc *Client) WriteFileRecord(requests []FileRecordRequest, options ...func(*Client)) error {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	if len(requests) == 0 {
		return ErrUnexpectedParameters
	}

	var sub []byte
	for _, r := range requests {
		sub = append(sub, fileRecordReferenceType)
		sub = append(sub, uint16ToBytes(BigEndian, r.FileNumber)...)
		sub = append(sub, uint16ToBytes(BigEndian, r.RecordNumber)...)
		sub = append(sub, uint16ToBytes(BigEndian, uint16(len(r.Values)))...)
		sub = append(sub, uint16sToBytes(mc.wireFormat.ByteOrder, r.Values)...)
	}

	req := mc.newRequest(fcWriteFileRecord)
	req.payload = append([]byte{byte(len(sub))}, sub...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return err
	}
	if code, ok := exceptionPayload(res); ok {
		return mapExceptionCodeToError(code)
	}
	return nil
}

// MaskWriteRegister applies (current & andMask) | orMask to the holding
// register at addr (FC 22).
func (mc *Client) MaskWriteRegister(addr uint16, andMask uint16, orMask uint16, options ...func(*Client)) error {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	req := mc.newRequest(fcMaskWriteRegister)
	req.payload = append(uint16ToBytes(BigEndian, addr), uint16ToBytes(BigEndian, andMask)...)
	req.payload = append(req.payload, uint16ToBytes(BigEndian, orMask)...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return err
	}
	if code, ok := exceptionPayload(res); ok {
		return mapExceptionCodeToError(code)
	}
	if len(res.payload) != 6 {
		return ErrProtocolError
	}
	return nil
}

// ReadWriteMultipleRegisters writes writeValues starting at writeAddr, then
// reads readQuantity registers starting at readAddr, both against the
// holding register space, in a single round trip (FC 23).
func (mc *Client) ReadWriteMultipleRegisters(readAddr uint16, readQuantity uint16, writeAddr uint16, writeValues []uint16, options ...func(*Client)) ([]uint16, error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	if readQuantity == 0 || readQuantity > 125 || len(writeValues) == 0 || len(writeValues) > 0x79 {
		return nil, ErrUnexpectedParameters
	}

	raw := uint16sToBytes(mc.wireFormat.ByteOrder, writeValues)

	req := mc.newRequest(fcReadWriteMultipleRegisters)
	req.payload = append(uint16ToBytes(BigEndian, readAddr), uint16ToBytes(BigEndian, readQuantity)...)
	req.payload = append(req.payload, uint16ToBytes(BigEndian, writeAddr)...)
	req.payload = append(req.payload, uint16ToBytes(BigEndian, uint16(len(writeValues)))...)
	req.payload = append(req.payload, byte(len(raw)))
	req.payload = append(req.payload, raw...)

	res, err := mc.executeRequest(req)
	if err != nil {
		return nil, err
	}
	if code, ok := exceptionPayload(res); ok {
		return nil, mapExceptionCodeToError(code)
	}
	if len(res.payload) != 1+2*int(readQuantity) || res.payload[0] != byte(2*readQuantity) {
		return nil, ErrProtocolError
	}
	return bytesToUint16s(mc.wireFormat.ByteOrder, res.payload[1:]), nil
}

// ReadFIFOQueue reads every value currently queued at pointerAddr (FC 24).
func (mc *Client) ReadFIFOQueue(pointerAddr uint16, options ...func(*Client)) ([]uint16, error) {
	mc.lock.Lock()
	defer mc.lock.Unlock()
	for _, o := range options {
		o(mc)
	}

	req := mc.newRequest(fcReadFIFOQueue)
	req.payload = uint16ToBytes(BigEndian, pointerAddr)

	res, err := mc.executeRequest(req)
	if err != nil {
		return nil, err
	}
	if code, ok := exceptionPayload(res); ok {
		return nil, mapExceptionCodeToError(code)
	}
	if len(res.payload) < 4 {
		return nil, ErrProtocolError
	}
	byteCount := bytesToUint16(BigEndian, res.payload[0:2])
	fifoCount := bytesToUint16(BigEndian, res.payload[2:4])
	if fifoCount > fifoMaxCount || int(byteCount) != 2+2*int(fifoCount) || len(res.payload)-4 != 2*int(fifoCount) {
		return nil, ErrProtocolError
	}
	return bytesToUint16s(mc.wireFormat.ByteOrder, res.payload[4:]), nil
}

var _ fmt.Stringer = transportType(0)

func (t transportType) String() string {
	switch t {
	case transportTypeRTU:
		return "rtu"
	case transportTypeRTUOverTCP:
		return "rtuovertcp"
	case transportTypeRTUOverUDP:
		return "rtuoverudp"
	case transportTypeTCP:
		return "tcp"
	case transportTypeTCPOverTLS:
		return "tcp+tls"
	case transportTypeUDP:
		return "udp"
	default:
		return "unknown"
	}
}
