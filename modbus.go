// Package modbus implements the Modbus application protocol over RTU,
// ASCII and TCP (and UDP as a trivial variant of TCP), both as a client
// (master) and as a server (slave/unit).
package modbus

import (
	"errors"
	"fmt"
)

// pdu is the protocol data unit: a function code plus its data payload,
// without any framing envelope. unitID/transactionID are carried alongside
// it since most of the codec and dispatch logic needs them in lockstep with
// the payload, even though strictly speaking they belong to the ADU.
type pdu struct {
	transactionID uint16
	unitID        uint8
	functionCode  uint8
	exceptionCode uint8
	payload       []byte
}

// function codes
const (
	fcReadCoils                  uint8 = 0x01
	fcReadDiscreteInputs         uint8 = 0x02
	fcReadHoldingRegisters       uint8 = 0x03
	fcReadInputRegisters         uint8 = 0x04
	fcWriteSingleCoil            uint8 = 0x05
	fcWriteSingleRegister        uint8 = 0x06
	fcReadExceptionStatus        uint8 = 0x07
	fcDiagnostics                uint8 = 0x08
	fcGetComEventCounter         uint8 = 0x0b
	fcGetComEventLog             uint8 = 0x0c
	fcWriteMultipleCoils         uint8 = 0x0f
	fcWriteMultipleRegisters     uint8 = 0x10
	fcReportSlaveID              uint8 = 0x11
	fcReadFileRecord             uint8 = 0x14
	fcWriteFileRecord            uint8 = 0x15
	fcMaskWriteRegister          uint8 = 0x16
	fcReadWriteMultipleRegisters uint8 = 0x17
	fcReadFIFOQueue              uint8 = 0x18

	// exceptionFlag is OR-ed onto the function code byte of an error
	// response (§4.1).
	exceptionFlag uint8 = 0x80
)

// exception codes
const (
	exInvalid                          uint8 = 0x00 // sentinel: "no exception set"
	exIllegalFunction                  uint8 = 0x01
	exIllegalDataAddress               uint8 = 0x02
	exIllegalDataValue                 uint8 = 0x03
	exServerDeviceFailure              uint8 = 0x04
	exAcknowledge                      uint8 = 0x05
	exServerDeviceBusy                 uint8 = 0x06
	exMemoryParityError                uint8 = 0x08
	exGatewayPathUnavailable           uint8 = 0x0a
	exGatewayTargetFailedToRespond     uint8 = 0x0b
)

// coilOn/coilOff are the 16-bit wire values for a single coil write/echo.
const (
	coilOn  uint16 = 0xff00
	coilOff uint16 = 0x0000
)

// fileRecordReferenceType is the only reference type byte the file-record
// function codes accept (§3).
const fileRecordReferenceType uint8 = 0x06

// fifoMaxCount is the Modbus-spec ceiling on the number of FIFO entries a
// single ReadFIFOQueue response may carry (§3).
const fifoMaxCount = 31

// eventLogCapacity is the maximum number of entries the server's
// communication event log retains before evicting the oldest (§3).
const eventLogCapacity = 64

var (
	ErrConfigurationError      error = errors.New("configuration error")
	ErrRequestTimedOut         error = errors.New("request timed out")
	ErrIllegalFunction         error = errors.New("illegal function")
	ErrIllegalDataAddress      error = errors.New("illegal data address")
	ErrIllegalDataValue        error = errors.New("illegal data value")
	ErrServerDeviceFailure     error = errors.New("server device failure")
	ErrAcknowledge             error = errors.New("request acknowledged")
	ErrServerDeviceBusy        error = errors.New("server device busy")
	ErrMemoryParityError       error = errors.New("memory parity error")
	ErrGWPathUnavailable       error = errors.New("gateway path unavailable")
	ErrGWTargetFailedToRespond error = errors.New("gateway target device failed to respond")
	ErrBadCRC                  error = errors.New("bad crc")
	ErrBadLRC                  error = errors.New("bad lrc")
	ErrShortFrame              error = errors.New("short frame")
	ErrProtocolError           error = errors.New("protocol error")
	ErrBadUnitID               error = errors.New("bad unit id")
	ErrBadTransactionID        error = errors.New("bad transaction id")
	ErrUnknownProtocolID       error = errors.New("unknown protocol identifier")
	ErrUnexpectedParameters    error = errors.New("unexpected parameters")
	ErrTransportIsAlreadyOpen  error = errors.New("transport is already open")
	ErrTransportIsAlreadyClosed error = errors.New("transport is already closed")
)

// mapExceptionCodeToError turns a wire exception code into the matching
// sentinel error, for client-side consumption.
func mapExceptionCodeToError(exceptionCode uint8) (err error) {
	switch exceptionCode {
	case exIllegalFunction:
		err = ErrIllegalFunction
	case exIllegalDataAddress:
		err = ErrIllegalDataAddress
	case exIllegalDataValue:
		err = ErrIllegalDataValue
	case exServerDeviceFailure:
		err = ErrServerDeviceFailure
	case exAcknowledge:
		err = ErrAcknowledge
	case exServerDeviceBusy:
		err = ErrServerDeviceBusy
	case exMemoryParityError:
		err = ErrMemoryParityError
	case exGatewayPathUnavailable:
		err = ErrGWPathUnavailable
	case exGatewayTargetFailedToRespond:
		err = ErrGWTargetFailedToRespond
	default:
		err = fmt.Errorf("unsupported exception code (%v)", exceptionCode)
	}

	return
}

// mapErrorToExceptionCode is the server-side inverse of
// mapExceptionCodeToError: any error the dispatcher doesn't recognize is
// reported as a server device failure rather than leaking internal details
// on the wire.
func mapErrorToExceptionCode(err error) uint8 {
	switch err {
	case ErrIllegalFunction:
		return exIllegalFunction
	case ErrIllegalDataAddress:
		return exIllegalDataAddress
	case ErrIllegalDataValue:
		return exIllegalDataValue
	case ErrServerDeviceBusy:
		return exServerDeviceBusy
	case ErrMemoryParityError:
		return exMemoryParityError
	case ErrGWPathUnavailable:
		return exGatewayPathUnavailable
	case ErrGWTargetFailedToRespond:
		return exGatewayTargetFailedToRespond
	default:
		return exServerDeviceFailure
	}
}
