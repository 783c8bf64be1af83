// internal/rtu/errors.go
package rtu

import (
	"errors"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	ErrTimeout  = errors.New("rtu: timeout")
	ErrProtocol = errors.New("rtu: protocol error")
	ErrFrame    = errors.New("rtu: frame error")
)

// Codes reported through Code(). 0 and 1 are reserved for "ok" and
// "generic error" by the status package.
const (
	CodeTimeout  uint16 = 2
	CodeProtocol uint16 = 3
	CodeFrame    uint16 = 4

	// codeException is OR-ed with the device exception code.
	codeException uint16 = 0x80
)

// TimeoutError means no complete response arrived before the deadline.
type TimeoutError struct {
	Function byte
	Timeout  time.Duration
	Received int // bytes received before the deadline
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("rtu: fc=0x%02x: no complete response within %s (received %d bytes)",
		e.Function, e.Timeout, e.Received)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Code() uint16 { return CodeTimeout }

// ProtocolError covers CRC, slave address, function code and byte count
// mismatches, and exception responses from the device.
type ProtocolError struct {
	Function byte
	Reason   string
	Err      error // *modbus.ModbusError for exception responses
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rtu: fc=0x%02x: %s: %v", e.Function, e.Reason, e.Err)
	}
	return fmt.Sprintf("rtu: fc=0x%02x: %s", e.Function, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

func (e *ProtocolError) Code() uint16 {
	if exc, ok := e.Exception(); ok {
		return codeException | uint16(exc.ExceptionCode)
	}
	return CodeProtocol
}

// Exception returns the device exception carried by the error, if any.
func (e *ProtocolError) Exception() (*modbus.ModbusError, bool) {
	var exc *modbus.ModbusError
	if errors.As(e.Err, &exc) {
		return exc, true
	}
	return nil, false
}

// FrameError means a payload was too short or malformed to decode.
type FrameError struct {
	Reason string
	Want   int
	Got    int
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("rtu: frame: %s (want %d, got %d)", e.Reason, e.Want, e.Got)
}

func (e *FrameError) Is(target error) bool { return target == ErrFrame }

func (e *FrameError) Code() uint16 { return CodeFrame }

// Kind names the failure class of err for logs and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrFrame):
		return "frame"
	default:
		return "io"
	}
}
