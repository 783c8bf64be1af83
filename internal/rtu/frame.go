// internal/rtu/frame.go
package rtu

import (
	"encoding/binary"
	"fmt"

	"github.com/goburrow/modbus"
)

// Function codes used on the wire.
const (
	FuncReadHoldingRegisters byte = modbus.FuncCodeReadHoldingRegisters
	FuncReadInputRegisters   byte = modbus.FuncCodeReadInputRegisters
	FuncWriteSingleRegister  byte = modbus.FuncCodeWriteSingleRegister
)

const (
	exceptionFlag byte = 0x80

	// address + function + exception code + CRC(2)
	exceptionSize = 5
	// address + function + byte count
	readHeaderSize = 3
	crcSize        = 2

	// MaxReadRegisters is the Modbus limit for one read request.
	MaxReadRegisters = 125

	// byteCounted marks a response whose length follows from its byte
	// count field.
	byteCounted = 0
	// header + 2*MaxReadRegisters + CRC
	maxResponseSize = readHeaderSize + 2*MaxReadRegisters + crcSize
)

// Encode builds an RTU ADU:
//
//	Address(1) Function(1) Data(n) CRC(2, low byte first)
func Encode(addr byte, pdu *modbus.ProtocolDataUnit) []byte {
	adu := make([]byte, 0, 2+len(pdu.Data)+crcSize)
	adu = append(adu, addr, pdu.FunctionCode)
	adu = append(adu, pdu.Data...)
	return AppendCRC(adu)
}

// readRequest builds the PDU for FC 3/4:
//
//	Function(1) Start(2) Quantity(2)
func readRequest(fc byte, start, count uint16) *modbus.ProtocolDataUnit {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], start)
	binary.BigEndian.PutUint16(data[2:4], count)
	return &modbus.ProtocolDataUnit{FunctionCode: fc, Data: data}
}

// verify checks a complete response ADU: CRC first, then slave address,
// then function code. An exception response is reported with the device
// exception code.
func verify(adu []byte, addr, fc byte) error {
	if !CheckCRC(adu) {
		n := len(adu)
		got := uint16(0)
		if n >= crcSize {
			got = uint16(adu[n-2]) | uint16(adu[n-1])<<8
		}
		want := uint16(0)
		if n > crcSize {
			want = CRC16(adu[:n-crcSize])
		}
		return &ProtocolError{
			Function: fc,
			Reason:   fmt.Sprintf("crc mismatch: got=0x%04x want=0x%04x", got, want),
		}
	}
	if adu[0] != addr {
		return &ProtocolError{
			Function: fc,
			Reason:   fmt.Sprintf("slave address mismatch: got=0x%02x want=0x%02x", adu[0], addr),
		}
	}
	if adu[1] == fc|exceptionFlag {
		return &ProtocolError{
			Function: fc,
			Reason:   "device exception",
			Err:      &modbus.ModbusError{FunctionCode: adu[1], ExceptionCode: adu[2]},
		}
	}
	if adu[1] != fc {
		return &ProtocolError{
			Function: fc,
			Reason:   fmt.Sprintf("function mismatch: got=0x%02x want=0x%02x", adu[1], fc),
		}
	}
	return nil
}

// unpackRegisters converts big-endian register bytes into words.
func unpackRegisters(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, &FrameError{Reason: "odd register payload length", Want: len(data) + 1, Got: len(data)}
	}
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return out, nil
}
