// internal/pzemsim/device.go
package pzemsim

import (
	"encoding/binary"
	"os"
	"sync"
	"time"

	"github.com/tamzrod/pzem004t/internal/rtu"
)

const (
	fcReadHolding  byte = 0x03
	fcReadInput    byte = 0x04
	fcWriteSingle  byte = 0x06
	fcResetEnergy  byte = 0x42
	generalAddress byte = 0xF8

	excIllegalFunction byte = 0x01
	excIllegalAddress  byte = 0x02
	excIllegalValue    byte = 0x03

	inputRegisters = 10
)

// DefaultRegisters is a 230 V / 1.5 A / 25 W / 1 kWh / 50 Hz / pf 0.98 frame.
var DefaultRegisters = [inputRegisters]uint16{2300, 1500, 0, 250, 0, 1000, 0, 500, 98, 0}

type timeoutError struct{}

func (timeoutError) Error() string   { return "pzemsim: read timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// Device is an in-memory PZEM-004T behind a serial port. It implements
// io.ReadWriteCloser; each Write is taken as one complete request frame.
type Device struct {
	mu sync.Mutex

	addr      byte
	input     [inputRegisters]uint16
	threshold uint16

	out      []byte
	requests [][]byte

	silent      bool
	corrupt     func([]byte) []byte
	readTimeout time.Duration
	closed      bool
}

type Option func(*Device)

// WithAddress sets the device slave address (default 0xF8).
func WithAddress(addr byte) Option {
	return func(d *Device) { d.addr = addr }
}

// WithRegisters sets the input register file.
func WithRegisters(regs [inputRegisters]uint16) Option {
	return func(d *Device) { d.input = regs }
}

// WithReadTimeout sets how long a Read blocks on an empty line.
func WithReadTimeout(t time.Duration) Option {
	return func(d *Device) { d.readTimeout = t }
}

func New(opts ...Option) *Device {
	d := &Device{
		addr:        generalAddress,
		input:       DefaultRegisters,
		threshold:   2300,
		readTimeout: 10 * time.Millisecond,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ---- knobs ----

// SetSilent makes the device ignore every request.
func (d *Device) SetSilent(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent = v
}

// SetCorrupt installs a hook applied to every outgoing frame.
func (d *Device) SetCorrupt(fn func([]byte) []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.corrupt = fn
}

// SetRegisters replaces the input register file.
func (d *Device) SetRegisters(regs [inputRegisters]uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.input = regs
}

func (d *Device) Registers() [inputRegisters]uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.input
}

func (d *Device) Address() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addr
}

func (d *Device) AlarmThreshold() uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.threshold
}

// Requests returns copies of every frame written so far.
func (d *Device) Requests() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.requests))
	for i, r := range d.requests {
		out[i] = append([]byte(nil), r...)
	}
	return out
}

// ---- io.ReadWriteCloser ----

func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0, os.ErrClosed
	}

	req := append([]byte(nil), p...)
	d.requests = append(d.requests, req)

	if d.silent {
		return len(p), nil
	}

	resp := d.handle(req)
	if resp == nil {
		return len(p), nil
	}
	if d.corrupt != nil {
		resp = d.corrupt(resp)
	}
	d.out = append(d.out, resp...)
	return len(p), nil
}

func (d *Device) Read(p []byte) (int, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, os.ErrClosed
	}
	if len(d.out) == 0 {
		wait := d.readTimeout
		d.mu.Unlock()
		time.Sleep(wait)
		return 0, timeoutError{}
	}
	n := copy(p, d.out)
	d.out = d.out[n:]
	d.mu.Unlock()
	return n, nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// ---- protocol ----

// handle returns the response frame for req, or nil when the device must
// stay silent (bad CRC, other slave).
func (d *Device) handle(req []byte) []byte {
	if len(req) < 4 || !rtu.CheckCRC(req) {
		return nil
	}

	addr, fc := req[0], req[1]
	if addr != d.addr && addr != generalAddress {
		return nil
	}
	body := req[2 : len(req)-2]

	switch fc {
	case fcReadInput:
		return d.readInput(addr, body)
	case fcReadHolding:
		return d.readHolding(addr, body)
	case fcWriteSingle:
		return d.writeSingle(addr, req, body)
	case fcResetEnergy:
		if len(body) != 0 {
			return exception(addr, fc, excIllegalValue)
		}
		d.input[5], d.input[6] = 0, 0
		return append([]byte(nil), req...)
	default:
		return exception(addr, fc, excIllegalFunction)
	}
}

func (d *Device) readInput(addr byte, body []byte) []byte {
	if len(body) != 4 {
		return exception(addr, fcReadInput, excIllegalValue)
	}
	start := int(binary.BigEndian.Uint16(body[0:2]))
	count := int(binary.BigEndian.Uint16(body[2:4]))
	if count == 0 || start+count > inputRegisters {
		return exception(addr, fcReadInput, excIllegalAddress)
	}
	return registers(addr, fcReadInput, d.input[start:start+count])
}

func (d *Device) readHolding(addr byte, body []byte) []byte {
	if len(body) != 4 {
		return exception(addr, fcReadHolding, excIllegalValue)
	}
	start := int(binary.BigEndian.Uint16(body[0:2]))
	count := int(binary.BigEndian.Uint16(body[2:4]))
	if count == 0 || start < 1 || start+count > 3 {
		return exception(addr, fcReadHolding, excIllegalAddress)
	}
	holding := []uint16{0, d.threshold, uint16(d.addr)}
	return registers(addr, fcReadHolding, holding[start:start+count])
}

func (d *Device) writeSingle(addr byte, req, body []byte) []byte {
	if len(body) != 4 {
		return exception(addr, fcWriteSingle, excIllegalValue)
	}
	reg := binary.BigEndian.Uint16(body[0:2])
	val := binary.BigEndian.Uint16(body[2:4])

	switch reg {
	case 0x0001:
		d.threshold = val
	case 0x0002:
		if val < 0x01 || val > 0xF7 {
			return exception(addr, fcWriteSingle, excIllegalValue)
		}
		d.addr = byte(val)
	default:
		return exception(addr, fcWriteSingle, excIllegalAddress)
	}
	return append([]byte(nil), req...)
}

func registers(addr, fc byte, regs []uint16) []byte {
	out := make([]byte, 3, 3+2*len(regs)+2)
	out[0], out[1], out[2] = addr, fc, byte(2*len(regs))
	for _, r := range regs {
		out = binary.BigEndian.AppendUint16(out, r)
	}
	return rtu.AppendCRC(out)
}

func exception(addr, fc, code byte) []byte {
	return rtu.AppendCRC([]byte{addr, fc | 0x80, code})
}
