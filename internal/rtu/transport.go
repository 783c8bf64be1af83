// internal/rtu/transport.go
package rtu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/goburrow/serial"
	"go.uber.org/zap"
)

const (
	DefaultBaudRate = 9600
	DefaultAddress  = 0xF8
	DefaultTimeout  = 2 * time.Second

	// portReadTimeout bounds a single blocking read on the serial port.
	// Response deadlines are enforced by the read loop, not the port.
	portReadTimeout = 100 * time.Millisecond
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("rtu: transport closed")

// Instrument receives one callback per round trip.
type Instrument struct {
	RecordTime func(function string, elapsed time.Duration, err error)
}

// Config describes the serial link and the target meter.
type Config struct {
	Port     string
	BaudRate int
	DataBits int
	Parity   string // "N", "E" or "O"
	StopBits int
	RS485    bool

	Address byte
	Timeout time.Duration

	Logger     *zap.Logger
	Instrument *Instrument
}

func (c Config) withDefaults() Config {
	if c.BaudRate <= 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.Parity == "" {
		c.Parity = "N"
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	if c.Address == 0 {
		c.Address = DefaultAddress
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Transport owns one half-duplex serial link. Every round trip holds the
// mutex from request write to response read: Modbus RTU has a single
// in-flight slot.
type Transport struct {
	mu   sync.Mutex
	port io.ReadWriteCloser

	addr       byte
	timeout    time.Duration
	frameDelay time.Duration

	lastActivity time.Time
	resync       bool
	closed       bool

	log        *zap.Logger
	instrument *Instrument
}

// Open opens the serial port described by cfg.
func Open(cfg Config) (*Transport, error) {
	cfg = cfg.withDefaults()
	if cfg.Port == "" {
		return nil, errors.New("rtu: serial port required")
	}

	port, err := serial.Open(&serial.Config{
		Address:  cfg.Port,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		StopBits: cfg.StopBits,
		Parity:   cfg.Parity,
		Timeout:  min(cfg.Timeout, portReadTimeout),
		RS485:    serial.RS485Config{Enabled: cfg.RS485},
	})
	if err != nil {
		return nil, fmt.Errorf("rtu: open %s: %w", cfg.Port, err)
	}

	return New(port, cfg), nil
}

// New wraps an already opened port.
func New(port io.ReadWriteCloser, cfg Config) *Transport {
	cfg = cfg.withDefaults()
	return &Transport{
		port:       port,
		addr:       cfg.Address,
		timeout:    cfg.Timeout,
		frameDelay: frameDelay(cfg.BaudRate),
		log:        cfg.Logger.With(zap.String("port", cfg.Port)),
		instrument: cfg.Instrument,
	}
}

// frameDelay is the 3.5 character silence between frames. Above 19200 baud
// the fixed 1750us value is used.
func frameDelay(baud int) time.Duration {
	if baud <= 0 || baud > 19200 {
		return 1750 * time.Microsecond
	}
	return time.Duration(35000000/baud) * time.Microsecond
}

// Address returns the slave address requests are sent to.
func (t *Transport) Address() byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addr
}

// SetAddress changes the slave address used by subsequent requests.
func (t *Transport) SetAddress(addr byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addr = addr
}

// Timeout returns the response timeout.
func (t *Transport) Timeout() time.Duration {
	return t.timeout
}

// Close releases the port. It is safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.port.Close()
}

// ---- register access ----

// ReadInputRegisters issues FC 0x04.
func (t *Transport) ReadInputRegisters(start, count uint16) ([]uint16, error) {
	return t.readRegisters(FuncReadInputRegisters, start, count)
}

// ReadHoldingRegisters issues FC 0x03.
func (t *Transport) ReadHoldingRegisters(start, count uint16) ([]uint16, error) {
	return t.readRegisters(FuncReadHoldingRegisters, start, count)
}

func (t *Transport) readRegisters(fc byte, start, count uint16) ([]uint16, error) {
	if count == 0 || count > MaxReadRegisters {
		return nil, fmt.Errorf("rtu: register count %d out of range 1..%d", count, MaxReadRegisters)
	}

	_, adu, err := t.exchange(readRequest(fc, start, count), byteCounted)
	if err != nil {
		return nil, err
	}

	if int(adu[2]) != 2*int(count) {
		return nil, &ProtocolError{
			Function: fc,
			Reason:   fmt.Sprintf("byte count mismatch: got=%d want=%d", adu[2], 2*int(count)),
		}
	}

	return unpackRegisters(adu[readHeaderSize : len(adu)-crcSize])
}

// WriteSingleRegister issues FC 0x06. The device echoes the request.
func (t *Transport) WriteSingleRegister(reg, value uint16) error {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], reg)
	binary.BigEndian.PutUint16(data[2:4], value)
	return t.WriteCommand(FuncWriteSingleRegister, data)
}

// WriteCommand sends a command frame and expects the device to acknowledge
// with an exact echo of the request.
func (t *Transport) WriteCommand(fc byte, payload []byte) error {
	pdu := &modbus.ProtocolDataUnit{FunctionCode: fc, Data: payload}
	want := 2 + len(payload) + crcSize

	req, adu, err := t.exchange(pdu, want)
	if err != nil {
		return err
	}

	if !bytes.Equal(adu, req) {
		return &ProtocolError{Function: fc, Reason: "acknowledgment does not echo request"}
	}
	return nil
}

// ---- round trip ----

// exchange writes one request and reads one verified response of size n,
// or of the size announced by its byte count when n is byteCounted (or an
// exception response).
func (t *Transport) exchange(pdu *modbus.ProtocolDataUnit, n int) (req, adu []byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, nil, ErrClosed
	}

	started := time.Now()
	defer func() {
		if t.instrument != nil && t.instrument.RecordTime != nil {
			t.instrument.RecordTime(FunctionName(pdu.FunctionCode), time.Since(started), err)
		}
	}()

	if t.resync {
		t.drain()
		t.resync = false
	}

	t.waitSilence()

	req = Encode(t.addr, pdu)
	t.log.Debug("rtu tx", zap.String("frame", fmt.Sprintf("% x", req)))

	if _, err = t.port.Write(req); err != nil {
		t.lastActivity = time.Now()
		t.resync = true
		return nil, nil, fmt.Errorf("rtu: write: %w", err)
	}

	adu, err = t.readResponse(pdu.FunctionCode, n)
	t.lastActivity = time.Now()

	if len(adu) > 0 {
		t.log.Debug("rtu rx", zap.String("frame", fmt.Sprintf("% x", adu)))
	}

	if err != nil {
		// a late reply must not be taken for the next response
		t.resync = true
		return nil, nil, err
	}

	if err = verify(adu, t.addr, pdu.FunctionCode); err != nil {
		// a well formed exception frame leaves nothing behind on the line
		if pe, ok := err.(*ProtocolError); !ok || pe.Err == nil {
			t.resync = true
		}
		return nil, nil, err
	}
	return req, adu, nil
}

// readResponse reads the two header bytes, then the remainder of either an
// exception frame, a byte counted register frame or a fixed frame of size n.
func (t *Transport) readResponse(fc byte, n int) ([]byte, error) {
	deadline := time.Now().Add(t.timeout)
	buf := make([]byte, 2, maxResponseSize)

	got, err := t.readFull(buf, deadline)
	if err != nil {
		return buf[:got], t.readError(fc, got, err)
	}

	var rest int
	switch {
	case buf[1] == fc|exceptionFlag:
		rest = exceptionSize - 2
	case n == byteCounted:
		buf = buf[:readHeaderSize]
		m, err := t.readFull(buf[2:], deadline)
		if err != nil {
			return buf[:2+m], t.readError(fc, 2+m, err)
		}
		if int(buf[2]) > 2*MaxReadRegisters {
			return buf, &ProtocolError{
				Function: fc,
				Reason:   fmt.Sprintf("byte count %d exceeds %d", buf[2], 2*MaxReadRegisters),
			}
		}
		rest = int(buf[2]) + crcSize
	default:
		rest = n - 2
	}

	head := len(buf)
	buf = append(buf, make([]byte, rest)...)
	m, err := t.readFull(buf[head:], deadline)
	if err != nil {
		return buf[:head+m], t.readError(fc, head+m, err)
	}
	return buf, nil
}

func (t *Transport) readError(fc byte, received int, err error) error {
	if errors.Is(err, ErrTimeout) {
		return &TimeoutError{Function: fc, Timeout: t.timeout, Received: received}
	}
	return fmt.Errorf("rtu: read: %w", err)
}

// readFull fills p unless the deadline passes first. Port level timeouts
// before the deadline are retried.
func (t *Transport) readFull(p []byte, deadline time.Time) (int, error) {
	got := 0
	for got < len(p) {
		n, err := t.port.Read(p[got:])
		got += n
		if got == len(p) {
			return got, nil
		}
		if err != nil && !isTimeout(err) {
			return got, err
		}
		if !time.Now().Before(deadline) {
			return got, ErrTimeout
		}
	}
	return got, nil
}

// drain discards bytes left over from a failed exchange. It stops at the
// first empty read, bounded by one timeout.
func (t *Transport) drain() {
	deadline := time.Now().Add(t.timeout)
	buf := make([]byte, 64)
	dropped := 0
	for time.Now().Before(deadline) {
		n, err := t.port.Read(buf)
		dropped += n
		if n == 0 || err != nil {
			break
		}
	}
	if dropped > 0 {
		t.log.Debug("rtu resync", zap.Int("dropped_bytes", dropped))
	}
}

func (t *Transport) waitSilence() {
	if t.lastActivity.IsZero() {
		return
	}
	if d := t.frameDelay - time.Since(t.lastActivity); d > 0 {
		time.Sleep(d)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, serial.ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// FunctionName is the label used for instrumentation.
func FunctionName(fc byte) string {
	switch fc {
	case FuncReadHoldingRegisters:
		return "read_holding_registers"
	case FuncReadInputRegisters:
		return "read_input_registers"
	case FuncWriteSingleRegister:
		return "write_single_register"
	default:
		return fmt.Sprintf("function_0x%02x", fc)
	}
}
