// internal/rtu/transport_test.go
package rtu

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- scripted port ----

type portTimeout struct{}

func (portTimeout) Error() string { return "port: read timeout" }
func (portTimeout) Timeout() bool { return true }

// scriptedPort answers each written frame with reply(req) and reports a
// port level timeout whenever nothing is pending.
type scriptedPort struct {
	mu      sync.Mutex
	written [][]byte
	pending []byte
	reply   func(req []byte) []byte
	closed  bool
}

func (p *scriptedPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	req := append([]byte(nil), b...)
	p.written = append(p.written, req)
	if p.reply != nil {
		p.pending = append(p.pending, p.reply(req)...)
	}
	return len(b), nil
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		return 0, portTimeout{}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	p.mu.Unlock()
	return n, nil
}

func (p *scriptedPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *scriptedPort) inject(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, b...)
}

func newTestTransport(p *scriptedPort) *Transport {
	return New(p, Config{Port: "test", Timeout: 50 * time.Millisecond, BaudRate: 115200})
}

// referenceFrame answers 10 input registers [2300,1500,0,250,0,1000,0,500,98,0].
func referenceFrame(req []byte) []byte {
	return []byte{
		0xF8, 0x04, 0x14,
		0x08, 0xFC, 0x05, 0xDC, 0x00, 0x00, 0x00, 0xFA, 0x00, 0x00,
		0x03, 0xE8, 0x00, 0x00, 0x01, 0xF4, 0x00, 0x62, 0x00, 0x00,
		0x2A, 0xEB,
	}
}

func echo(req []byte) []byte { return req }

// ---- reads ----

func TestReadInputRegisters_ReferenceFrame(t *testing.T) {
	p := &scriptedPort{reply: referenceFrame}
	tr := newTestTransport(p)

	regs, err := tr.ReadInputRegisters(0x0000, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint16{2300, 1500, 0, 250, 0, 1000, 0, 500, 98, 0}, regs)

	require.Len(t, p.written, 1)
	assert.Equal(t, []byte{0xF8, 0x04, 0x00, 0x00, 0x00, 0x0A, 0x64, 0x64}, p.written[0])
}

func TestReadHoldingRegisters_RequestAndDecode(t *testing.T) {
	p := &scriptedPort{reply: func(req []byte) []byte {
		return AppendCRC([]byte{0xF8, 0x03, 0x04, 0x00, 0x64, 0x00, 0xF8})
	}}
	tr := newTestTransport(p)

	regs, err := tr.ReadHoldingRegisters(0x0001, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint16{100, 0xF8}, regs)
	assert.Equal(t, []byte{0xF8, 0x03, 0x00, 0x01, 0x00, 0x02, 0x81, 0xA2}, p.written[0])
}

func TestRead_RejectsCountOutOfRange(t *testing.T) {
	tr := newTestTransport(&scriptedPort{})

	_, err := tr.ReadInputRegisters(0, 0)
	assert.Error(t, err)
	_, err = tr.ReadInputRegisters(0, MaxReadRegisters+1)
	assert.Error(t, err)
}

// ---- failures ----

func TestRead_SilentDeviceTimesOut(t *testing.T) {
	tr := newTestTransport(&scriptedPort{})

	started := time.Now()
	regs, err := tr.ReadInputRegisters(0, 10)
	assert.Nil(t, regs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.GreaterOrEqual(t, time.Since(started), 50*time.Millisecond)

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 0, te.Received)
	assert.Equal(t, FuncReadInputRegisters, te.Function)
	assert.Equal(t, CodeTimeout, te.Code())
}

func TestRead_PartialResponseTimesOut(t *testing.T) {
	p := &scriptedPort{reply: func(req []byte) []byte { return referenceFrame(req)[:7] }}
	tr := newTestTransport(p)

	_, err := tr.ReadInputRegisters(0, 10)

	var te *TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 7, te.Received)
}

func TestRead_DeviceException(t *testing.T) {
	p := &scriptedPort{reply: func(req []byte) []byte {
		return AppendCRC([]byte{0xF8, 0x84, 0x02})
	}}
	tr := newTestTransport(p)

	_, err := tr.ReadInputRegisters(0x0100, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocol))

	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	exc, ok := pe.Exception()
	require.True(t, ok)
	assert.Equal(t, byte(modbus.ExceptionCodeIllegalDataAddress), exc.ExceptionCode)
	assert.Equal(t, uint16(0x82), pe.Code())

	var mbErr *modbus.ModbusError
	assert.True(t, errors.As(err, &mbErr))
}

func TestRead_ProtocolMismatches(t *testing.T) {
	cases := []struct {
		name  string
		reply func(req []byte) []byte
	}{
		{"crc", func(req []byte) []byte {
			f := referenceFrame(req)
			f[len(f)-1] ^= 0xFF
			return f
		}},
		{"slave address", func(req []byte) []byte {
			f := referenceFrame(req)
			f[0] = 0x01
			return AppendCRC(f[:len(f)-2])
		}},
		{"function code", func(req []byte) []byte {
			f := referenceFrame(req)
			f[1] = 0x03
			return AppendCRC(f[:len(f)-2])
		}},
		{"byte count shifts crc", func(req []byte) []byte {
			f := referenceFrame(req)
			f[2] = 0x12
			return AppendCRC(f[:len(f)-2])
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTestTransport(&scriptedPort{reply: tc.reply})

			regs, err := tr.ReadInputRegisters(0, 10)
			assert.Nil(t, regs)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProtocol), "got %v", err)

			var pe *ProtocolError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, CodeProtocol, pe.Code())
		})
	}
}

func TestRead_ShortRegisterReplyIsProtocolError(t *testing.T) {
	// a well formed reply carrying 9 registers instead of 10
	p := &scriptedPort{reply: func(req []byte) []byte {
		f := referenceFrame(req)
		short := append([]byte{0xF8, 0x04, 0x12}, f[3:21]...)
		return AppendCRC(short)
	}}
	tr := newTestTransport(p)

	started := time.Now()
	regs, err := tr.ReadInputRegisters(0, 10)
	assert.Nil(t, regs)
	require.Error(t, err)
	assert.Less(t, time.Since(started), 50*time.Millisecond)
	assert.True(t, errors.Is(err, ErrProtocol), "got %v", err)
	assert.False(t, errors.Is(err, ErrTimeout))

	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.Reason, "byte count mismatch")
	assert.Equal(t, CodeProtocol, pe.Code())

	// nothing is left on the line for the next exchange
	p.reply = referenceFrame
	regs, err = tr.ReadInputRegisters(0, 10)
	require.NoError(t, err)
	assert.Len(t, regs, 10)
}

func TestRead_OversizedByteCountIsProtocolError(t *testing.T) {
	p := &scriptedPort{reply: func(req []byte) []byte {
		return []byte{0xF8, 0x04, 0xFF, 0x00, 0x01}
	}}
	tr := newTestTransport(p)

	started := time.Now()
	_, err := tr.ReadInputRegisters(0, 10)
	assert.Less(t, time.Since(started), 50*time.Millisecond)
	assert.True(t, errors.Is(err, ErrProtocol), "got %v", err)
}

func TestRead_LateReplyIsDiscarded(t *testing.T) {
	p := &scriptedPort{}
	tr := newTestTransport(p)

	_, err := tr.ReadInputRegisters(0, 10)
	require.True(t, errors.Is(err, ErrTimeout))

	// the answer to the first request arrives after its deadline
	p.inject(referenceFrame(nil)[:11])
	p.reply = referenceFrame

	regs, err := tr.ReadInputRegisters(0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint16(2300), regs[0])
}

// ---- commands ----

func TestWriteCommand_ResetEcho(t *testing.T) {
	p := &scriptedPort{reply: echo}
	tr := newTestTransport(p)

	require.NoError(t, tr.WriteCommand(0x42, nil))
	assert.Equal(t, []byte{0xF8, 0x42, 0xC2, 0x41}, p.written[0])
}

func TestWriteCommand_RejectsNonEcho(t *testing.T) {
	p := &scriptedPort{reply: func(req []byte) []byte {
		return AppendCRC([]byte{0xF8, 0x06, 0x00, 0x02, 0x00, 0x02})
	}}
	tr := newTestTransport(p)

	err := tr.WriteSingleRegister(0x0002, 0x0001)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocol))
}

func TestWriteCommand_SilentDevice(t *testing.T) {
	tr := newTestTransport(&scriptedPort{})

	err := tr.WriteCommand(0x42, nil)
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestWriteSingleRegister_Frame(t *testing.T) {
	p := &scriptedPort{reply: echo}
	tr := newTestTransport(p)

	require.NoError(t, tr.WriteSingleRegister(0x0002, 0x0001))
	assert.Equal(t, []byte{0xF8, 0x06, 0x00, 0x02, 0x00, 0x01, 0xFD, 0xA3}, p.written[0])
}

// ---- lifecycle ----

func TestSetAddress_ChangesTarget(t *testing.T) {
	p := &scriptedPort{reply: echo}
	tr := newTestTransport(p)

	tr.SetAddress(0x01)
	assert.Equal(t, byte(0x01), tr.Address())
	require.NoError(t, tr.WriteCommand(0x42, nil))
	assert.Equal(t, byte(0x01), p.written[0][0])
}

func TestClose_Idempotent(t *testing.T) {
	p := &scriptedPort{reply: echo}
	tr := newTestTransport(p)

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.True(t, p.closed)

	_, err := tr.ReadInputRegisters(0, 10)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, p.written)
}

func TestInstrument_RecordsEveryRoundTrip(t *testing.T) {
	type call struct {
		fn  string
		err error
	}
	var calls []call

	p := &scriptedPort{reply: referenceFrame}
	tr := New(p, Config{
		Timeout: 50 * time.Millisecond,
		Instrument: &Instrument{RecordTime: func(fn string, _ time.Duration, err error) {
			calls = append(calls, call{fn, err})
		}},
	})

	_, err := tr.ReadInputRegisters(0, 10)
	require.NoError(t, err)

	p.reply = nil
	_, err = tr.ReadInputRegisters(0, 10)
	require.Error(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, "read_input_registers", calls[0].fn)
	assert.NoError(t, calls[0].err)
	assert.ErrorIs(t, calls[1].err, ErrTimeout)
}

func TestFrameDelay(t *testing.T) {
	assert.Equal(t, 3645*time.Microsecond, frameDelay(9600))
	assert.Equal(t, 1822*time.Microsecond, frameDelay(19200))
	assert.Equal(t, 1750*time.Microsecond, frameDelay(115200))
	assert.Equal(t, 1750*time.Microsecond, frameDelay(0))
}

func TestNew_Defaults(t *testing.T) {
	tr := New(&scriptedPort{}, Config{})
	assert.Equal(t, byte(DefaultAddress), tr.Address())
	assert.Equal(t, DefaultTimeout, tr.Timeout())
}
