// internal/pzem/decode_test.go
package pzem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/pzem004t/internal/rtu"
)

func TestDecode_ReferenceFrame(t *testing.T) {
	m, err := Decode([]uint16{2300, 1500, 0, 250, 0, 1000, 0, 500, 98, 0})
	require.NoError(t, err)

	assert.Equal(t, Measurement{
		Voltage:     230.0,
		Current:     1.5,
		Power:       25.0,
		Energy:      1000,
		Frequency:   50.0,
		PowerFactor: 0.98,
		Alarm:       0,
	}, m)
	assert.False(t, m.Alarmed())
}

func TestDecode_HighWords(t *testing.T) {
	m, err := Decode([]uint16{2401, 0x0001, 0x0002, 0xFFFF, 0x0001, 0x5678, 0x1234, 599, 100, 0xFFFF})
	require.NoError(t, err)

	assert.Equal(t, 240.1, m.Voltage)
	assert.Equal(t, float64(0x00020001)/1000, m.Current)
	assert.Equal(t, float64(0x0001FFFF)/10, m.Power)
	assert.Equal(t, uint32(0x12345678), m.Energy)
	assert.Equal(t, 59.9, m.Frequency)
	assert.Equal(t, 1.0, m.PowerFactor)
	assert.True(t, m.Alarmed())
}

func TestDecode_ShortFrame(t *testing.T) {
	for n := 0; n < FrameRegisters; n++ {
		_, err := Decode(make([]uint16, n))
		require.Error(t, err)
		assert.True(t, errors.Is(err, rtu.ErrFrame))

		var fe *rtu.FrameError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, FrameRegisters, fe.Want)
		assert.Equal(t, n, fe.Got)
	}
}
