// internal/metrics/metrics_test.go
package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/pzem004t/internal/pzem"
	"github.com/tamzrod/pzem004t/internal/rtu"
)

func TestInstrument_CountsByResult(t *testing.T) {
	m := New()
	ins := m.Instrument()

	ins.RecordTime("read_input_registers", 20*time.Millisecond, nil)
	ins.RecordTime("read_input_registers", 2*time.Second, &rtu.TimeoutError{})
	ins.RecordTime("read_input_registers", 2*time.Second, &rtu.TimeoutError{})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("read_input_registers", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("read_input_registers", "timeout")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestObserveMeasurement(t *testing.T) {
	m := New()
	m.ObserveMeasurement("garage", pzem.Measurement{
		Voltage:     230,
		Current:     1.5,
		Power:       25,
		Energy:      1000,
		Frequency:   50,
		PowerFactor: 0.98,
		Alarm:       0xFFFF,
	})

	assert.Equal(t, 230.0, testutil.ToFloat64(m.gauges[GaugeVoltage].WithLabelValues("garage")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.gauges[GaugeCurrent].WithLabelValues("garage")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.gauges[GaugePower].WithLabelValues("garage")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.gauges[GaugeEnergy].WithLabelValues("garage")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.gauges[GaugeFrequency].WithLabelValues("garage")))
	assert.Equal(t, 0.98, testutil.ToFloat64(m.gauges[GaugePowerFactor].WithLabelValues("garage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gauges[GaugeAlarm].WithLabelValues("garage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("garage", "ok")))
}

func TestObservePollError(t *testing.T) {
	m := New()
	m.ObservePollError("garage", &rtu.ProtocolError{Reason: "crc"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("garage", "protocol")))
}

func TestStatusGauges(t *testing.T) {
	m := New()
	m.SetHealth("garage", 2)
	m.SetLastErrorCode("garage", 0x82)
	m.SetSecondsInError("garage", 7)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.health.WithLabelValues("garage")))
	assert.Equal(t, 130.0, testutil.ToFloat64(m.lastErrorCode.WithLabelValues("garage")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.secondsInError.WithLabelValues("garage")))
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.SetHealth("garage", 1)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `pzem_health{meter="garage"} 1`))
}
