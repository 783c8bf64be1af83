// internal/metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tamzrod/pzem004t/internal/pzem"
	"github.com/tamzrod/pzem004t/internal/rtu"
)

const namespace = "pzem"

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	reg *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	polls    *prometheus.CounterVec

	gauges map[string]*prometheus.GaugeVec

	health         *prometheus.GaugeVec
	lastErrorCode  *prometheus.GaugeVec
	secondsInError *prometheus.GaugeVec
}

// Measurement gauge names.
const (
	GaugeVoltage     = "voltage_volts"
	GaugeCurrent     = "current_amperes"
	GaugePower       = "power_watts"
	GaugeEnergy      = "energy_watt_hours"
	GaugeFrequency   = "frequency_hertz"
	GaugePowerFactor = "power_factor"
	GaugeAlarm       = "alarm"
)

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modbus_requests_total",
			Help:      "Modbus RTU round trips by function and result.",
		}, []string{"function", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "modbus_request_duration_seconds",
			Help:      "Modbus RTU round trip latency.",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2, 5},
		}, []string{"function"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Poll cycles by meter and result.",
		}, []string{"meter", "result"}),
		gauges: map[string]*prometheus.GaugeVec{},
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "health",
			Help:      "Meter health code (0 unknown, 1 ok, 2 error, 3 stale).",
		}, []string{"meter"}),
		lastErrorCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_error_code",
			Help:      "Last error code (0 ok, 1 generic, 2 timeout, 3 protocol, 4 frame, 0x80|n device exception n).",
		}, []string{"meter"}),
		secondsInError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seconds_in_error",
			Help:      "Seconds since the meter left the ok state.",
		}, []string{"meter"}),
	}

	m.addGauge(GaugeVoltage, "Line voltage (V).")
	m.addGauge(GaugeCurrent, "Line current (A).")
	m.addGauge(GaugePower, "Active power (W).")
	m.addGauge(GaugeEnergy, "Active energy counter (Wh).")
	m.addGauge(GaugeFrequency, "Line frequency (Hz).")
	m.addGauge(GaugePowerFactor, "Power factor.")
	m.addGauge(GaugeAlarm, "Power alarm (1 active).")

	m.reg.MustRegister(
		m.requests, m.duration, m.polls,
		m.health, m.lastErrorCode, m.secondsInError,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	for _, g := range m.gauges {
		m.reg.MustRegister(g)
	}

	return m
}

func (m *Metrics) addGauge(name, help string) {
	m.gauges[name] = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, []string{"meter"})
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Instrument returns the transport hook feeding the request metrics.
func (m *Metrics) Instrument() *rtu.Instrument {
	return &rtu.Instrument{
		RecordTime: func(function string, elapsed time.Duration, err error) {
			m.requests.WithLabelValues(function, rtu.Kind(err)).Inc()
			m.duration.WithLabelValues(function).Observe(elapsed.Seconds())
		},
	}
}

// ---- measurement sink ----

func (m *Metrics) ObserveMeasurement(meter string, x pzem.Measurement) {
	m.polls.WithLabelValues(meter, "ok").Inc()

	m.gauges[GaugeVoltage].WithLabelValues(meter).Set(x.Voltage)
	m.gauges[GaugeCurrent].WithLabelValues(meter).Set(x.Current)
	m.gauges[GaugePower].WithLabelValues(meter).Set(x.Power)
	m.gauges[GaugeEnergy].WithLabelValues(meter).Set(float64(x.Energy))
	m.gauges[GaugeFrequency].WithLabelValues(meter).Set(x.Frequency)
	m.gauges[GaugePowerFactor].WithLabelValues(meter).Set(x.PowerFactor)

	alarm := 0.0
	if x.Alarmed() {
		alarm = 1
	}
	m.gauges[GaugeAlarm].WithLabelValues(meter).Set(alarm)
}

func (m *Metrics) ObservePollError(meter string, err error) {
	m.polls.WithLabelValues(meter, rtu.Kind(err)).Inc()
}

// ---- status sink ----

func (m *Metrics) SetHealth(meter string, v uint16) {
	m.health.WithLabelValues(meter).Set(float64(v))
}

func (m *Metrics) SetLastErrorCode(meter string, v uint16) {
	m.lastErrorCode.WithLabelValues(meter).Set(float64(v))
}

func (m *Metrics) SetSecondsInError(meter string, v uint16) {
	m.secondsInError.WithLabelValues(meter).Set(float64(v))
}
