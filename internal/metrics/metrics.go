package metrics

import (
	"time"

	"github.com/berfenger/evsemeter2mqtt/pkg/modbus_transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var framesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evsemeter",
	Name:      "frames_total",
	Help:      "Response frames applied to a meter, by updated quantity.",
}, []string{"role", "quantity"})

var readErrorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evsemeter",
	Name:      "read_errors_total",
	Help:      "Failed register reads.",
}, []string{"role"})

var writesCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evsemeter",
	Name:      "register_writes_total",
	Help:      "Single register writes emitted by meters.",
}, []string{"register", "result"})

var timeoutsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evsemeter",
	Name:      "communication_timeouts_total",
	Help:      "Times a meter stopped communicating.",
}, []string{"role"})

var phaseCurrentGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "evsemeter",
	Name:      "phase_current_amperes",
	Help:      "Last decoded phase current.",
}, []string{"role", "phase"})

var powerGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "evsemeter",
	Name:      "power_watts",
	Help:      "Last decoded power.",
}, []string{"role"})

var modbusLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "evsemeter",
	Name:      "modbus_request_seconds",
	Help:      "Modbus request latency.",
	Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
}, []string{"function"})

var phases = []string{"l1", "l2", "l3"}

func CountFrame(role, quantity string) {
	framesCounter.With(prometheus.Labels{"role": role, "quantity": quantity}).Inc()
}

func CountReadError(role string) {
	readErrorsCounter.With(prometheus.Labels{"role": role}).Inc()
}

func CountWrite(register string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	writesCounter.With(prometheus.Labels{"register": register, "result": result}).Inc()
}

func CountTimeout(role string) {
	timeoutsCounter.With(prometheus.Labels{"role": role}).Inc()
}

// ObserveCurrents records phase currents given in dA.
func ObserveCurrents(role string, phaseCurrent [3]int32) {
	for i, phase := range phases {
		phaseCurrentGauge.With(prometheus.Labels{"role": role, "phase": phase}).Set(float64(phaseCurrent[i]) / 10)
	}
}

func ObservePower(role string, watts int32) {
	powerGauge.With(prometheus.Labels{"role": role}).Set(float64(watts))
}

// ModbusInstrumentation feeds transport timings into the latency histogram.
func ModbusInstrumentation() *modbus_transport.ModbusInstrument {
	return &modbus_transport.ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			modbusLatency.With(prometheus.Labels{"function": fnName}).Observe(readTime.Seconds())
		},
	}
}
