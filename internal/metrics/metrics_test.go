package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {

	assert := assert.New(t)

	before := testutil.ToFloat64(framesCounter.With(prometheus.Labels{"role": "ev", "quantity": "current"}))
	CountFrame("ev", "current")
	CountFrame("ev", "current")
	assert.Equal(before+2, testutil.ToFloat64(framesCounter.With(prometheus.Labels{"role": "ev", "quantity": "current"})))

	CountWrite("0x0800", false)
	assert.Equal(1.0, testutil.ToFloat64(writesCounter.With(prometheus.Labels{"register": "0x0800", "result": "error"})))
}

func TestObserveCurrents(t *testing.T) {

	assert := assert.New(t)

	ObserveCurrents("mains", [3]int32{65, -122, 0})
	assert.Equal(6.5, testutil.ToFloat64(phaseCurrentGauge.With(prometheus.Labels{"role": "mains", "phase": "l1"})))
	assert.Equal(-12.2, testutil.ToFloat64(phaseCurrentGauge.With(prometheus.Labels{"role": "mains", "phase": "l2"})))
}

func TestModbusInstrumentation(t *testing.T) {
	inst := ModbusInstrumentation()
	inst.RecordTime("read", 20*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(modbusLatency))
}
