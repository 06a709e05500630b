package events

import (
	"testing"

	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
	"github.com/stretchr/testify/assert"
)

func TestMeterCurrentsToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	evs := MeterCurrentsToUpdateEvents(energy_meter.MeterState{
		Role:            "mains",
		Communicating:   true,
		PhaseCurrent:    [3]int32{65, -122, 5},
		MeasuredCurrent: 65,
		MeasuredPower:   -1200,
	})

	assert.Len(evs, 6)
	l2, ok := evs[1].(domain.FloatSensorUpdateEvent)
	assert.True(ok)
	assert.Equal("mains_current_l2", l2.SensorId())
	assert.Equal(-12.2, l2.Value)

	comm, ok := evs[5].(domain.BinarySensorUpdateEvent)
	assert.True(ok)
	assert.Equal("mains_communicating", comm.SensorId())
	assert.True(comm.Value)
}

func TestMeterEnergyToUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	mains := MeterEnergyToUpdateEvents(energy_meter.MeterState{Role: "mains", ImportedEnergy: 5100, ExportedEnergy: 200})
	assert.Len(mains, 2)
	assert.Equal(5.1, mains[0].(domain.FloatSensorUpdateEvent).Value)

	ev := MeterEnergyToUpdateEvents(energy_meter.MeterState{Role: "ev", ChargedEnergy: 1234})
	assert.Len(ev, 3)
	charged := ev[2].(domain.FloatSensorUpdateEvent)
	assert.Equal("ev_energy_charged", charged.SensorId())
	assert.Equal(1.234, charged.Value)
}

func TestMainsAggregateUpdateEvents(t *testing.T) {

	assert := assert.New(t)

	evs := MainsAggregateUpdateEvents(domain.MainsAggregate{Isum: 415, Limit: 400, OverLimit: true})
	assert.Equal(41.5, evs[0].(domain.FloatSensorUpdateEvent).Value)
	assert.True(evs[1].(domain.BinarySensorUpdateEvent).Value)
}
