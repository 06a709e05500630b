package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSensorUpdateEventPayloads(t *testing.T) {

	assert := assert.New(t)

	current := FloatSensorUpdateEvent{SensorUpdateEventMixIn{Id: "mains_current_l1"}, 6.26, 1}
	assert.Equal(COMPONENT_SENSOR, current.Component())
	assert.Equal("6.3", current.Payload())
	assert.False(current.Retained())

	energy := FloatSensorUpdateEvent{SensorUpdateEventMixIn{Id: "ev_energy_imported"}, 12.3456, 3}
	assert.Equal("12.346", energy.Payload())

	comm := BinarySensorUpdateEvent{SensorUpdateEventMixIn{Id: "ev_communicating"}, true}
	assert.Equal(COMPONENT_BINARY_SENSOR, comm.Component())
	assert.Equal(PAYLOAD_ON, comm.Payload())

	sw := SwitchSensorUpdateEvent{SensorUpdateEventMixIn{Id: SWITCH_ID_CHARGING}, false}
	assert.Equal(COMPONENT_SWITCH, sw.Component())
	assert.Equal(PAYLOAD_OFF, sw.Payload())
	assert.True(sw.Retained())

	wifi := InputNumberSensorUpdateEvent{SensorUpdateEventMixIn{Id: INPUT_NUMBER_ID_SENSORBOX_WIFI_MODE}, 2, 0}
	assert.Equal(COMPONENT_NUMBER, wifi.Component())
	assert.Equal("2", wifi.Payload())
	assert.True(wifi.Retained())

	bridge := BridgeStateUpdateEvent{Online: false}
	assert.Equal(COMPONENT_BRIDGE, bridge.Component())
	assert.Equal(PAYLOAD_OFFLINE, bridge.Payload())
	assert.True(bridge.Retained())
}
