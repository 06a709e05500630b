package domain

import "strconv"

// Home Assistant components, each one owns a state topic family.
const (
	COMPONENT_SENSOR        = "sensor"
	COMPONENT_BINARY_SENSOR = "binary_sensor"
	COMPONENT_SWITCH        = "switch"
	COMPONENT_NUMBER        = "number"
	COMPONENT_BRIDGE        = "bridge"
)

const (
	PAYLOAD_ON      = "on"
	PAYLOAD_OFF     = "off"
	PAYLOAD_ONLINE  = "online"
	PAYLOAD_OFFLINE = "offline"
)

// SensorUpdateEvent is a state change published on the event stream. It
// renders its own payload so adapters only need to pick the topic.
type SensorUpdateEvent interface {
	SensorId() string
	Component() string
	Payload() string
	Retained() bool
}

type SensorUpdateEventMixIn struct {
	Id string
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

// FloatSensorUpdateEvent is a measurement, rounded to Decimals on the wire.
type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

func (e FloatSensorUpdateEvent) Component() string { return COMPONENT_SENSOR }
func (e FloatSensorUpdateEvent) Payload() string   { return formatDecimals(e.Value, e.Decimals) }
func (e FloatSensorUpdateEvent) Retained() bool    { return false }

type BinarySensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

func (e BinarySensorUpdateEvent) Component() string { return COMPONENT_BINARY_SENSOR }
func (e BinarySensorUpdateEvent) Payload() string   { return onOff(e.Value) }
func (e BinarySensorUpdateEvent) Retained() bool    { return false }

// SwitchSensorUpdateEvent mirrors a session switch. Retained so Home Assistant
// restores the switch position after a restart.
type SwitchSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

func (e SwitchSensorUpdateEvent) Component() string { return COMPONENT_SWITCH }
func (e SwitchSensorUpdateEvent) Payload() string   { return onOff(e.Value) }
func (e SwitchSensorUpdateEvent) Retained() bool    { return true }

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

func (e TextSensorUpdateEvent) Component() string { return COMPONENT_SENSOR }
func (e TextSensorUpdateEvent) Payload() string   { return e.Value }
func (e TextSensorUpdateEvent) Retained() bool    { return false }

// BridgeStateUpdateEvent is the availability of the bridge itself.
type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Online bool
}

func (e BridgeStateUpdateEvent) Component() string { return COMPONENT_BRIDGE }
func (e BridgeStateUpdateEvent) Retained() bool    { return true }
func (e BridgeStateUpdateEvent) Payload() string {
	if e.Online {
		return PAYLOAD_ONLINE
	}
	return PAYLOAD_OFFLINE
}

type InputNumberSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

func (e InputNumberSensorUpdateEvent) Component() string { return COMPONENT_NUMBER }
func (e InputNumberSensorUpdateEvent) Payload() string   { return formatDecimals(e.Value, e.Decimals) }
func (e InputNumberSensorUpdateEvent) Retained() bool    { return true }

func formatDecimals(v float64, decimals uint) string {
	return strconv.FormatFloat(v, 'f', int(decimals), 64)
}

func onOff(v bool) string {
	if v {
		return PAYLOAD_ON
	}
	return PAYLOAD_OFF
}

// ensure interface compliance
var _ SensorUpdateEvent = FloatSensorUpdateEvent{}
var _ SensorUpdateEvent = BinarySensorUpdateEvent{}
var _ SensorUpdateEvent = SwitchSensorUpdateEvent{}
var _ SensorUpdateEvent = TextSensorUpdateEvent{}
var _ SensorUpdateEvent = BridgeStateUpdateEvent{}
var _ SensorUpdateEvent = InputNumberSensorUpdateEvent{}
