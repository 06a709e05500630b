package domain

import (
	"fmt"

	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_MODBUS       = "modbus"
	ACTOR_ID_METERING     = "metering"
	ACTOR_ID_WATCHDOG     = "watchdog"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type ModbusReadRequest struct {
	ActorRequestMixIn
	Request energy_meter.ReadRequest
}

type ModbusReadResponse struct {
	ActorResponseMixIn
	Request energy_meter.ReadRequest
	Frame   energy_meter.ResponseFrame
}

type ModbusWriteRequest struct {
	ActorRequestMixIn
	Address  uint8
	Register uint16
	Value    uint16
}

type ModbusWriteResponse struct {
	ActorResponseMixIn
	Address  uint8
	Register uint16
}

// WatchdogTick advances the meter communication timeouts by one second.
type WatchdogTick struct {
}

type GetMetersStateRequest struct {
	ActorRequestMixIn
}

type GetMetersStateResponse struct {
	ActorResponseMixIn
	Mains        *energy_meter.MeterState `json:"mains,omitempty"`
	EV           *energy_meter.MeterState `json:"ev,omitempty"`
	MainsLimit   MainsAggregate           `json:"mains_limit"`
	EVLimit      EVLimit                  `json:"ev_limit"`
	PollCycles   uint32                   `json:"poll_cycles"`
	ReadFailures uint32                   `json:"read_failures"`
}

// SessionStartRequest marks the start of charging (B -> C).
type SessionStartRequest struct {
	ActorRequestMixIn
}

type SessionStartResponse struct {
	ActorResponseMixIn
	Reset bool
}

// EVDisconnectedRequest marks the EV leaving (state A).
type EVDisconnectedRequest struct {
	ActorRequestMixIn
}

type EVDisconnectedResponse struct {
	ActorResponseMixIn
}

// SetApiMeterRequest feeds a meter that is not polled. Power and Energy are optional.
type SetApiMeterRequest struct {
	ActorRequestMixIn
	Role     energy_meter.Role
	Currents [3]int32
	Power    *int32
	Energy   *int32
}

// API_CURRENT_LIMIT bounds fed phase currents in dA. Mains currents may be
// negative down to -API_CURRENT_LIMIT, EV currents may not.
const API_CURRENT_LIMIT = 2000

func (r SetApiMeterRequest) Validate() error {
	low := int32(-API_CURRENT_LIMIT)
	if r.Role == energy_meter.ROLE_EV {
		low = 0
	}
	for i, v := range r.Currents {
		if v < low || v > API_CURRENT_LIMIT {
			return fmt.Errorf("%s current L%d %d out of range [%d, %d]", r.Role, i+1, v, low, API_CURRENT_LIMIT)
		}
	}
	return nil
}

type SetApiMeterResponse struct {
	ActorResponseMixIn
}

type SetSensorboxWiFiModeRequest struct {
	ActorRequestMixIn
	Mode energy_meter.WiFiMode
}

type SetSensorboxWiFiModeResponse struct {
	ActorResponseMixIn
}

// SetMaxSumMainsRequest applies a validated sum-of-mains limit, in A.
type SetMaxSumMainsRequest struct {
	ActorRequestMixIn
	MaxSumMains uint16
}

type SetMaxSumMainsResponse struct {
	ActorResponseMixIn
}

// PublishDiscoveryRequest is answered once every config entry is handed to
// the client.
type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}

// ensure interface compliance
var _ ActorRequest = (*ModbusReadRequest)(nil)
var _ ActorResponse = (*ModbusReadResponse)(nil)
