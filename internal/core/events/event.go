package events

import (
	. "github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
)

func deciAmps(dA int32) float64 {
	return float64(dA) / 10
}

func kiloWattHours(wh int32) float64 {
	return float64(wh) / 1000
}

func floatEvent(id string, value float64, decimals uint) FloatSensorUpdateEvent {
	return FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: id,
		},
		Value:    value,
		Decimals: decimals,
	}
}

func MeterCurrentsToUpdateEvents(s energy_meter.MeterState) []any {
	var events []any

	ids := []string{SENSOR_ID_PHASE_CURRENT_L1, SENSOR_ID_PHASE_CURRENT_L2, SENSOR_ID_PHASE_CURRENT_L3}
	for i, id := range ids {
		events = append(events, floatEvent(MeterSensorId(s.Role, id), deciAmps(s.PhaseCurrent[i]), 1))
	}
	events = append(events, floatEvent(MeterSensorId(s.Role, SENSOR_ID_MEASURED_CURRENT), deciAmps(s.MeasuredCurrent), 1))
	events = append(events, floatEvent(MeterSensorId(s.Role, SENSOR_ID_POWER), float64(s.MeasuredPower), 0))
	events = append(events, MeterCommunicationUpdateEvent(s))

	return events
}

func MeterPowerToUpdateEvents(s energy_meter.MeterState) []any {
	return []any{floatEvent(MeterSensorId(s.Role, SENSOR_ID_POWER), float64(s.MeasuredPower), 0)}
}

func MeterEnergyToUpdateEvents(s energy_meter.MeterState) []any {
	var events []any

	events = append(events, floatEvent(MeterSensorId(s.Role, SENSOR_ID_ENERGY_IMPORTED), kiloWattHours(s.ImportedEnergy), 3))
	events = append(events, floatEvent(MeterSensorId(s.Role, SENSOR_ID_ENERGY_EXPORTED), kiloWattHours(s.ExportedEnergy), 3))
	if s.Role == energy_meter.ROLE_EV.String() {
		events = append(events, floatEvent(MeterSensorId(s.Role, SENSOR_ID_ENERGY_CHARGED), kiloWattHours(s.ChargedEnergy), 3))
	}

	return events
}

func MeterCommunicationUpdateEvent(s energy_meter.MeterState) any {
	return BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: MeterSensorId(s.Role, SENSOR_ID_COMMUNICATING),
		},
		Value: s.Communicating,
	}
}

func MainsAggregateUpdateEvents(agg MainsAggregate) []any {
	var events []any
	events = append(events, floatEvent(SENSOR_ID_MAINS_ISUM, deciAmps(agg.Isum), 1))
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_MAINS_OVER_LIMIT,
		},
		Value: agg.OverLimit,
	})
	return events
}

func EVLimitUpdateEvents(limit EVLimit) []any {
	return []any{BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_EV_OVER_LIMIT,
		},
		Value: limit.OverLimit,
	}}
}

func SensorboxUpdateEvents(status energy_meter.SensorboxStatus, desiredWiFiMode energy_meter.WiFiMode) []any {
	var events []any

	events = append(events, floatEvent(SENSOR_ID_SENSORBOX_VERSION, float64(status.SoftwareVersion), 0))
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SENSORBOX_IP,
		},
		Value: status.IP,
	})
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SENSORBOX_WIFI,
		},
		Value: status.WiFiConnected,
	})
	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_SENSORBOX_SYNC,
		},
		Value: status.Sync,
	})
	events = append(events, SensorboxWiFiModeUpdateEvent(desiredWiFiMode))

	return events
}

func SensorboxWiFiModeUpdateEvent(mode energy_meter.WiFiMode) any {
	return InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: INPUT_NUMBER_ID_SENSORBOX_WIFI_MODE,
		},
		Value: float64(mode),
	}
}

func SessionSwitchesUpdateEvents(evConnected, charging bool) []any {
	var events []any
	events = append(events, SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_EV_CONNECTED,
		},
		Value: evConnected,
	})
	events = append(events, SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_CHARGING,
		},
		Value: charging,
	})
	return events
}
