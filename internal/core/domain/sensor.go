package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE              = "bridge"
	SENSOR_ID_PHASE_CURRENT_L1          = "current_l1"
	SENSOR_ID_PHASE_CURRENT_L2          = "current_l2"
	SENSOR_ID_PHASE_CURRENT_L3          = "current_l3"
	SENSOR_ID_MEASURED_CURRENT          = "measured_current"
	SENSOR_ID_POWER                     = "power"
	SENSOR_ID_ENERGY_IMPORTED           = "energy_imported"
	SENSOR_ID_ENERGY_EXPORTED           = "energy_exported"
	SENSOR_ID_ENERGY_CHARGED            = "energy_charged"
	SENSOR_ID_COMMUNICATING             = "communicating"
	SENSOR_ID_MAINS_ISUM                = "mains_isum"
	SENSOR_ID_MAINS_OVER_LIMIT          = "mains_over_limit"
	SENSOR_ID_EV_OVER_LIMIT             = "ev_over_limit"
	SENSOR_ID_SENSORBOX_VERSION         = "sensorbox_version"
	SENSOR_ID_SENSORBOX_IP              = "sensorbox_ip"
	SENSOR_ID_SENSORBOX_WIFI            = "sensorbox_wifi_connected"
	SENSOR_ID_SENSORBOX_SYNC            = "sensorbox_sync"
	SWITCH_ID_EV_CONNECTED              = "ev_connected"
	SWITCH_ID_CHARGING                  = "charging"
	INPUT_NUMBER_ID_SENSORBOX_WIFI_MODE = "sensorbox_wifi_mode"
	STATE_CLASS_MEASUREMENT             = "measurement"
	STATE_CLASS_TOTAL                   = "total"
	STATE_CLASS_TOTAL_INCREASING        = "total_increasing"
	DEVICE_CLASS_CURRENT                = "current"
	DEVICE_CLASS_ENERGY                 = "energy"
	DEVICE_CLASS_POWER                  = "power"
	DEVICE_CLASS_CONNECTIVITY           = "connectivity"
	DEVICE_CLASS_PROBLEM                = "problem"
	ENTITY_CLASS_DIAGNOSTIC             = "diagnostic"
	ENTITY_CLASS_CONFIG                 = "config"
	INPUT_NUMBER_MODE_BOX               = "box"
	INPUT_NUMBER_MODE_SLIDER            = "slider"
)

// MeterSensorId prefixes a per meter sensor id with the meter role.
func MeterSensorId(role string, id string) string {
	return fmt.Sprintf("%s_%s", role, id)
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("evsemeter_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "EVSE Meter",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("EVSE Meter %s", md5HashShort(baseTopic)),
	}
}

func MeterDevice(baseTopic string, role string, meterName string, address uint8) Device {
	id := md5HashShort(fmt.Sprintf("%s_%s_%d", baseTopic, role, address))
	return Device{
		Id:    fmt.Sprintf("evsemeter_%s_%s", role, id),
		Model: meterName,
		Name:  fmt.Sprintf("%s meter (%s)", role, meterName),
	}
}

func MeterSensors(meterDevice Device, role string, withEnergy bool, withCharged bool) []GenericSensor {

	var sensors []GenericSensor

	phases := []string{SENSOR_ID_PHASE_CURRENT_L1, SENSOR_ID_PHASE_CURRENT_L2, SENSOR_ID_PHASE_CURRENT_L3}
	for i, phase := range phases {
		sensors = append(sensors, GenericSensor{
			Device:            meterDevice,
			Id:                MeterSensorId(role, phase),
			Component:         COMPONENT_SENSOR,
			Name:              fmt.Sprintf("Current L%d", i+1),
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_CURRENT,
			UnitOfMeasurement: "A",
			UniqueId:          uniqueId(meterDevice.Id, MeterSensorId(role, phase)),
		})
	}

	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                MeterSensorId(role, SENSOR_ID_MEASURED_CURRENT),
		Component:         COMPONENT_SENSOR,
		Name:              "Measured current",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		UniqueId:          uniqueId(meterDevice.Id, MeterSensorId(role, SENSOR_ID_MEASURED_CURRENT)),
	})

	sensors = append(sensors, GenericSensor{
		Device:            meterDevice,
		Id:                MeterSensorId(role, SENSOR_ID_POWER),
		Component:         COMPONENT_SENSOR,
		Name:              "Power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(meterDevice.Id, MeterSensorId(role, SENSOR_ID_POWER)),
	})

	if withEnergy {
		sensors = append(sensors, GenericSensor{
			Device:            meterDevice,
			Id:                MeterSensorId(role, SENSOR_ID_ENERGY_IMPORTED),
			Component:         COMPONENT_SENSOR,
			Name:              "Energy imported",
			StateClass:        STATE_CLASS_TOTAL_INCREASING,
			DeviceClass:       DEVICE_CLASS_ENERGY,
			UnitOfMeasurement: "kWh",
			UniqueId:          uniqueId(meterDevice.Id, MeterSensorId(role, SENSOR_ID_ENERGY_IMPORTED)),
		})
		sensors = append(sensors, GenericSensor{
			Device:            meterDevice,
			Id:                MeterSensorId(role, SENSOR_ID_ENERGY_EXPORTED),
			Component:         COMPONENT_SENSOR,
			Name:              "Energy exported",
			StateClass:        STATE_CLASS_TOTAL_INCREASING,
			DeviceClass:       DEVICE_CLASS_ENERGY,
			UnitOfMeasurement: "kWh",
			EnabledByDefault:  optionalBool(false),
			UniqueId:          uniqueId(meterDevice.Id, MeterSensorId(role, SENSOR_ID_ENERGY_EXPORTED)),
		})
	}

	if withCharged {
		sensors = append(sensors, GenericSensor{
			Device:            meterDevice,
			Id:                MeterSensorId(role, SENSOR_ID_ENERGY_CHARGED),
			Component:         COMPONENT_SENSOR,
			Name:              "Energy charged",
			StateClass:        STATE_CLASS_TOTAL,
			DeviceClass:       DEVICE_CLASS_ENERGY,
			UnitOfMeasurement: "kWh",
			Icon:              "mdi:ev-station",
			UniqueId:          uniqueId(meterDevice.Id, MeterSensorId(role, SENSOR_ID_ENERGY_CHARGED)),
		})
	}

	sensors = append(sensors, GenericSensor{
		Device:         meterDevice,
		Id:             MeterSensorId(role, SENSOR_ID_COMMUNICATING),
		Component:      COMPONENT_BINARY_SENSOR,
		Name:           "Communicating",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(meterDevice.Id, MeterSensorId(role, SENSOR_ID_COMMUNICATING)),
	})

	return sensors
}

func MainsLimitSensors(mainsDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Sum of mains currents
	sensors = append(sensors, GenericSensor{
		Device:            mainsDevice,
		Id:                SENSOR_ID_MAINS_ISUM,
		Component:         COMPONENT_SENSOR,
		Name:              "Sum of mains currents",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_CURRENT,
		UnitOfMeasurement: "A",
		Icon:              "mdi:sigma",
		UniqueId:          uniqueId(mainsDevice.Id, SENSOR_ID_MAINS_ISUM),
	})

	sensors = append(sensors, GenericSensor{
		Device:      mainsDevice,
		Id:          SENSOR_ID_MAINS_OVER_LIMIT,
		Component:   COMPONENT_BINARY_SENSOR,
		Name:        "Sum of mains over limit",
		DeviceClass: DEVICE_CLASS_PROBLEM,
		UniqueId:    uniqueId(mainsDevice.Id, SENSOR_ID_MAINS_OVER_LIMIT),
	})

	return sensors
}

func EVLimitSensors(evDevice Device) []GenericSensor {
	return []GenericSensor{{
		Device:      evDevice,
		Id:          SENSOR_ID_EV_OVER_LIMIT,
		Component:   COMPONENT_BINARY_SENSOR,
		Name:        "Charge current over limit",
		DeviceClass: DEVICE_CLASS_PROBLEM,
		UniqueId:    uniqueId(evDevice.Id, SENSOR_ID_EV_OVER_LIMIT),
	}}
}

func SensorboxSensors(mainsDevice Device) []GenericSensor {

	var sensors []GenericSensor

	sensors = append(sensors, GenericSensor{
		Device:         mainsDevice,
		Id:             SENSOR_ID_SENSORBOX_VERSION,
		Component:      COMPONENT_SENSOR,
		Name:           "Sensorbox version",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(mainsDevice.Id, SENSOR_ID_SENSORBOX_VERSION),
	})
	sensors = append(sensors, GenericSensor{
		Device:         mainsDevice,
		Id:             SENSOR_ID_SENSORBOX_IP,
		Component:      COMPONENT_SENSOR,
		Name:           "Sensorbox IP",
		Icon:           "mdi:ip-network",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(mainsDevice.Id, SENSOR_ID_SENSORBOX_IP),
	})
	sensors = append(sensors, GenericSensor{
		Device:         mainsDevice,
		Id:             SENSOR_ID_SENSORBOX_WIFI,
		Component:      COMPONENT_BINARY_SENSOR,
		Name:           "Sensorbox WiFi",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(mainsDevice.Id, SENSOR_ID_SENSORBOX_WIFI),
	})
	sensors = append(sensors, GenericSensor{
		Device:         mainsDevice,
		Id:             SENSOR_ID_SENSORBOX_SYNC,
		Component:      COMPONENT_SENSOR,
		Name:           "Sensorbox settings sync",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(mainsDevice.Id, SENSOR_ID_SENSORBOX_SYNC),
	})

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		Component:      COMPONENT_BINARY_SENSOR,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	}}
}

func SessionSwitches(evDevice Device) []GenericSwitch {

	var switches []GenericSwitch

	// off arms the charged energy reset
	switches = append(switches, GenericSwitch{
		Device:   evDevice,
		Id:       SWITCH_ID_EV_CONNECTED,
		Name:     "EV connected",
		UniqueId: uniqueId(evDevice.Id, SWITCH_ID_EV_CONNECTED),
		Icon:     "mdi:ev-plug-type2",
	})
	// on starts a new charging session
	switches = append(switches, GenericSwitch{
		Device:   evDevice,
		Id:       SWITCH_ID_CHARGING,
		Name:     "Charging",
		UniqueId: uniqueId(evDevice.Id, SWITCH_ID_CHARGING),
		Icon:     "mdi:battery-charging",
	})

	return switches
}

func SensorboxInputNumbers(mainsDevice Device, wifiMode uint8) []GenericInputNumber {
	return []GenericInputNumber{{
		Device:       mainsDevice,
		Id:           INPUT_NUMBER_ID_SENSORBOX_WIFI_MODE,
		Name:         "Sensorbox WiFi mode",
		UniqueId:     uniqueId(mainsDevice.Id, INPUT_NUMBER_ID_SENSORBOX_WIFI_MODE),
		Icon:         "mdi:wifi-cog",
		Max:          2,
		Min:          0,
		Step:         1,
		Mode:         INPUT_NUMBER_MODE_BOX,
		InitialValue: float64(wifiMode),
	}}
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
