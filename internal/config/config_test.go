package config

import (
	"testing"

	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Modbus:        ModbusConfig{Driver: MODBUS_DRIVER_TCP, URL: "tcp://localhost:502"},
		MainsMeter:    MeterConfig{Type: uint8(energy_meter.METER_EASTRON_3P), Address: 10},
		EVMeter:       MeterConfig{Type: uint8(energy_meter.METER_FINDER_7E), Address: 12},
		LoadBalancing: LoadBalancingConfig{MainsCapacity: 25, MinCurrent: 6, MaxCurrent: 16},
		MonitorConfig: MonitorConfig{PollIntervalMillis: 2000, EnergyEvery: 5},
	}
}

func TestValidate(t *testing.T) {

	assert := assert.New(t)

	assert.NoError(validConfig().Validate())

	cfg := validConfig()
	cfg.MainsMeter.Type = 20
	assert.Error(cfg.Validate(), "meter type")

	cfg = validConfig()
	cfg.EVMeter.Type = uint8(energy_meter.METER_SENSORBOX)
	assert.Error(cfg.Validate(), "sensorbox ev meter")

	cfg = validConfig()
	cfg.Modbus.URL = ""
	assert.Error(cfg.Validate(), "missing url")

	cfg = validConfig()
	cfg.Modbus.Driver = "udp"
	assert.Error(cfg.Validate(), "driver")

	cfg = validConfig()
	cfg.MonitorConfig.PollIntervalMillis = 100
	assert.Error(cfg.Validate(), "poll interval")

	cfg = validConfig()
	cfg.Sensorbox.WiFiMode = 3
	assert.Error(cfg.Validate(), "wifi mode")
}

func TestCustomMeter(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.MainsMeter.Type = uint8(energy_meter.METER_CUSTOM)
	cfg.CustomMeter = CustomMeterConfig{
		ByteOrder:            uint8(energy_meter.HBF_HWF),
		DataType:             uint8(energy_meter.DATATYPE_FLOAT32),
		Function:             4,
		CurrentRegister:      0x06,
		PowerRegister:        0x34,
		EnergyImportRegister: 0x48,
		EnergyExportRegister: 0x4A,
	}
	assert.NoError(cfg.Validate())

	mc := cfg.MeterConfig(energy_meter.ROLE_MAINS)
	assert.NotNil(mc.Custom)
	assert.Equal(uint16(0x34), mc.Custom.Power.Address)
	assert.Equal(uint8(10), mc.Address)

	cfg.CustomMeter.PowerRegister = 0x06
	assert.Error(cfg.Validate(), "duplicate register")

	cfg.CustomMeter.PowerRegister = 0x34
	cfg.CustomMeter.Function = 6
	assert.Error(cfg.Validate(), "function")
}

func TestMeterConfigRoles(t *testing.T) {

	assert := assert.New(t)

	cfg := validConfig()
	cfg.Sensorbox = SensorboxConfig{WiFiMode: 2, Grid: 1}
	cfg.LoadBalancing.Role = 3

	mains := cfg.MeterConfig(energy_meter.ROLE_MAINS)
	assert.Equal(energy_meter.METER_EASTRON_3P, mains.Type)
	assert.Equal(energy_meter.WIFI_PORTAL, mains.Sensorbox.WiFiMode)
	assert.Equal(uint8(3), mains.Sensorbox.LoadBalancingRole)
	assert.Nil(mains.Custom)

	ev := cfg.MeterConfig(energy_meter.ROLE_EV)
	assert.Equal(energy_meter.METER_FINDER_7E, ev.Type)
	assert.Equal(uint8(12), ev.Address)
	assert.Equal(energy_meter.ROLE_EV, ev.Role)
}

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("EVSE_Meter")
	assert.NoError(err)
	assert.Equal("evse_meter", topic)

	_, err = CheckMQTTTopic("evse/meter")
	assert.Error(err)
}
