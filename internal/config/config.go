package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
	"go.uber.org/zap/zapcore"
)

const (
	MODBUS_DRIVER_TCP      = "tcp"
	MODBUS_DRIVER_RTU      = "rtu"
	MODBUS_DRIVER_GOBURROW = "goburrow"
	MODBUS_DRIVER_TEST     = "test"
)

type Config struct {
	LogLevel      zapcore.Level
	Modbus        ModbusConfig        `mapstructure:"modbus"`
	MainsMeter    MeterConfig         `mapstructure:"mains_meter"`
	EVMeter       MeterConfig         `mapstructure:"ev_meter"`
	CustomMeter   CustomMeterConfig   `mapstructure:"custom_meter"`
	LoadBalancing LoadBalancingConfig `mapstructure:"load_balancing"`
	Sensorbox     SensorboxConfig     `mapstructure:"sensorbox"`
	MonitorConfig MonitorConfig       `mapstructure:"monitor"`
	MQTT          MQTTConfig          `mapstructure:"mqtt"`
	Port          uint                `mapstructure:"port"`
	HttpLog       bool                `mapstructure:"http_log"`
}

type ModbusConfig struct {
	Driver        string
	URL           string `mapstructure:"url"`
	SerialPort    string `mapstructure:"serial_port"`
	Speed         uint
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type MeterConfig struct {
	Type    uint8
	Address uint8
}

type CustomMeterConfig struct {
	ByteOrder            uint8 `mapstructure:"byte_order"`
	DataType             uint8 `mapstructure:"data_type"`
	Function             uint8
	VoltageRegister      uint16 `mapstructure:"voltage_register"`
	VoltageDivisor       int8   `mapstructure:"voltage_divisor"`
	CurrentRegister      uint16 `mapstructure:"current_register"`
	CurrentDivisor       int8   `mapstructure:"current_divisor"`
	PowerRegister        uint16 `mapstructure:"power_register"`
	PowerDivisor         int8   `mapstructure:"power_divisor"`
	EnergyImportRegister uint16 `mapstructure:"energy_import_register"`
	EnergyExportRegister uint16 `mapstructure:"energy_export_register"`
	EnergyDivisor        int8   `mapstructure:"energy_divisor"`
}

type LoadBalancingConfig struct {
	// 0 standalone, 1 master, 2..8 node
	Role          uint8
	MainsCapacity uint16 `mapstructure:"mains_capacity"`
	MaxSumMains   uint16 `mapstructure:"max_sum_mains"`
	MinCurrent    uint16 `mapstructure:"min_current"`
	MaxCurrent    uint16 `mapstructure:"max_current"`
	Mode          uint8
}

type SensorboxConfig struct {
	WiFiMode uint8 `mapstructure:"wifi_mode"`
	Grid     uint8
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
	EnergyEvery        uint32 `mapstructure:"energy_every"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c CustomMeterConfig) Descriptor() energy_meter.Descriptor {
	return energy_meter.CustomDescriptor(energy_meter.ByteOrder(c.ByteOrder), c.Function,
		energy_meter.DataType(c.DataType),
		c.VoltageRegister, c.CurrentRegister, c.PowerRegister, c.EnergyImportRegister, c.EnergyExportRegister,
		c.VoltageDivisor, c.CurrentDivisor, c.PowerDivisor, c.EnergyDivisor)
}

// MeterConfig builds the decoder configuration of one metering role.
func (c Config) MeterConfig(role energy_meter.Role) energy_meter.MeterConfig {
	mc := c.MainsMeter
	if role == energy_meter.ROLE_EV {
		mc = c.EVMeter
	}
	cfg := energy_meter.MeterConfig{
		Type:          energy_meter.MeterType(mc.Type),
		Address:       mc.Address,
		Role:          role,
		MainsCapacity: c.LoadBalancing.MainsCapacity,
		Sensorbox: energy_meter.SensorboxConfig{
			WiFiMode:          energy_meter.WiFiMode(c.Sensorbox.WiFiMode),
			Grid:              c.Sensorbox.Grid,
			LoadBalancingRole: c.LoadBalancing.Role,
		},
	}
	if cfg.Type == energy_meter.METER_CUSTOM {
		d := c.CustomMeter.Descriptor()
		cfg.Custom = &d
	}
	return cfg
}

// Validate checks bounds that viper cannot express.
func (c Config) Validate() error {
	for name, mc := range map[string]MeterConfig{"mains_meter": c.MainsMeter, "ev_meter": c.EVMeter} {
		if !energy_meter.MeterType(mc.Type).Valid() {
			return fmt.Errorf("config param %s.type should be < %d", name, energy_meter.METER_TYPE_COUNT)
		}
		if energy_meter.MeterType(mc.Type) == energy_meter.METER_CUSTOM {
			if err := c.CustomMeter.Descriptor().Validate(); err != nil {
				return fmt.Errorf("config param custom_meter: %w", err)
			}
		}
	}
	if energy_meter.MeterType(c.EVMeter.Type) == energy_meter.METER_SENSORBOX {
		return errors.New("config param ev_meter.type cannot be a sensorbox")
	}
	switch c.Modbus.Driver {
	case MODBUS_DRIVER_TCP, MODBUS_DRIVER_RTU:
		if c.Modbus.URL == "" {
			return fmt.Errorf("config param modbus.url is required by the %s driver", c.Modbus.Driver)
		}
	case MODBUS_DRIVER_GOBURROW:
		if c.Modbus.SerialPort == "" {
			return errors.New("config param modbus.serial_port is required by the goburrow driver")
		}
	case MODBUS_DRIVER_TEST:
	default:
		return fmt.Errorf("config param modbus.driver %q is unknown", c.Modbus.Driver)
	}
	if c.Sensorbox.WiFiMode > uint8(energy_meter.WIFI_PORTAL) {
		return errors.New("config param sensorbox.wifi_mode should be 0, 1 or 2")
	}
	if c.Sensorbox.Grid > 1 {
		return errors.New("config param sensorbox.grid should be 0 or 1")
	}
	if c.LoadBalancing.MinCurrent > c.LoadBalancing.MaxCurrent {
		return errors.New("config param load_balancing.min_current must be <= load_balancing.max_current")
	}
	if c.MonitorConfig.PollIntervalMillis < 500 {
		return errors.New("config param monitor.poll_interval_millis should be >= 500")
	}
	if c.MonitorConfig.EnergyEvery == 0 {
		return errors.New("config param monitor.energy_every should be > 0")
	}
	return nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
