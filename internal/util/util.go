package util

import (
	"github.com/berfenger/evsemeter2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Modbus: config.ModbusConfig{
			Driver:        config.MODBUS_DRIVER_TEST,
			TimeoutMillis: 1000,
		},
		MainsMeter: config.MeterConfig{
			Type:    3, // Finder 7E
			Address: 10,
		},
		EVMeter: config.MeterConfig{
			Type:    4, // Eastron 3P
			Address: 12,
		},
		LoadBalancing: config.LoadBalancingConfig{
			MainsCapacity: 25,
			MaxSumMains:   40,
			MinCurrent:    6,
			MaxCurrent:    16,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "evsemeter",
			HADiscoveryTopic: "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 500,
			EnergyEvery:        2,
		},
		Port: 8080,
	}
}
