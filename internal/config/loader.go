package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const ENV_PREFIX = "evsemeter"

// Load reads defaults, an optional CONFIG_FILE and EVSEMETER_* variables,
// then normalizes topics and checks bounds.
func Load(v *viper.Viper) (*Config, error) {

	// alias PORT => EVSEMETER_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("EVSEMETER_PORT", port)
	}

	SetDefaults(v)

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			v.SetConfigFile(cfgFile)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config file %s: %w", cfgFile, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.LogLevel = ParseLogLevel(v.GetString("log_level"))

	baseTopic, err := CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	discoveryTopic, err := CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = discoveryTopic

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseLogLevel maps a level name to zap, trace being debug. Unknown names
// fall back to warn.
func ParseLogLevel(name string) zapcore.Level {
	if strings.EqualFold(name, "trace") {
		return zapcore.DebugLevel
	}
	level, err := zapcore.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zapcore.WarnLevel
	}
	return level
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "warn")
	v.SetDefault("port", 8080)
	v.SetDefault("http_log", false)
	v.SetDefault("modbus.driver", MODBUS_DRIVER_TCP)
	v.SetDefault("modbus.url", "")
	v.SetDefault("modbus.serial_port", "/dev/ttyUSB0")
	v.SetDefault("modbus.speed", 9600)
	v.SetDefault("modbus.timeout_millis", 1000)
	v.SetDefault("mains_meter.type", 0)
	v.SetDefault("mains_meter.address", 10)
	v.SetDefault("ev_meter.type", 0)
	v.SetDefault("ev_meter.address", 12)
	v.SetDefault("custom_meter.byte_order", 0)
	v.SetDefault("custom_meter.data_type", 0)
	v.SetDefault("custom_meter.function", 4)
	v.SetDefault("load_balancing.role", 0)
	v.SetDefault("load_balancing.mains_capacity", 25)
	v.SetDefault("load_balancing.max_sum_mains", 0)
	v.SetDefault("load_balancing.min_current", 6)
	v.SetDefault("load_balancing.max_current", 16)
	v.SetDefault("load_balancing.mode", 0)
	v.SetDefault("sensorbox.wifi_mode", 0)
	v.SetDefault("sensorbox.grid", 0)
	v.SetDefault("monitor.poll_interval_millis", 2000)
	v.SetDefault("monitor.energy_every", 5)
	v.SetDefault("mqtt.host", "")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.ha_discovery_enable", false)
	v.SetDefault("mqtt.base_topic", "evsemeter")
	v.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
}

// Redacted is the config safe to log.
func (c Config) Redacted() Config {
	c.MQTT.Username = "*redacted*"
	c.MQTT.Password = "*redacted*"
	return c
}
