package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLoadFromEnv(t *testing.T) {

	assert := assert.New(t)

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "9090")
	t.Setenv("EVSEMETER_LOG_LEVEL", "debug")
	t.Setenv("EVSEMETER_MODBUS_DRIVER", MODBUS_DRIVER_TEST)
	t.Setenv("EVSEMETER_MAINS_METER_TYPE", "3")
	t.Setenv("EVSEMETER_MQTT_BASE_TOPIC", "EVSE_Garage")
	t.Setenv("EVSEMETER_MQTT_PASSWORD", "secret")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(uint(9090), cfg.Port)
	assert.Equal(zapcore.DebugLevel, cfg.LogLevel)
	assert.Equal(uint8(3), cfg.MainsMeter.Type)
	assert.Equal(uint8(10), cfg.MainsMeter.Address)
	assert.Equal("evse_garage", cfg.MQTT.BaseTopic)
	assert.Equal("homeassistant", cfg.MQTT.HADiscoveryTopic)
	assert.Equal(uint32(2000), cfg.MonitorConfig.PollIntervalMillis)
	assert.Equal("secret", cfg.MQTT.Password)
	assert.Equal("*redacted*", cfg.Redacted().MQTT.Password)
}

func TestLoadFromFile(t *testing.T) {

	assert := assert.New(t)

	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
modbus:
  driver: test
ev_meter:
  type: 4
  address: 20
load_balancing:
  max_sum_mains: 32
`), 0o600))
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("PORT", "")

	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(uint8(4), cfg.EVMeter.Type)
	assert.Equal(uint8(20), cfg.EVMeter.Address)
	assert.Equal(uint16(32), cfg.LoadBalancing.MaxSumMains)
	assert.Equal(zapcore.WarnLevel, cfg.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {

	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")

	// tcp driver without url
	_, err := Load(viper.New())
	assert.Error(t, err)

	t.Setenv("EVSEMETER_MODBUS_DRIVER", MODBUS_DRIVER_TEST)
	t.Setenv("EVSEMETER_MQTT_BASE_TOPIC", "evse/meter")
	_, err = Load(viper.New())
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {

	assert := assert.New(t)

	assert.Equal(zapcore.DebugLevel, ParseLogLevel("trace"))
	assert.Equal(zapcore.InfoLevel, ParseLogLevel("INFO"))
	assert.Equal(zapcore.ErrorLevel, ParseLogLevel("error"))
	assert.Equal(zapcore.WarnLevel, ParseLogLevel("verbose"))
}
