package service

import (
	"testing"

	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

var standalone = domain.SettingsContext{MinCurrent: 6, MaxCurrent: 16, LoadBalancingRole: 0, Mode: domain.LB_MODE_NORMAL}

func value(v int) *int {
	return &v
}

func fields(errs []domain.FieldError) []string {
	var f []string
	for _, e := range errs {
		f = append(f, e.Field)
	}
	return f
}

func TestValidSettings(t *testing.T) {

	v := &DefaultSettingsValidator{}

	errs := v.ValidateSettings(domain.SettingsRequest{
		CurrentMin:        value(6),
		MaxSumMains:       value(0),
		MaxSumMainsTime:   value(60),
		OverrideCurrent:   value(160),
		StopTimer:         value(0),
		SolarStartCurrent: value(48),
		SolarMaxImport:    value(0),
		LCDLock:           value(1),
		CableLock:         value(0),
		PrioStrategy:      value(2),
		RotationInterval:  value(30),
		IdleTimeout:       value(300),
		Color:             &domain.Color{R: 255, G: 0, B: 128},
	}, standalone)

	assert.Empty(t, errs)
	assert.Empty(t, v.ValidateSettings(domain.SettingsRequest{}, standalone), "absent fields are skipped")
}

func TestInvalidSettingsInFieldOrder(t *testing.T) {

	assert := assert.New(t)

	v := &DefaultSettingsValidator{}

	errs := v.ValidateSettings(domain.SettingsRequest{
		IdleTimeout:       value(29),
		CurrentMin:        value(17),
		MaxSumMains:       value(5),
		OverrideCurrent:   value(59),
		SolarStartCurrent: value(49),
		RotationInterval:  value(1441),
		LCDLock:           value(2),
		Color:             &domain.Color{R: 256},
	}, standalone)

	assert.Equal([]string{"current_min", "current_max_sum_mains", "override_current", "solar_start_current",
		"lcdlock", "rotation_interval", "idle_timeout", "color"}, fields(errs))
	for _, e := range errs {
		assert.Equal("Value not allowed!", e.Error)
	}
}

func TestNodeRejectsMasterOnlySettings(t *testing.T) {

	assert := assert.New(t)

	v := &DefaultSettingsValidator{}
	node := standalone
	node.LoadBalancingRole = 2

	errs := v.ValidateSettings(domain.SettingsRequest{
		CurrentMin:       value(6),
		MaxSumMains:      value(0),
		MaxSumMainsTime:  value(0),
		OverrideCurrent:  value(100),
		StopTimer:        value(10),
		CableLock:        value(1),
		PrioStrategy:     value(0),
		RotationInterval: value(0),
		IdleTimeout:      value(60),
	}, node)

	assert.Equal([]string{"current_min", "current_max_sum_mains", "max_sum_mains_time", "override_current",
		"prio_strategy", "rotation_interval", "idle_timeout"}, fields(errs))

	// zero disables the override and is accepted everywhere
	assert.Empty(v.ValidateSettings(domain.SettingsRequest{OverrideCurrent: value(0)}, node))
}

func TestOverrideCurrentIgnoredInSolarMode(t *testing.T) {

	v := &DefaultSettingsValidator{}
	solar := standalone
	solar.Mode = domain.LB_MODE_SOLAR

	assert.Empty(t, v.ValidateSettings(domain.SettingsRequest{OverrideCurrent: value(5000)}, solar))
	assert.NotEmpty(t, v.ValidateSettings(domain.SettingsRequest{OverrideCurrent: value(5000)}, standalone))
}

func TestValidColor(t *testing.T) {
	assert.True(t, ValidColor(domain.Color{R: 0, G: 255, B: 10}))
	assert.False(t, ValidColor(domain.Color{R: -1}))
	assert.False(t, ValidColor(domain.Color{B: 300}))
}
