package service

import (
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/core/port"
)

const minChargeCurrent = 6

type DefaultSettingsValidator struct {
}

type fieldCheck struct {
	field string
	value *int
	valid func(v int, ctx domain.SettingsContext) bool
}

func isNode(ctx domain.SettingsContext) bool {
	return ctx.LoadBalancingRole >= 2
}

func inRange(v, min, max int) bool {
	return v >= min && v <= max
}

func masterOnly(valid func(v int) bool) func(int, domain.SettingsContext) bool {
	return func(v int, ctx domain.SettingsContext) bool {
		return !isNode(ctx) && valid(v)
	}
}

func bounded(min, max int) func(int, domain.SettingsContext) bool {
	return func(v int, _ domain.SettingsContext) bool {
		return inRange(v, min, max)
	}
}

func validOverrideCurrent(v int, ctx domain.SettingsContext) bool {
	if v == 0 {
		return true
	}
	return !isNode(ctx) && inRange(v, ctx.MinCurrent*10, ctx.MaxCurrent*10)
}

// ValidateSettings checks the fields present in req and returns one error per
// rejected field, in a fixed field order.
func (v *DefaultSettingsValidator) ValidateSettings(req domain.SettingsRequest, ctx domain.SettingsContext) []domain.FieldError {
	overrideCurrent := req.OverrideCurrent
	if ctx.Mode != domain.LB_MODE_NORMAL && ctx.Mode != domain.LB_MODE_SMART {
		overrideCurrent = nil
	}
	checks := []fieldCheck{
		{"current_min", req.CurrentMin, masterOnly(func(v int) bool { return inRange(v, minChargeCurrent, 16) })},
		{"current_max_sum_mains", req.MaxSumMains, masterOnly(func(v int) bool { return v == 0 || inRange(v, 10, 600) })},
		{"max_sum_mains_time", req.MaxSumMainsTime, masterOnly(func(v int) bool { return inRange(v, 0, 60) })},
		{"override_current", overrideCurrent, validOverrideCurrent},
		{"stop_timer", req.StopTimer, bounded(0, 60)},
		{"solar_start_current", req.SolarStartCurrent, bounded(0, 48)},
		{"solar_max_import", req.SolarMaxImport, bounded(0, 48)},
		{"lcdlock", req.LCDLock, bounded(0, 1)},
		{"cablelock", req.CableLock, bounded(0, 1)},
		{"prio_strategy", req.PrioStrategy, masterOnly(func(v int) bool { return inRange(v, 0, 2) })},
		{"rotation_interval", req.RotationInterval, masterOnly(func(v int) bool { return v == 0 || inRange(v, 30, 1440) })},
		{"idle_timeout", req.IdleTimeout, masterOnly(func(v int) bool { return inRange(v, 30, 300) })},
	}

	var errs []domain.FieldError
	for _, c := range checks {
		if c.value == nil || c.valid(*c.value, ctx) {
			continue
		}
		errs = append(errs, domain.FieldError{Field: c.field, Error: domain.SETTINGS_VALUE_NOT_ALLOWED})
	}
	if req.Color != nil && !ValidColor(*req.Color) {
		errs = append(errs, domain.FieldError{Field: "color", Error: domain.SETTINGS_VALUE_NOT_ALLOWED})
	}
	return errs
}

func ValidColor(c domain.Color) bool {
	return inRange(c.R, 0, 255) && inRange(c.G, 0, 255) && inRange(c.B, 0, 255)
}

// ensure interface compliance
var _ port.SettingsValidator = (*DefaultSettingsValidator)(nil)
