package domain

const SETTINGS_VALUE_NOT_ALLOWED = "Value not allowed!"

// SettingsRequest carries the settings fields present in an update. Absent fields are nil.
type SettingsRequest struct {
	CurrentMin        *int   `json:"current_min,omitempty"`
	MaxSumMains       *int   `json:"current_max_sum_mains,omitempty"`
	MaxSumMainsTime   *int   `json:"max_sum_mains_time,omitempty"`
	OverrideCurrent   *int   `json:"override_current,omitempty"`
	StopTimer         *int   `json:"stop_timer,omitempty"`
	SolarStartCurrent *int   `json:"solar_start_current,omitempty"`
	SolarMaxImport    *int   `json:"solar_max_import,omitempty"`
	LCDLock           *int   `json:"lcdlock,omitempty"`
	CableLock         *int   `json:"cablelock,omitempty"`
	PrioStrategy      *int   `json:"prio_strategy,omitempty"`
	RotationInterval  *int   `json:"rotation_interval,omitempty"`
	IdleTimeout       *int   `json:"idle_timeout,omitempty"`
	Color             *Color `json:"color,omitempty"`
}

type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// SettingsContext is the controller state the validation depends on.
type SettingsContext struct {
	MinCurrent        int
	MaxCurrent        int
	LoadBalancingRole int
	Mode              int
}

type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}
