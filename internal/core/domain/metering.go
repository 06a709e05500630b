package domain

const (
	LB_MODE_NORMAL = 0
	LB_MODE_SMART  = 1
	LB_MODE_SOLAR  = 2
)

// MainsAggregate is the sum of the mains phase currents against the configured limit, in dA.
type MainsAggregate struct {
	Isum      int32 `json:"isum_da"`
	Limit     int32 `json:"limit_da"`
	OverLimit bool  `json:"over_limit"`
}

// EVLimit is the EV meter measured current against the maximum charge current, in dA.
type EVLimit struct {
	Measured  int32 `json:"measured_da"`
	Limit     int32 `json:"limit_da"`
	OverLimit bool  `json:"over_limit"`
}
