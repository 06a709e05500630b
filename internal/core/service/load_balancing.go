package service

import (
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/core/port"
)

type DefaultMainsAggregator struct {
	// MaxSumMains is the sum-of-mains limit in A, 0 disables it.
	MaxSumMains uint16
}

func (a *DefaultMainsAggregator) Aggregate(phaseCurrents [3]int32) domain.MainsAggregate {
	var isum int32
	for _, c := range phaseCurrents {
		isum += c
	}
	limit := int32(a.MaxSumMains) * 10
	return domain.MainsAggregate{
		Isum:      isum,
		Limit:     limit,
		OverLimit: limit > 0 && isum > limit,
	}
}

func (a *DefaultMainsAggregator) SetMaxSumMains(amps uint16) {
	a.MaxSumMains = amps
}

type DefaultEVLimiter struct {
	// MaxCurrent is the maximum charge current in A.
	MaxCurrent uint16
}

func (l *DefaultEVLimiter) Limit(measuredCurrent int32) domain.EVLimit {
	limit := int32(l.MaxCurrent) * 10
	return domain.EVLimit{
		Measured:  measuredCurrent,
		Limit:     limit,
		OverLimit: measuredCurrent > limit,
	}
}

// ensure interface compliance
var _ port.MainsAggregator = (*DefaultMainsAggregator)(nil)
var _ port.EVLimiter = (*DefaultEVLimiter)(nil)
