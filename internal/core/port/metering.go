package port

import "github.com/berfenger/evsemeter2mqtt/internal/core/domain"

type MainsAggregator interface {
	Aggregate(phaseCurrents [3]int32) domain.MainsAggregate
	SetMaxSumMains(amps uint16)
}

type EVLimiter interface {
	Limit(measuredCurrent int32) domain.EVLimit
}

type SettingsValidator interface {
	ValidateSettings(req domain.SettingsRequest, ctx domain.SettingsContext) []domain.FieldError
}
