package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMainsAggregator(t *testing.T) {

	assert := assert.New(t)

	agg := &DefaultMainsAggregator{MaxSumMains: 40}

	r := agg.Aggregate([3]int32{150, 120, 100})
	assert.Equal(int32(370), r.Isum)
	assert.Equal(int32(400), r.Limit)
	assert.False(r.OverLimit)

	r = agg.Aggregate([3]int32{150, 150, 101})
	assert.True(r.OverLimit)

	// exported current lowers the sum
	r = agg.Aggregate([3]int32{300, 300, -250})
	assert.Equal(int32(350), r.Isum)
	assert.False(r.OverLimit)

	agg.SetMaxSumMains(0)
	r = agg.Aggregate([3]int32{1000, 1000, 1000})
	assert.False(r.OverLimit, "a zero limit disables the check")
}

func TestEVLimiter(t *testing.T) {

	assert := assert.New(t)

	limiter := &DefaultEVLimiter{MaxCurrent: 16}

	r := limiter.Limit(160)
	assert.Equal(int32(160), r.Limit)
	assert.False(r.OverLimit)

	r = limiter.Limit(161)
	assert.True(r.OverLimit)
}
