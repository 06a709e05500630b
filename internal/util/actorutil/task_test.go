package actorutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackgroundTaskAwait(t *testing.T) {

	assert := assert.New(t)

	ok := &BackgroundTask[int]{call: func() (int, error) { return 7, nil }}
	v, done := ok.Await()
	assert.True(done)
	assert.Equal(7, v)

	failing := &BackgroundTask[int]{call: func() (int, error) { return 0, errors.New("bus error") }}
	_, done = failing.Await()
	assert.False(done)

	failing.Fallback(func(err error) int { return -1 })
	v, done = failing.Await()
	assert.True(done)
	assert.Equal(-1, v)
}

func TestBackgroundTaskTimeout(t *testing.T) {

	assert := assert.New(t)

	var failure error
	slow := &BackgroundTask[int]{call: func() (int, error) {
		time.Sleep(time.Second)
		return 1, nil
	}}
	slow.WithTimeout(20 * time.Millisecond).Fallback(func(err error) int {
		failure = err
		return 0
	})
	v, done := slow.Await()
	assert.True(done)
	assert.Equal(0, v)
	assert.Error(failure)
}
