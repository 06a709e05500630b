package actor

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWatchdogActorTicks(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()
	context := as.Root

	var ticks atomic.Int32
	target := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if _, ok := ctx.Message().(domain.WatchdogTick); ok {
			ticks.Add(1)
		}
	}))

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewWatchdogActor(target, 50*time.Millisecond, logger)
	}))

	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, 2*time.Second, 20*time.Millisecond)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, time.Second).Result()
	require.NoError(t, err)
	assert.True(t, res.(domain.ActorHealthResponse).Healthy)

	require.NoError(t, context.StopFuture(pid).Wait())
	time.Sleep(100 * time.Millisecond)
	stopped := ticks.Load()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, stopped, ticks.Load())
}
