package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	. "github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const WATCHDOG_JOB_KEY = "meter-watchdog"

// WatchdogActor ticks the meter communication timeouts once per second,
// independently of how long a poll cycle takes.
type WatchdogActor struct {
	behavior actor.Behavior
	target   *actor.PID
	interval time.Duration
	sched    quartz.Scheduler
	cancel   context.CancelFunc
	logger   *zap.Logger
}

func NewWatchdogActor(target *actor.PID, interval time.Duration, logger *zap.Logger) *WatchdogActor {
	act := &WatchdogActor{
		target:   target,
		interval: interval,
		behavior: actor.NewBehavior(),
		logger:   ActorLogger(domain.ACTOR_ID_WATCHDOG, logger),
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *WatchdogActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *WatchdogActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("watchdog@default started")
		if err := state.start(ctx.ActorSystem()); err != nil {
			panic(err)
		}
	case *actor.Stopping:
		state.stop()
	case *actor.Restarting:
		state.stop()
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_WATCHDOG,
			Healthy: state.sched != nil && state.sched.IsStarted(),
			State:   "ticking",
		})
	default:
		state.logger.Debug("watchdog@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *WatchdogActor) start(system *actor.ActorSystem) error {
	sched := quartz.NewStdScheduler()
	runCtx, cancel := context.WithCancel(context.Background())
	sched.Start(runCtx)

	target := state.target
	tick := job.NewFunctionJob(func(_ context.Context) (bool, error) {
		system.Root.Send(target, domain.WatchdogTick{})
		return true, nil
	})
	err := sched.ScheduleJob(quartz.NewJobDetail(tick, quartz.NewJobKey(WATCHDOG_JOB_KEY)),
		quartz.NewSimpleTrigger(state.interval))
	if err != nil {
		cancel()
		sched.Stop()
		return err
	}
	state.sched = sched
	state.cancel = cancel
	return nil
}

func (state *WatchdogActor) stop() {
	if state.sched != nil {
		state.sched.Stop()
		state.sched = nil
	}
	if state.cancel != nil {
		state.cancel()
		state.cancel = nil
	}
}
