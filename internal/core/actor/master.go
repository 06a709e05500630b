package actor

import (
	"errors"
	"fmt"
	"time"

	adactor "github.com/berfenger/evsemeter2mqtt/internal/adapter/actor"
	"github.com/berfenger/evsemeter2mqtt/internal/config"
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/core/service"
	. "github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	WATCHDOG_INTERVAL     = 1 * time.Second
	HEALTH_CHECK_TIMEOUT  = 500 * time.Millisecond
	HEALTH_REPLY_DEADLINE = 1 * time.Second
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type ModbusActorProvider func() *adactor.ModbusActor

// MasterOfPuppetsActor owns every other actor and is the single entry point
// for the HTTP API and MQTT commands.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck  healthCheckResult
	eventStream         *eventstream.EventStream
	modbusActor         *actor.PID
	mqttActor           *actor.PID
	meteringActor       *actor.PID
	watchdogActor       *actor.PID
	modbusActorProvider ModbusActorProvider
	mqttActorProvider   MQTTActorProvider
	logger              *zap.Logger
}

// healthCheckResult collects one answer per checked child.
type healthCheckResult struct {
	healthy   map[string]bool
	received  int
	respondTo *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, modbusActorProvider ModbusActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:              config,
		behavior:            actor.NewBehavior(),
		stash:               &Stash{},
		logger:              ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:         &eventstream.EventStream{},
		modbusActorProvider: modbusActorProvider,
		mqttActorProvider:   mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		// children read the PIDs of the ones spawned before them
		state.modbusActor = state.spawnChild(ctx, domain.ACTOR_ID_MODBUS, state.backoffSupervisor(), func() actor.Actor {
			return state.modbusActorProvider()
		})
		state.mqttActor = state.spawnChild(ctx, domain.ACTOR_ID_MQTT, state.backoffSupervisor(), func() actor.Actor {
			return state.mqttActorProvider(state.eventStream)
		})
		state.meteringActor = state.spawnChild(ctx, domain.ACTOR_ID_METERING, state.restartSupervisor(), func() actor.Actor {
			return NewMeteringActor(&state.config, state.modbusActor, state.eventStream,
				&service.DefaultMainsAggregator{MaxSumMains: state.config.LoadBalancing.MaxSumMains},
				&service.DefaultEVLimiter{MaxCurrent: state.config.LoadBalancing.MaxCurrent},
				state.logger)
		})
		state.watchdogActor = state.spawnChild(ctx, domain.ACTOR_ID_WATCHDOG, state.restartSupervisor(), func() actor.Actor {
			return NewWatchdogActor(state.meteringActor, WATCHDOG_INTERVAL, state.logger)
		})
		if state.config.MQTT.HADiscoveryEnable {
			state.spawnChild(ctx, domain.ACTOR_ID_HA_DISCOVERY, state.restartSupervisor(), func() actor.Actor {
				return NewHADiscoveryActor(&state.config, state.modbusActor, state.mqttActor, state.logger)
			})
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck = healthCheckResult{healthy: map[string]bool{}, respondTo: ctx.Sender()}
		for id, pid := range state.checkedChildren() {
			id := id
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, HEALTH_CHECK_TIMEOUT), func(err error) any {
				return domain.ActorHealthResponse{Id: id, Healthy: false}
			})
		}
		ctx.SetReceiveTimeout(HEALTH_REPLY_DEADLINE)
		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command == nil {
			return
		}
		req, err := ParsedMQTTCommandToRequest(*msg.Command)
		if err != nil {
			state.logger.Warn("master@default invalid command", zap.String("device", msg.Command.DeviceId), zap.Error(err))
			return
		}
		if req != nil {
			ctx.Send(state.meteringActor, req)
		}
	case domain.GetMetersStateRequest, domain.SessionStartRequest, domain.EVDisconnectedRequest,
		domain.SetApiMeterRequest, domain.SetSensorboxWiFiModeRequest, domain.SetMaxSumMainsRequest:
		// forwarded with the original sender
		ctx.Forward(state.meteringActor)
	case *actor.Terminated:
		if msg.Who.Equal(state.modbusActor) {
			state.logger.Error("master@default modbus terminated")
			panic(errors.New("modbus terminated"))
		}
	default:
		state.logger.Debug("master@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// missing answers count as unhealthy
		state.finishHealthCheck(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.healthy[msg.Id] = msg.Healthy
		state.currentHealthCheck.received++
		if state.currentHealthCheck.received >= len(state.checkedChildren()) {
			state.finishHealthCheck(ctx)
		} else {
			ctx.SetReceiveTimeout(HEALTH_REPLY_DEADLINE)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) finishHealthCheck(ctx actor.Context) {
	ctx.CancelReceiveTimeout()
	check := state.currentHealthCheck
	healthy := true
	for id := range state.checkedChildren() {
		healthy = healthy && check.healthy[id]
	}
	if check.respondTo != nil {
		ctx.Send(check.respondTo, domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MASTER,
			Healthy: healthy,
		})
	}
	state.behavior.UnbecomeStacked()
	state.stash.UnstashAll(ctx)
}

func (state *MasterOfPuppetsActor) checkedChildren() map[string]*actor.PID {
	return map[string]*actor.PID{
		domain.ACTOR_ID_MODBUS:   state.modbusActor,
		domain.ACTOR_ID_MQTT:     state.mqttActor,
		domain.ACTOR_ID_METERING: state.meteringActor,
	}
}

// spawnChild panics on failure, leaving the decision to the master's supervisor.
func (state *MasterOfPuppetsActor) spawnChild(ctx actor.Context, id string, supervisor actor.SupervisorStrategy,
	producer actor.Producer) *actor.PID {
	pid, err := ctx.SpawnNamed(actor.PropsFromProducer(producer, actor.WithSupervisor(supervisor)), id)
	if err != nil {
		panic(fmt.Errorf("spawn %s: %w", id, err))
	}
	return pid
}

// backoffSupervisor is used for children wrapping a connection.
func (state *MasterOfPuppetsActor) backoffSupervisor() actor.SupervisorStrategy {
	return actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)
}

func (state *MasterOfPuppetsActor) restartSupervisor() actor.SupervisorStrategy {
	return actor.NewOneForOneStrategy(1, 10*time.Second, func(reason interface{}) actor.Directive {
		state.logger.Warn("master: restarting child", zap.Any("reason", reason))
		return actor.RestartDirective
	})
}
