package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/config"
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"
	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const (
	HA_DISCOVERY_PROBE_TIMEOUT = 2 * time.Second
	HA_DISCOVERY_RETRY         = 5 * time.Second
	HA_DISCOVERY_MAX_ATTEMPTS  = 5
)

// HADiscoveryActor publishes the discovery config once the bus and the broker
// are up, then idles.
type HADiscoveryActor struct {
	config      *config.Config
	behavior    actor.Behavior
	stash       *actorutil.Stash
	scheduler   *scheduler.TimerScheduler
	modbusActor *actor.PID
	mqttActor   *actor.PID
	healthy     map[string]bool
	attempts    int

	logger *zap.Logger
}

type discoveryProbe struct{}

func NewHADiscoveryActor(config *config.Config, modbusActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:      config,
		modbusActor: modbusActor,
		mqttActor:   mqttActor,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.probe(ctx)
	case discoveryProbe:
		state.probe(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// probe asks the modbus and mqtt actors for their health.
func (state *HADiscoveryActor) probe(ctx actor.Context) {
	state.attempts++
	state.healthy = map[string]bool{}
	for id, pid := range map[string]*actor.PID{domain.ACTOR_ID_MODBUS: state.modbusActor, domain.ACTOR_ID_MQTT: state.mqttActor} {
		id := id
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(pid, domain.ActorHealthRequest{}, HA_DISCOVERY_PROBE_TIMEOUT), func(err error) any {
			return domain.ActorHealthResponse{Id: id, Healthy: false}
		})
	}
	state.behavior.Become(state.WaitingHealthyReceive)
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthy[msg.Id] = msg.Healthy
		if len(state.healthy) < 2 {
			return
		}
		if !state.healthy[domain.ACTOR_ID_MODBUS] || !state.healthy[domain.ACTOR_ID_MQTT] {
			state.retry(ctx, errors.New("MQTT Actor or Modbus Actor are not healthy"))
			return
		}
		sensors, switches, inputNumbers := DiscoveryComponents(state.config)
		state.logger.Debug("hadiscovery@healthcheck publish", zap.Int("sensors", len(sensors)),
			zap.Int("switches", len(switches)), zap.Int("numbers", len(inputNumbers)))
		req := domain.PublishDiscoveryRequest{
			Sensors:      sensors,
			Switches:     switches,
			InputNumbers: inputNumbers,
		}
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, req, HA_DISCOVERY_PROBE_TIMEOUT), func(err error) any {
			return domain.PublishDiscoveryResponse{ActorResponseMixIn: domain.ResponseMixIn(err)}
		})
		state.behavior.Become(state.PublishingReceive)
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) PublishingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.PublishDiscoveryResponse:
		if msg.HasResponseError() {
			state.retry(ctx, msg.GetResponseError())
			return
		}
		state.logger.Info("hadiscovery@publishing published")
		state.behavior.Become(state.Done)
	default:
		state.logger.Debug("hadiscovery@publishing: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// retry probes again later, giving up after HA_DISCOVERY_MAX_ATTEMPTS.
func (state *HADiscoveryActor) retry(ctx actor.Context, reason error) {
	if state.attempts >= HA_DISCOVERY_MAX_ATTEMPTS {
		panic(reason)
	}
	state.logger.Warn("hadiscovery: retrying", zap.Int("attempt", state.attempts), zap.Error(reason))
	state.scheduler.SendOnce(HA_DISCOVERY_RETRY, ctx.Self(), discoveryProbe{})
	state.behavior.Become(state.StartingReceive)
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {
	switch ctx.Message().(type) {
	case *actor.Stopping:
		state.logger.Debug("hadiscovery@done stopping")
	}
}

// DiscoveryComponents lists the Home Assistant components of the configured meters.
func DiscoveryComponents(cfg *config.Config) ([]domain.GenericSensor, []domain.GenericSwitch, []domain.GenericInputNumber) {

	var sensors []domain.GenericSensor
	var switches []domain.GenericSwitch
	var inputNumbers []domain.GenericInputNumber

	bridgeDevice := domain.BridgeDevice(cfg.MQTT.BaseTopic)
	sensors = append(sensors, domain.BridgeSensors(bridgeDevice)...)

	for _, role := range []energy_meter.Role{energy_meter.ROLE_MAINS, energy_meter.ROLE_EV} {
		meterCfg := cfg.MeterConfig(role)
		if meterCfg.Type == energy_meter.METER_DISABLED {
			continue
		}
		name := meterCfg.Type.String()
		meterDevice := domain.MeterDevice(cfg.MQTT.BaseTopic, role.String(), name, meterCfg.Address)
		meterDevice.ViaDevice = bridgeDevice.Id

		withEnergy := meterCfg.Type != energy_meter.METER_SENSORBOX
		meterSensors := domain.MeterSensors(meterDevice, role.String(), withEnergy, role == energy_meter.ROLE_EV)
		if role == energy_meter.ROLE_MAINS {
			meterSensors = append(meterSensors, domain.MainsLimitSensors(meterDevice)...)
			if meterCfg.Type == energy_meter.METER_SENSORBOX {
				meterSensors = append(meterSensors, domain.SensorboxSensors(meterDevice)...)
				inputNumbers = append(inputNumbers, domain.SensorboxInputNumbers(meterDevice.Ref(), cfg.Sensorbox.WiFiMode)...)
			}
		} else {
			meterSensors = append(meterSensors, domain.EVLimitSensors(meterDevice)...)
			switches = append(switches, domain.SessionSwitches(meterDevice.Ref())...)
		}
		// the full device description travels once
		for i := range meterSensors {
			if i > 0 {
				meterSensors[i].Device = meterDevice.Ref()
			}
		}
		sensors = append(sensors, meterSensors...)
	}

	return sensors, switches, inputNumbers
}
