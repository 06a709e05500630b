package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/config"
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/core/events"
	"github.com/berfenger/evsemeter2mqtt/internal/core/port"
	"github.com/berfenger/evsemeter2mqtt/internal/metrics"
	. "github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"
	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const MODBUS_REQUEST_TIMEOUT = 3 * time.Second

// MeteringActor owns the mains and EV meter instances. It polls them one
// request at a time through the modbus actor and publishes what they decode.
type MeteringActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config      *config.Config
	modbusActor *actor.PID
	eventStream *eventstream.EventStream
	aggregator  port.MainsAggregator
	limiter     port.EVLimiter

	mains *energy_meter.Meter
	ev    *energy_meter.Meter

	queue    []pendingRead
	writes   []domain.ModbusWriteRequest
	inflight any

	cycle          uint32
	readFailures   uint32
	mainsAggregate domain.MainsAggregate
	evLimit        domain.EVLimit
	evConnected    bool
	charging       bool

	logger *zap.Logger
}

type pendingRead struct {
	meter *energy_meter.Meter
	req   energy_meter.ReadRequest
}

type meteringTick struct {
}

func NewMeteringActor(config *config.Config, modbusActor *actor.PID, eventStream *eventstream.EventStream,
	aggregator port.MainsAggregator, limiter port.EVLimiter, logger *zap.Logger) *MeteringActor {
	act := &MeteringActor{
		config:      config,
		modbusActor: modbusActor,
		eventStream: eventStream,
		aggregator:  aggregator,
		limiter:     limiter,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_METERING, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MeteringActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MeteringActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("metering@starting started")

		if err := state.createMeters(); err != nil {
			panic(err)
		}

		state.publish(events.SessionSwitchesUpdateEvents(state.evConnected, state.charging))
		if state.mains.Sensorbox != nil {
			state.publishOne(events.SensorboxWiFiModeUpdateEvent(state.mains.Sensorbox.DesiredWiFiMode()))
		}

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduleTick(ctx)

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("metering@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MeteringActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case meteringTick:
		state.logger.Debug("metering@default tick", zap.Uint32("cycle", state.cycle))
		state.planCycle()
		if state.next(ctx) {
			state.behavior.BecomeStacked(state.PollingReceive)
		} else {
			state.endCycle(ctx)
		}
	default:
		if !state.handleCommon(ctx) {
			state.logger.Debug("metering@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
		}
	}
}

// PollingReceive waits for the transport results of the current cycle.
func (state *MeteringActor) PollingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ModbusReadResponse:
		read, ok := state.inflight.(pendingRead)
		if !ok || read.req != msg.Request {
			state.logger.Debug("metering@polling stale ModbusReadResponse")
			return
		}
		state.handleRead(read, msg)
		state.advance(ctx)
	case domain.ModbusWriteResponse:
		write, ok := state.inflight.(domain.ModbusWriteRequest)
		if !ok || write.Address != msg.Address || write.Register != msg.Register {
			state.logger.Debug("metering@polling stale ModbusWriteResponse")
			return
		}
		register := fmt.Sprintf("0x%04X", msg.Register)
		metrics.CountWrite(register, !msg.HasResponseError())
		if msg.HasResponseError() {
			state.logger.Warn("metering@polling register write failed", zap.String("register", register), zap.Error(msg.GetResponseError()))
		}
		state.advance(ctx)
	case *actor.Stopping:
		state.queue = nil
		state.writes = nil
	default:
		if !state.handleCommon(ctx) {
			state.logger.Debug("metering@polling stash", zap.String("type", fmt.Sprintf("%T", msg)))
			state.stash.Stash(ctx, msg)
		}
	}
}

// handleCommon serves the requests that are valid in every behavior.
func (state *MeteringActor) handleCommon(ctx actor.Context) bool {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("metering@default ActorHealthRequest")
		status := "idle"
		if state.inflight != nil {
			status = "polling"
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_METERING,
			Healthy: true,
			State:   status,
		})
	case domain.WatchdogTick:
		state.watchdogTick()
	case domain.GetMetersStateRequest:
		state.logger.Debug("metering@default GetMetersStateRequest")
		ForRequest(msg).Respond(ctx, state.metersState())
	case domain.SessionStartRequest:
		state.logger.Debug("metering@default SessionStartRequest")
		reset := state.ev.StartSession()
		state.evConnected = true
		state.charging = true
		state.publish(events.SessionSwitchesUpdateEvents(state.evConnected, state.charging))
		if reset {
			state.logger.Info("charging session started, charged energy reset", zap.Int32("snapshot_wh", state.ev.SessionStartEnergy))
			state.publish(events.MeterEnergyToUpdateEvents(state.ev.State()))
		}
		ForRequest(msg).Respond(ctx, domain.SessionStartResponse{Reset: reset})
	case domain.EVDisconnectedRequest:
		state.logger.Debug("metering@default EVDisconnectedRequest")
		state.ev.ArmSessionReset()
		state.evConnected = false
		state.charging = false
		state.publish(events.SessionSwitchesUpdateEvents(state.evConnected, state.charging))
		ForRequest(msg).Respond(ctx, domain.EVDisconnectedResponse{})
	case domain.SetApiMeterRequest:
		state.logger.Debug("metering@default SetApiMeterRequest", zap.Stringer("role", msg.Role))
		err := state.setApiMeter(msg)
		if err != nil {
			state.logger.Warn("metering@default api meter rejected", zap.Error(err))
		}
		ForRequest(msg).Respond(ctx, domain.SetApiMeterResponse{
			ActorResponseMixIn: domain.ResponseMixIn(err),
		})
	case domain.SetMaxSumMainsRequest:
		state.logger.Debug("metering@default SetMaxSumMainsRequest", zap.Uint16("amps", msg.MaxSumMains))
		state.aggregator.SetMaxSumMains(msg.MaxSumMains)
		state.mainsAggregate = state.aggregator.Aggregate(state.mains.PhaseCurrent)
		state.publish(events.MainsAggregateUpdateEvents(state.mainsAggregate))
		ForRequest(msg).Respond(ctx, domain.SetMaxSumMainsResponse{})
	case domain.SetSensorboxWiFiModeRequest:
		state.logger.Debug("metering@default SetSensorboxWiFiModeRequest", zap.Stringer("mode", msg.Mode))
		var err error
		if state.mains.Sensorbox == nil {
			err = errors.New("mains meter is not a sensorbox")
		} else {
			err = state.mains.Sensorbox.SetWiFiMode(msg.Mode)
		}
		if err == nil {
			state.publishOne(events.SensorboxWiFiModeUpdateEvent(msg.Mode))
		}
		ForRequest(msg).Respond(ctx, domain.SetSensorboxWiFiModeResponse{
			ActorResponseMixIn: domain.ResponseMixIn(err),
		})
	default:
		return false
	}
	return true
}

func (state *MeteringActor) createMeters() error {
	mainsCfg := state.config.MeterConfig(energy_meter.ROLE_MAINS)
	mainsCfg.Sensorbox.OnWiFiModeChanged = func(mode energy_meter.WiFiMode) {
		state.logger.Info("sensorbox wifi mode changed", zap.Stringer("mode", mode))
		state.publishOne(events.SensorboxWiFiModeUpdateEvent(mode))
	}
	mains, err := energy_meter.NewMeter(mainsCfg, energy_meter.Hooks{
		MainsCurrents: state.onMainsCurrents,
		Energy:        state.onEnergy,
	}, state)
	if err != nil {
		return fmt.Errorf("mains meter: %w", err)
	}
	ev, err := energy_meter.NewMeter(state.config.MeterConfig(energy_meter.ROLE_EV), energy_meter.Hooks{
		EVCurrents: state.onEVCurrents,
		Energy:     state.onEnergy,
	}, state)
	if err != nil {
		return fmt.Errorf("ev meter: %w", err)
	}
	state.mains = mains
	state.ev = ev
	return nil
}

// WriteRegister queues a meter write ahead of the pending reads.
func (state *MeteringActor) WriteRegister(address uint8, register uint16, value uint16) {
	for _, w := range state.writes {
		if w.Address == address && w.Register == register && w.Value == value {
			return
		}
	}
	state.writes = append(state.writes, domain.ModbusWriteRequest{
		Address:  address,
		Register: register,
		Value:    value,
	})
}

func (state *MeteringActor) planCycle() {
	every := max(state.config.MonitorConfig.EnergyEvery, 1)
	withEnergy := state.cycle%every == 0
	state.queue = state.queue[:0]
	for _, m := range []*energy_meter.Meter{state.mains, state.ev} {
		for _, req := range m.Requests(withEnergy) {
			state.queue = append(state.queue, pendingRead{meter: m, req: req})
		}
	}
}

// next sends the next write or read of the cycle, and reports whether one was sent.
func (state *MeteringActor) next(ctx actor.Context) bool {
	if len(state.writes) > 0 {
		write := state.writes[0]
		state.writes = state.writes[1:]
		state.inflight = write
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.modbusActor, write, MODBUS_REQUEST_TIMEOUT), func(err error) any {
			return domain.ModbusWriteResponse{
				ActorResponseMixIn: domain.ResponseMixIn(err),
				Address:            write.Address,
				Register:           write.Register,
			}
		})
		return true
	}
	if len(state.queue) > 0 {
		read := state.queue[0]
		state.queue = state.queue[1:]
		state.inflight = read
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.modbusActor, domain.ModbusReadRequest{Request: read.req}, MODBUS_REQUEST_TIMEOUT), func(err error) any {
			return domain.ModbusReadResponse{
				ActorResponseMixIn: domain.ResponseMixIn(err),
				Request:            read.req,
			}
		})
		return true
	}
	state.inflight = nil
	return false
}

func (state *MeteringActor) advance(ctx actor.Context) {
	if state.next(ctx) {
		return
	}
	state.behavior.UnbecomeStacked()
	state.endCycle(ctx)
	state.stash.UnstashAll(ctx)
}

func (state *MeteringActor) endCycle(ctx actor.Context) {
	state.cycle++
	state.scheduleTick(ctx)
}

func (state *MeteringActor) scheduleTick(ctx actor.Context) {
	interval := time.Duration(state.config.MonitorConfig.PollIntervalMillis) * time.Millisecond
	state.scheduler.RequestOnce(interval, ctx.Self(), meteringTick{})
}

func (state *MeteringActor) handleRead(read pendingRead, resp domain.ModbusReadResponse) {
	role := read.meter.Role.String()
	if resp.HasResponseError() {
		state.readFailures++
		metrics.CountReadError(role)
		read.meter.CommunicationError()
		state.logger.Warn("metering@polling read failed", zap.String("role", role),
			zap.Stringer("quantity", read.req.Quantity), zap.Error(resp.GetResponseError()))
		return
	}
	q := read.meter.HandleResponse(resp.Frame)
	if q == energy_meter.QUANTITY_NONE {
		return
	}
	metrics.CountFrame(role, q.String())
	if q == energy_meter.QUANTITY_POWER {
		metrics.ObservePower(role, read.meter.MeasuredPower)
		state.publish(events.MeterPowerToUpdateEvents(read.meter.State()))
	}
}

func (state *MeteringActor) onMainsCurrents(m *energy_meter.Meter) {
	s := m.State()
	metrics.ObserveCurrents(s.Role, s.PhaseCurrent)
	state.publish(events.MeterCurrentsToUpdateEvents(s))

	state.mainsAggregate = state.aggregator.Aggregate(m.PhaseCurrent)
	state.publish(events.MainsAggregateUpdateEvents(state.mainsAggregate))

	if m.Sensorbox != nil {
		state.publish(events.SensorboxUpdateEvents(m.Sensorbox.Status, m.Sensorbox.DesiredWiFiMode()))
	}
}

func (state *MeteringActor) onEVCurrents(m *energy_meter.Meter) {
	s := m.State()
	metrics.ObserveCurrents(s.Role, s.PhaseCurrent)
	state.publish(events.MeterCurrentsToUpdateEvents(s))

	state.evLimit = state.limiter.Limit(m.MeasuredCurrent)
	if state.evLimit.OverLimit {
		state.logger.Warn("ev current over limit", zap.Int32("measured_da", state.evLimit.Measured), zap.Int32("limit_da", state.evLimit.Limit))
	}
	state.publish(events.EVLimitUpdateEvents(state.evLimit))
}

func (state *MeteringActor) onEnergy(m *energy_meter.Meter) {
	state.publish(events.MeterEnergyToUpdateEvents(m.State()))
}

func (state *MeteringActor) setApiMeter(req domain.SetApiMeterRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	m := state.meter(req.Role)
	if err := m.SetCurrents(req.Currents); err != nil {
		return err
	}
	if req.Power != nil {
		m.MeasuredPower = *req.Power
		metrics.ObservePower(m.Role.String(), m.MeasuredPower)
		state.publish(events.MeterPowerToUpdateEvents(m.State()))
	}
	if req.Energy != nil {
		m.ImportedEnergy = *req.Energy
		m.UpdateEnergies()
	}
	return nil
}

func (state *MeteringActor) watchdogTick() {
	for _, m := range []*energy_meter.Meter{state.mains, state.ev} {
		if m.Tick() {
			s := m.State()
			state.logger.Warn("meter stopped communicating", zap.String("role", s.Role), zap.String("type", s.Type))
			metrics.CountTimeout(s.Role)
			state.publishOne(events.MeterCommunicationUpdateEvent(s))
		}
	}
}

func (state *MeteringActor) metersState() domain.GetMetersStateResponse {
	resp := domain.GetMetersStateResponse{
		MainsLimit:   state.mainsAggregate,
		EVLimit:      state.evLimit,
		PollCycles:   state.cycle,
		ReadFailures: state.readFailures,
	}
	if state.mains.Type != energy_meter.METER_DISABLED {
		s := state.mains.State()
		resp.Mains = &s
	}
	if state.ev.Type != energy_meter.METER_DISABLED {
		s := state.ev.State()
		resp.EV = &s
	}
	return resp
}

func (state *MeteringActor) meter(role energy_meter.Role) *energy_meter.Meter {
	if role == energy_meter.ROLE_EV {
		return state.ev
	}
	return state.mains
}

func (state *MeteringActor) publish(evs []any) {
	for _, ev := range evs {
		state.eventStream.Publish(ev)
	}
}

func (state *MeteringActor) publishOne(ev any) {
	state.eventStream.Publish(ev)
}
