package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"
	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
	"github.com/berfenger/evsemeter2mqtt/pkg/modbus_transport"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const MODBUS_TASK_TIMEOUT = 2 * time.Second

// ModbusActor owns the bus. Requests are served one at a time, later ones
// wait in the stash.
type ModbusActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	transport modbus_transport.Transport
	logger    *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewModbusActor(transport modbus_transport.Transport, logger *zap.Logger) *ModbusActor {
	act := &ModbusActor{
		transport: transport,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_MODBUS, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ModbusActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ModbusActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("modbus@starting started")
		if err := state.transport.Open(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.close()
	default:
		state.logger.Debug("modbus@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ModbusActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("modbus@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MODBUS,
			Healthy: true,
			State:   "idle",
		})
	case domain.ModbusReadRequest:
		state.logger.Debug("modbus@default ModbusReadRequest",
			zap.Uint8("address", msg.Request.Address), zap.Uint16("register", msg.Request.Register))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		req := msg.Request
		actorutil.NewBackgroundTask(ctx, func() (backgroundTaskResult, error) {
			resp, err := state.read(req)
			if err != nil {
				return backgroundTaskResult{}, err
			}
			return backgroundTaskResult{message: *resp, replyTo: sender}, nil
		}).Fallback(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ModbusReadResponse{
					ActorResponseMixIn: domain.ResponseMixIn(err),
					Request:            req,
				},
				replyTo: sender,
			}
		}).WithTimeout(MODBUS_TASK_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.ModbusWriteRequest:
		state.logger.Debug("modbus@default ModbusWriteRequest",
			zap.Uint8("address", msg.Address), zap.Uint16("register", msg.Register), zap.Uint16("value", msg.Value))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		write := msg
		actorutil.NewBackgroundTask(ctx, func() (backgroundTaskResult, error) {
			return backgroundTaskResult{message: state.write(write), replyTo: sender}, nil
		}).Fallback(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ModbusWriteResponse{
					ActorResponseMixIn: domain.ResponseMixIn(err),
					Address:            write.Address,
					Register:           write.Register,
				},
				replyTo: sender,
			}
		}).WithTimeout(MODBUS_TASK_TIMEOUT).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case *actor.Stopping:
		state.close()
	case *actor.Restarting:
		state.close()
	default:
		state.logger.Debug("modbus@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ModbusActor) WaitingModbus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("modbus@WaitingModbus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MODBUS,
			Healthy: true,
			State:   "busy",
		})
	case *actor.Stopping:
		state.close()
	case *actor.Restarting:
		state.close()
	default:
		state.logger.Debug("modbus@WaitingModbus stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ModbusActor) read(req energy_meter.ReadRequest) (*domain.ModbusReadResponse, error) {
	frame, err := state.transport.Read(req)
	if err != nil {
		state.logger.Warn("modbus read failed", zap.Uint8("address", req.Address),
			zap.Uint16("register", req.Register), zap.Error(err))
		return nil, err
	}
	return &domain.ModbusReadResponse{
		Request: req,
		Frame:   frame,
	}, nil
}

func (state *ModbusActor) write(req domain.ModbusWriteRequest) domain.ModbusWriteResponse {
	err := state.transport.Write(req.Address, req.Register, req.Value)
	if err != nil {
		state.logger.Warn("modbus write failed", zap.Uint8("address", req.Address),
			zap.Uint16("register", req.Register), zap.Error(err))
	}
	return domain.ModbusWriteResponse{
		ActorResponseMixIn: domain.ResponseMixIn(err),
		Address:            req.Address,
		Register:           req.Register,
	}
}

func (state *ModbusActor) close() {
	if err := state.transport.Close(); err != nil {
		state.logger.Warn("modbus close failed", zap.Error(err))
	}
}
