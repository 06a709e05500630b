package actor

import (
	"errors"
	"testing"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"
	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
	"github.com/berfenger/evsemeter2mqtt/pkg/modbus_transport"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestModbusActorRead(t *testing.T) {

	assert := assert.New(t)

	transport := modbus_transport.CreateTestTransport()
	transport.SetValues(10, 0x100E, energy_meter.HBF_HWF, energy_meter.DATATYPE_FLOAT32, -2, 650, 1225, 50)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(transport, logger) })
	pid := context.Spawn(props)

	req := energy_meter.ReadRequest{
		Address:  10,
		Function: modbus_transport.FUNCTION_READ_INPUT,
		Register: 0x100E,
		Count:    6,
		Quantity: energy_meter.QUANTITY_CURRENT,
	}
	result, err := context.RequestFuture(pid, domain.ModbusReadRequest{Request: req}, 5*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ModbusReadResponse)
	require.True(t, ok)

	assert.False(resp.HasResponseError())
	assert.Equal(req, resp.Request)
	assert.Equal(uint8(10), resp.Frame.Address)
	assert.Equal(12, resp.Frame.DataLength())
	assert.Equal(int32(6500), energy_meter.Decode(resp.Frame.Data, 0, energy_meter.HBF_HWF, energy_meter.DATATYPE_FLOAT32, -3))

	context.Stop(pid)

	as.Shutdown()
}

func TestModbusActorReadError(t *testing.T) {

	assert := assert.New(t)

	transport := modbus_transport.CreateTestTransport()
	transport.Fail(12, errors.New("no response"))

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(transport, logger) })
	pid := context.Spawn(props)

	req := energy_meter.ReadRequest{Address: 12, Function: modbus_transport.FUNCTION_READ_INPUT, Register: 0x6, Count: 6}
	result, err := context.RequestFuture(pid, domain.ModbusReadRequest{Request: req}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.ModbusReadResponse)

	assert.True(resp.HasResponseError())
	assert.Equal(req, resp.Request)

	// the actor keeps serving after a failure
	result, err = context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.True(result.(domain.ActorHealthResponse).Healthy)

	context.Stop(pid)

	as.Shutdown()
}

func TestModbusActorWrite(t *testing.T) {

	assert := assert.New(t)

	transport := modbus_transport.CreateTestTransport()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(transport, logger) })
	pid := context.Spawn(props)

	msg := domain.ModbusWriteRequest{
		Address:  energy_meter.SENSORBOX_ADDRESS,
		Register: energy_meter.SENSORBOX_REGISTER_WIFI,
		Value:    1,
	}
	result, err := context.RequestFuture(pid, msg, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.ModbusWriteResponse)

	assert.False(resp.HasResponseError())
	assert.Equal([]modbus_transport.RegisterWrite{{Address: 0x0A, Register: 0x801, Value: 1}}, transport.Writes())

	context.Stop(pid)

	as.Shutdown()
}
