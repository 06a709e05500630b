package actor

import (
	"testing"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/util"
	"github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	mqttActor := NewTestMQTTActor(&cfg, &es, logger)
	props := actor.PropsFromProducer(func() actor.Actor { return mqttActor })
	pid := context.Spawn(props)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.True(t, resp.Healthy)

	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.MeterSensorId("mains", domain.SENSOR_ID_PHASE_CURRENT_L1),
		},
		Value:    12.3,
		Decimals: 1,
	})
	es.Publish(domain.BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.MeterSensorId("ev", domain.SENSOR_ID_COMMUNICATING),
		},
		Value: true,
	})
	es.Publish(domain.SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.SWITCH_ID_CHARGING,
		},
		Value: false,
	})

	assert.Eventually(t, func() bool { return len(mqttActor.Published()) == 3 }, 2*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{
		"evsemeter/sensor/mains_current_l1/state 12.3",
		"evsemeter/binary_sensor/ev_communicating/state on",
		"evsemeter/switch/charging/state off",
	}, mqttActor.Published())

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	// unsubscribed on stop
	es.Publish(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: domain.SENSOR_ID_SENSORBOX_IP},
		Value:                  "10.0.0.2",
	})
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, mqttActor.Published(), 3)

	as.Shutdown()
}
