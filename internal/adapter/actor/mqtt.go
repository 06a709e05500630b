package actor

import (
	"fmt"
	"sync"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/config"
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/mqtt"
	"github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	MQTT_CONNECT_TIMEOUT   = 10 * time.Second
	MQTT_SUBSCRIBE_TIMEOUT = 1 * time.Second
	MQTT_PUBLISH_TIMEOUT   = 5 * time.Second
)

// MQTTActor mirrors the event stream to the broker and turns command topics
// into ParsedCommand messages for its parent. Any broker failure panics, the
// parent's backoff supervisor reconnects.
type MQTTActor struct {
	config         *config.Config
	behavior       actor.Behavior
	stash          *actorutil.Stash
	client         *mqtt.MQTTClient
	eventStream    *eventstream.EventStream
	eventStreamSub *eventstream.Subscription
	logger         *zap.Logger

	// recorder only
	publishedMu sync.Mutex
	published   []string
}

type onEventStreamMessage struct {
	message any
}

type MQTTConnected struct{}

type MQTTSubscribed struct{}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	Error error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

type rawMessage struct {
	topic   string
	message string
	retain  bool
}

func newMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	return &MQTTActor{
		config:      config,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		eventStream: eventStream,
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
	}
}

func NewMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := newMQTTActor(config, eventStream, logger)
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

// StartingReceive connects, then subscribes, stashing everything else.
func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil,
			func(_ pahomqtt.Client, err error) {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			})
		state.client.Connect(state.continueWith(ctx, MQTTConnected{}), MQTT_CONNECT_TIMEOUT)
	case MQTTConnected:
		state.logger.Debug("mqtt@starting connected")
		state.publishBridgeState(true)
		state.subscribeEventStream(ctx)
		state.client.SubscribeToCommandTopic(func(_ pahomqtt.Client, m pahomqtt.Message) {
			if cmd, err := state.client.ParseMQTTCommand(m); err == nil {
				ctx.Send(ctx.Self(), ParsedCommand{Command: cmd})
			}
		}, state.continueWith(ctx, MQTTSubscribed{}), MQTT_SUBSCRIBE_TIMEOUT)
	case MQTTSubscribed:
		state.logger.Debug("mqtt@starting subscribed")
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting, *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		ctx.Respond(state.health())
	case onEventStreamMessage:
		if event, ok := msg.message.(domain.SensorUpdateEvent); ok {
			state.publishSensorValue(ctx, event)
		}
	case ParsedCommand:
		state.logger.Debug("mqtt@default parsedCommand", zap.Any("command", msg.Command))
		ctx.Send(ctx.Parent(), msg)
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishDiscoveryRequest")
		err := state.PublishHomeAssistantDiscovery(msg.Sensors, msg.Switches, msg.InputNumbers)
		if err != nil {
			state.logger.Error("mqtt@default discovery not published", zap.Error(err))
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishDiscoveryResponse{
			ActorResponseMixIn: domain.ResponseMixIn(err),
		})
	case MQTTConnectionLost:
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// PublishingReceive holds the mailbox until the broker acks, keeping state
// updates in order.
func (state *MQTTActor) PublishingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.Error))
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	case MQTTConnectionLost:
		state.logger.Error("mqtt@publishing connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) health() domain.ActorHealthResponse {
	return domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MQTT,
		Healthy: true,
		State:   "idle",
	}
}

// continueWith sends next to self on success, MQTTConnectionLost otherwise.
func (state *MQTTActor) continueWith(ctx actor.Context, next any) func(error) {
	return func(err error) {
		if err != nil {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			return
		}
		ctx.Send(ctx.Self(), next)
	}
}

func (state *MQTTActor) event2MQTTMessage(event any) *rawMessage {
	update, ok := event.(domain.SensorUpdateEvent)
	if !ok {
		return nil
	}
	return &rawMessage{
		topic:   state.client.StateTopic(update.Component(), update.SensorId()),
		message: update.Payload(),
		retain:  update.Retained(),
	}
}

func (state *MQTTActor) publishBridgeState(online bool) {
	msg := state.event2MQTTMessage(domain.BridgeStateUpdateEvent{Online: online})
	state.client.Publish(msg.topic, msg.message, 0, msg.retain, func(error) {}, 500*time.Millisecond)
}

func (state *MQTTActor) publishSensorValue(ctx actor.Context, event domain.SensorUpdateEvent) {
	msg := state.event2MQTTMessage(event)
	if msg == nil {
		return
	}
	state.logger.Sugar().Debugf("mqtt@publish: %s => %s", msg.topic, msg.message)
	state.client.Publish(msg.topic, msg.message, 1, msg.retain, func(err error) {
		ctx.Send(ctx.Self(), publishResult{Error: err})
	}, MQTT_PUBLISH_TIMEOUT)
	state.behavior.BecomeStacked(state.PublishingReceive)
}

// PublishHomeAssistantDiscovery publishes retained config entries without
// waiting for acks.
func (state *MQTTActor) PublishHomeAssistantDiscovery(sensors []domain.GenericSensor,
	switches []domain.GenericSwitch, inputNumbers []domain.GenericInputNumber) error {
	for _, msg := range state.client.DiscoveryMessages(sensors, switches, inputNumbers) {
		payload, err := msg.Payload()
		if err != nil {
			return fmt.Errorf("discovery %s: %w", msg.Topic, err)
		}
		state.client.Publish(msg.Topic, payload, 0, true, func(error) {}, 1*time.Second)
	}
	return nil
}

func (state *MQTTActor) subscribeEventStream(ctx actor.Context) {
	if state.eventStream == nil || state.eventStreamSub != nil {
		return
	}
	self := ctx.Self()
	root := ctx.ActorSystem().Root
	state.eventStreamSub = state.eventStream.Subscribe(func(value any) {
		root.Send(self, onEventStreamMessage{message: value})
	})
}

func (state *MQTTActor) unsubscribeEventStream() {
	if state.eventStreamSub != nil {
		state.eventStream.Unsubscribe(state.eventStreamSub)
		state.eventStreamSub = nil
	}
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.client != nil {
		state.publishBridgeState(false)
		state.client.Disconnect(500 * time.Millisecond)
	}
	state.unsubscribeEventStream()
}

// NewTestMQTTActor renders topics and payloads without a broker and records
// them, see Published.
func NewTestMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := newMQTTActor(config, eventStream, logger)
	act.behavior.Become(act.RecordingReceive)
	return act
}

// Published returns the "topic payload" lines seen by the recording actor.
func (state *MQTTActor) Published() []string {
	state.publishedMu.Lock()
	defer state.publishedMu.Unlock()
	return append([]string(nil), state.published...)
}

func (state *MQTTActor) record(topic, payload string) {
	state.publishedMu.Lock()
	defer state.publishedMu.Unlock()
	state.published = append(state.published, topic+" "+payload)
}

func (state *MQTTActor) RecordingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		state.subscribeEventStream(ctx)
	case *actor.Stopping:
		state.unsubscribeEventStream()
	case domain.ActorHealthRequest:
		ctx.Respond(state.health())
	case onEventStreamMessage:
		if raw := state.event2MQTTMessage(msg.message); raw != nil {
			state.record(raw.topic, raw.message)
		}
	case domain.PublishDiscoveryRequest:
		for _, d := range state.client.DiscoveryMessages(msg.Sensors, msg.Switches, msg.InputNumbers) {
			state.record(d.Topic, d.Name)
		}
		actorutil.ForRequest(msg).Respond(ctx, domain.PublishDiscoveryResponse{})
	case ParsedCommand:
		ctx.Send(ctx.Parent(), msg)
	}
}
