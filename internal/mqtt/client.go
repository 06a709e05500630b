package mqtt

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/config"
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	MQTT_PAYLOAD_ONLINE  = domain.PAYLOAD_ONLINE
	MQTT_PAYLOAD_OFFLINE = domain.PAYLOAD_OFFLINE
	MQTT_PAYLOAD_ON      = domain.PAYLOAD_ON
	MQTT_PAYLOAD_OFF     = domain.PAYLOAD_OFF
)

const (
	COMMAND_SWITCH = "switch"
	COMMAND_NUMBER = "number"
	COMMAND_METER  = "meter"
)

// meter feed device ids, as in <base>/set/<id>
const (
	METER_FEED_MAINS = "mains_meter"
	METER_FEED_EV    = "ev_meter"
)

const DEFAULT_DISCOVERY_PREFIX = "homeassistant"

var errNoRoute = errors.New("topic is not a command")

func OptsFromConfig(cfg *config.Config) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTT.Host, cfg.MQTT.Port)).
		SetClientID(fmt.Sprintf("evsemeter_%d", rand.Intn(1000))).
		SetWill(bridgeStateTopic(cfg.MQTT.BaseTopic), MQTT_PAYLOAD_OFFLINE, 0, true)
	if cfg.MQTT.Username != "" && cfg.MQTT.Password != "" {
		opts.SetUsername(cfg.MQTT.Username).SetPassword(cfg.MQTT.Password)
	}
	return opts
}

// commandRoute maps one command topic family to a ParsedMQTTCommand.
type commandRoute struct {
	command string
	topic   *regexp.Regexp
	accept  func(payload string) error
}

func (r commandRoute) parse(topic, payload string) (*ParsedMQTTCommand, error) {
	m := r.topic.FindStringSubmatch(topic)
	if len(m) != 2 {
		return nil, errNoRoute
	}
	if r.accept != nil {
		if err := r.accept(payload); err != nil {
			return nil, fmt.Errorf("%s %s: %w", r.command, m[1], err)
		}
	}
	return &ParsedMQTTCommand{
		DeviceId: m[1],
		Command:  r.command,
		Payload:  payload,
	}, nil
}

func commandRoutes(baseTopic string) []commandRoute {
	return []commandRoute{
		{command: COMMAND_SWITCH, topic: switchCommandExtractor(baseTopic)},
		{command: COMMAND_NUMBER, topic: inputNumberCommandExtractor(baseTopic), accept: func(payload string) error {
			_, err := strconv.ParseFloat(payload, 64)
			return err
		}},
		{command: COMMAND_METER, topic: meterFeedExtractor(baseTopic)},
	}
}

func CreateMQTTClient(cfg *config.Config, opts *mqtt.ClientOptions, onConnectHandler func(client mqtt.Client),
	onConnectionLostHandler func(mqtt.Client, error)) *MQTTClient {
	if onConnectHandler != nil {
		opts.SetOnConnectHandler(onConnectHandler)
	}
	if onConnectionLostHandler != nil {
		opts.SetConnectionLostHandler(onConnectionLostHandler)
	}
	return &MQTTClient{
		client: mqtt.NewClient(opts),
		cfg:    cfg.MQTT,
		routes: commandRoutes(cfg.MQTT.BaseTopic),
	}
}

// MQTTClient wraps paho with the bridge topic layout. Blocking calls report
// through a continuation run on a separate goroutine.
type MQTTClient struct {
	client mqtt.Client
	cfg    config.MQTTConfig
	routes []commandRoute
}

type ParsedMQTTCommand struct {
	DeviceId string
	Command  string
	Param    string
	Payload  string
}

func (c *MQTTClient) BridgeStateTopic() string {
	return bridgeStateTopic(c.cfg.BaseTopic)
}

// StateTopic is <base>/<component>/<id>/state, or the bridge availability topic.
func (c *MQTTClient) StateTopic(component string, id string) string {
	if component == domain.COMPONENT_BRIDGE {
		return c.BridgeStateTopic()
	}
	return fmt.Sprintf("%s/%s/%s/state", c.cfg.BaseTopic, component, id)
}

func (c *MQTTClient) SwitchCommandTopic(switchId string) string {
	return fmt.Sprintf("%s/%s/%s/command", c.cfg.BaseTopic, domain.COMPONENT_SWITCH, switchId)
}

func (c *MQTTClient) InputNumberCommandTopic(id string) string {
	return fmt.Sprintf("%s/%s/%s/set", c.cfg.BaseTopic, domain.COMPONENT_NUMBER, id)
}

func (c *MQTTClient) MeterFeedTopic(id string) string {
	return fmt.Sprintf("%s/set/%s", c.cfg.BaseTopic, id)
}

func (c *MQTTClient) HADiscoveryPrefix() string {
	if c.cfg.HADiscoveryTopic == "" {
		return DEFAULT_DISCOVERY_PREFIX
	}
	return c.cfg.HADiscoveryTopic
}

// ParseMQTTCommand returns the first route matching the message topic.
func (c *MQTTClient) ParseMQTTCommand(msg mqtt.Message) (*ParsedMQTTCommand, error) {
	topic, payload := msg.Topic(), string(msg.Payload())
	for _, route := range c.routes {
		cmd, err := route.parse(topic, payload)
		if errors.Is(err, errNoRoute) {
			continue
		}
		return cmd, err
	}
	return nil, errNoRoute
}

func (c *MQTTClient) Publish(topic string, payload any, qos byte, retain bool, continuation func(error), timeout time.Duration) {
	await("publish", c.client.Publish(topic, qos, retain, payload), continuation, timeout)
}

func (c *MQTTClient) Subscribe(topic string, qos byte, handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	await("subscribe", c.client.Subscribe(topic, qos, handler), continuation, timeout)
}

// SubscribeToCommandTopic listens on the whole base topic, ParseMQTTCommand
// sorts out what is a command.
func (c *MQTTClient) SubscribeToCommandTopic(handler mqtt.MessageHandler, continuation func(error), timeout time.Duration) {
	c.Subscribe(c.cfg.BaseTopic+"/#", 1, handler, continuation, timeout)
}

func (c *MQTTClient) Connect(continuation func(error), timeout time.Duration) {
	await("connect", c.client.Connect(), continuation, timeout)
}

func (c *MQTTClient) Disconnect(timeout time.Duration) {
	c.client.Disconnect(uint(timeout.Milliseconds()))
}

func await(op string, token mqtt.Token, continuation func(error), timeout time.Duration) {
	go func() {
		if !token.WaitTimeout(timeout) {
			continuation(fmt.Errorf("MQTT %s timed out", op))
			return
		}
		continuation(token.Error())
	}()
}

func switchCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/switch/([a-zA-Z0-9_]+)/command$", regexp.QuoteMeta(baseTopic)))
}

func inputNumberCommandExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/number/([a-zA-Z0-9_]+)/set$", regexp.QuoteMeta(baseTopic)))
}

func meterFeedExtractor(baseTopic string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf("^%s/set/(%s|%s)$", regexp.QuoteMeta(baseTopic), METER_FEED_MAINS, METER_FEED_EV))
}

func bridgeStateTopic(baseTopic string) string {
	return fmt.Sprintf("%s/bridge/state", baseTopic)
}
