package mqtt

import (
	"testing"

	"github.com/berfenger/evsemeter2mqtt/internal/config"
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload string
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return []byte(m.payload) }
func (m fakeMessage) Ack()              {}

func testClient() *MQTTClient {
	cfg := config.Config{MQTT: config.MQTTConfig{BaseTopic: "evsemeter"}}
	return CreateMQTTClient(&cfg, OptsFromConfig(&cfg), nil, nil)
}

func TestSwitchCommandParse(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	cmd, err := client.ParseMQTTCommand(fakeMessage{"evsemeter/switch/charging/command", "on"})
	require.NoError(t, err)
	assert.Equal(&ParsedMQTTCommand{DeviceId: "charging", Command: COMMAND_SWITCH, Payload: "on"}, cmd)

	// own state publications come back through the wildcard subscription
	_, err = client.ParseMQTTCommand(fakeMessage{"evsemeter/switch/charging/state", "on"})
	assert.ErrorIs(err, errNoRoute)

	_, err = client.ParseMQTTCommand(fakeMessage{"other/switch/charging/command", "on"})
	assert.ErrorIs(err, errNoRoute)
}

func TestInputNumberCommandParse(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	cmd, err := client.ParseMQTTCommand(fakeMessage{"evsemeter/number/sensorbox_wifi_mode/set", "2"})
	require.NoError(t, err)
	assert.Equal(COMMAND_NUMBER, cmd.Command)
	assert.Equal("sensorbox_wifi_mode", cmd.DeviceId)

	_, err = client.ParseMQTTCommand(fakeMessage{"evsemeter/number/sensorbox_wifi_mode/set", "portal"})
	assert.Error(err)
	assert.NotErrorIs(err, errNoRoute)
}

func TestMeterFeedParse(t *testing.T) {

	assert := assert.New(t)

	r := meterFeedExtractor("evsemeter")

	assert.Equal([]string{"evsemeter/set/mains_meter", "mains_meter"}, r.FindStringSubmatch("evsemeter/set/mains_meter"))
	assert.Equal([]string{"evsemeter/set/ev_meter", "ev_meter"}, r.FindStringSubmatch("evsemeter/set/ev_meter"))
	assert.Nil(r.FindStringSubmatch("evsemeter/set/solar_meter"))
	assert.Nil(r.FindStringSubmatch("evsemeter/set/mains_meter/extra"))

	cmd, err := testClient().ParseMQTTCommand(fakeMessage{"evsemeter/set/ev_meter", "10:10:10:-1:-1"})
	require.NoError(t, err)
	assert.Equal(COMMAND_METER, cmd.Command)
	assert.Equal(METER_FEED_EV, cmd.DeviceId)
}

func TestTopics(t *testing.T) {

	assert := assert.New(t)

	client := testClient()
	assert.Equal("evsemeter/bridge/state", client.StateTopic(domain.COMPONENT_BRIDGE, domain.SENSOR_ID_BRIDGE_STATE))
	assert.Equal("evsemeter/sensor/mains_current_l1/state", client.StateTopic(domain.COMPONENT_SENSOR, "mains_current_l1"))
	assert.Equal("evsemeter/switch/charging/command", client.SwitchCommandTopic("charging"))
	assert.Equal("evsemeter/set/mains_meter", client.MeterFeedTopic(METER_FEED_MAINS))
	assert.Equal("homeassistant/number/d/sensorbox_wifi_mode/config",
		client.DiscoveryTopic(domain.COMPONENT_NUMBER, "d", domain.INPUT_NUMBER_ID_SENSORBOX_WIFI_MODE))
}

func TestHADiscoveryBinarySensorPayloads(t *testing.T) {

	assert := assert.New(t)

	client := testClient()

	device := domain.MeterDevice("evsemeter", "mains", "Finder 7E", 10)
	for _, sensor := range domain.MeterSensors(device, "mains", true, false) {
		msg := GenericSensorToHADiscoveryMessage(client, sensor)
		if sensor.Component == domain.COMPONENT_BINARY_SENSOR {
			assert.Equal(MQTT_PAYLOAD_ON, msg.PayloadOn, sensor.Id)
			assert.Equal("evsemeter/binary_sensor/mains_communicating/state", msg.StateTopic)
		} else {
			assert.Empty(msg.PayloadOn, sensor.Id)
		}
		assert.Equal("evsemeter/bridge/state", msg.AvTopic)
	}

	wifi := domain.SensorboxInputNumbers(device, 0)[0]
	msg := GenericInputNumberToHADiscoveryMessage(client, wifi)
	assert.Equal(0.0, *msg.Min)
	assert.Equal(2.0, *msg.Max)
	assert.Equal("evsemeter/number/sensorbox_wifi_mode/set", msg.CommandTopic)
}

func TestDiscoveryMessages(t *testing.T) {

	assert := assert.New(t)

	client := testClient()
	device := domain.MeterDevice("evsemeter", "mains", "Finder 7E", 10)
	sensors := domain.MeterSensors(device, "mains", true, false)
	numbers := domain.SensorboxInputNumbers(device, 0)

	msgs := client.DiscoveryMessages(sensors, nil, numbers)
	require.Len(t, msgs, len(sensors)+len(numbers))

	last := msgs[len(msgs)-1]
	assert.Equal(client.DiscoveryTopic(domain.COMPONENT_NUMBER, device.Id, domain.INPUT_NUMBER_ID_SENSORBOX_WIFI_MODE), last.Topic)
	payload, err := last.Payload()
	require.NoError(t, err)
	assert.Contains(string(payload), `"command_topic":"evsemeter/number/sensorbox_wifi_mode/set"`)
}
