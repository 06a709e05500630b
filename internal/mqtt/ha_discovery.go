package mqtt

import (
	"encoding/json"
	"fmt"

	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
)

// HADiscoveryConfig is the retained payload Home Assistant reads from
// <prefix>/<component>/<device>/<id>/config.
type HADiscoveryConfig struct {
	Device            HADiscoveryDevice `json:"device"`
	StateTopic        string            `json:"state_topic"`
	CommandTopic      string            `json:"command_topic,omitempty"`
	StateClass        string            `json:"state_class,omitempty"`
	DeviceClass       string            `json:"device_class,omitempty"`
	UnitOfMeasurement string            `json:"unit_of_measurement,omitempty"`
	AvTopic           string            `json:"availability_topic,omitempty"`
	EntityCategory    string            `json:"entity_category,omitempty"`
	Name              string            `json:"name"`
	UniqueId          string            `json:"unique_id"`
	Platform          string            `json:"platform"`
	EnabledByDefault  *bool             `json:"enabled_by_default,omitempty"`
	PayloadOn         string            `json:"payload_on,omitempty"`
	PayloadOff        string            `json:"payload_off,omitempty"`
	Icon              string            `json:"icon,omitempty"`
	Min               *float64          `json:"min,omitempty"`
	Max               *float64          `json:"max,omitempty"`
	Step              float64           `json:"step,omitempty"`
	Mode              string            `json:"mode,omitempty"`
	InitialValue      float64           `json:"initial,omitempty"`
}

type HADiscoveryDevice struct {
	Id           []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Version      string   `json:"sw_version,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name,omitempty"`
	ViaDevice    string   `json:"via_device,omitempty"`
}

// DiscoveryMessage is one config entry ready to publish.
type DiscoveryMessage struct {
	Topic  string
	Name   string
	Config HADiscoveryConfig
}

func (m DiscoveryMessage) Payload() ([]byte, error) {
	return json.Marshal(m.Config)
}

// DiscoveryMessages builds the config entries of every component, sensors first.
func (c *MQTTClient) DiscoveryMessages(sensors []domain.GenericSensor, switches []domain.GenericSwitch,
	inputNumbers []domain.GenericInputNumber) []DiscoveryMessage {
	msgs := make([]DiscoveryMessage, 0, len(sensors)+len(switches)+len(inputNumbers))
	for _, s := range sensors {
		msgs = append(msgs, DiscoveryMessage{
			Topic:  c.DiscoveryTopic(s.Component, s.Device.Id, s.Id),
			Name:   s.Name,
			Config: GenericSensorToHADiscoveryMessage(c, s),
		})
	}
	for _, s := range switches {
		msgs = append(msgs, DiscoveryMessage{
			Topic:  c.DiscoveryTopic(domain.COMPONENT_SWITCH, s.Device.Id, s.Id),
			Name:   s.Name,
			Config: GenericSwitchToHADiscoveryMessage(c, s),
		})
	}
	for _, n := range inputNumbers {
		msgs = append(msgs, DiscoveryMessage{
			Topic:  c.DiscoveryTopic(domain.COMPONENT_NUMBER, n.Device.Id, n.Id),
			Name:   n.Name,
			Config: GenericInputNumberToHADiscoveryMessage(c, n),
		})
	}
	return msgs
}

func (c *MQTTClient) DiscoveryTopic(component, deviceId, id string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", c.HADiscoveryPrefix(), component, deviceId, id)
}

func (c *MQTTClient) entity(d domain.Device, name, uniqueId, icon, stateTopic string) HADiscoveryConfig {
	return HADiscoveryConfig{
		Device: HADiscoveryDevice{
			Id:           []string{d.Id},
			Manufacturer: d.Manufacturer,
			Version:      d.Version,
			Model:        d.Model,
			Name:         d.Name,
			ViaDevice:    d.ViaDevice,
		},
		StateTopic: stateTopic,
		AvTopic:    c.BridgeStateTopic(),
		Name:       name,
		UniqueId:   uniqueId,
		Icon:       icon,
		Platform:   "mqtt",
	}
}

func GenericSensorToHADiscoveryMessage(client *MQTTClient, sensor domain.GenericSensor) HADiscoveryConfig {
	cfg := client.entity(sensor.Device, sensor.Name, sensor.UniqueId, sensor.Icon,
		client.StateTopic(sensor.Component, sensor.Id))
	cfg.StateClass = sensor.StateClass
	cfg.DeviceClass = sensor.DeviceClass
	cfg.UnitOfMeasurement = sensor.UnitOfMeasurement
	cfg.EntityCategory = sensor.EntityCategory
	cfg.EnabledByDefault = sensor.EnabledByDefault

	switch {
	case sensor.Id == domain.SENSOR_ID_BRIDGE_STATE:
		cfg.StateTopic = client.BridgeStateTopic()
		cfg.PayloadOn, cfg.PayloadOff = MQTT_PAYLOAD_ONLINE, MQTT_PAYLOAD_OFFLINE
	case sensor.Component == domain.COMPONENT_BINARY_SENSOR:
		cfg.PayloadOn, cfg.PayloadOff = MQTT_PAYLOAD_ON, MQTT_PAYLOAD_OFF
	}
	return cfg
}

func GenericSwitchToHADiscoveryMessage(client *MQTTClient, sw domain.GenericSwitch) HADiscoveryConfig {
	cfg := client.entity(sw.Device, sw.Name, sw.UniqueId, sw.Icon,
		client.StateTopic(domain.COMPONENT_SWITCH, sw.Id))
	cfg.CommandTopic = client.SwitchCommandTopic(sw.Id)
	cfg.PayloadOn, cfg.PayloadOff = MQTT_PAYLOAD_ON, MQTT_PAYLOAD_OFF
	return cfg
}

func GenericInputNumberToHADiscoveryMessage(client *MQTTClient, n domain.GenericInputNumber) HADiscoveryConfig {
	cfg := client.entity(n.Device, n.Name, n.UniqueId, n.Icon,
		client.StateTopic(domain.COMPONENT_NUMBER, n.Id))
	cfg.CommandTopic = client.InputNumberCommandTopic(n.Id)
	cfg.Min, cfg.Max = &n.Min, &n.Max
	cfg.Step = n.Step
	cfg.Mode = n.Mode
	cfg.InitialValue = n.InitialValue
	return cfg
}
