package domain

// Device groups entities in Home Assistant. The bridge is one device and
// each configured meter another one, linked to the bridge via ViaDevice.
type Device struct {
	Id           string
	Name         string
	Version      string
	Model        string
	Manufacturer string
	ViaDevice    string
}

// Ref is the short form of the device, enough for Home Assistant to attach an
// entity to a device already described by another entity.
func (d Device) Ref() Device {
	return Device{
		Id:   d.Id,
		Name: d.Name,
	}
}

// GenericSensor is a read-only entity, Component is sensor or binary_sensor.
type GenericSensor struct {
	Device            Device
	Id                string
	Component         string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing
	DeviceClass       string
	EntityCategory    string // diagnostic, config or empty
	EnabledByDefault  *bool
	Icon              string
}

// GenericSwitch is an entity commanded with on/off, used for the session events.
type GenericSwitch struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}

// GenericInputNumber is a bounded numeric setting.
type GenericInputNumber struct {
	Device       Device
	Id           string
	Name         string
	UniqueId     string
	Icon         string
	Min          float64
	Max          float64
	Step         float64
	Mode         string
	InitialValue float64
}
