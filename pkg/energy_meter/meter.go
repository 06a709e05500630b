package energy_meter

import (
	"fmt"
	"slices"
)

type Role uint8

const (
	ROLE_MAINS Role = iota
	ROLE_EV
)

func (r Role) String() string {
	if r == ROLE_EV {
		return "ev"
	}
	return "mains"
}

// Communication watchdog reload values, in seconds.
const (
	COMM_TIMEOUT   = 11
	COMM_EVTIMEOUT = 64
)

type ResetState uint8

const (
	RESET_NONE            ResetState = iota
	RESET_PENDING_SESSION            // snapshot at next charging session start
	RESET_PENDING_INITIAL            // snapshot on next energy update
)

func (s ResetState) String() string {
	switch s {
	case RESET_PENDING_SESSION:
		return "pending_session"
	case RESET_PENDING_INITIAL:
		return "pending_initial"
	}
	return "none"
}

type Quantity uint8

const (
	QUANTITY_NONE Quantity = iota
	QUANTITY_CURRENT
	QUANTITY_POWER
	QUANTITY_ENERGY_IMPORT
	QUANTITY_ENERGY_EXPORT
)

func (q Quantity) String() string {
	switch q {
	case QUANTITY_CURRENT:
		return "current"
	case QUANTITY_POWER:
		return "power"
	case QUANTITY_ENERGY_IMPORT:
		return "energy_import"
	case QUANTITY_ENERGY_EXPORT:
		return "energy_export"
	}
	return "none"
}

type FrameKind uint8

const (
	FRAME_RESPONSE FrameKind = iota
	FRAME_REQUEST
)

// ResponseFrame is one Modbus message as delivered by the transport.
type ResponseFrame struct {
	Kind     FrameKind
	Address  uint8
	Function uint8
	Register uint16
	Data     []byte
}

func (f ResponseFrame) DataLength() int {
	return len(f.Data)
}

// Hooks are the collaborators notified after a frame has been applied.
// Any of them may be nil.
type Hooks struct {
	MainsCurrents func(m *Meter)
	EVCurrents    func(m *Meter)
	Energy        func(m *Meter)
}

// RegisterWriter receives the single register writes a meter emits.
type RegisterWriter interface {
	WriteRegister(address uint8, register uint16, value uint16)
}

type MeterConfig struct {
	Type          MeterType
	Address       uint8
	Role          Role
	MainsCapacity uint16
	// Custom is required when Type is METER_CUSTOM.
	Custom    *Descriptor
	Sensorbox SensorboxConfig
}

type Meter struct {
	Type    MeterType
	Address uint8
	Role    Role
	Timeout uint8

	PhaseCurrent    [3]int32 // dA
	PhasePower      [3]int32 // W
	MeasuredCurrent int32    // dA, max of PhaseCurrent
	MeasuredPower   int32    // W

	ImportedEnergy     int32 // Wh
	ExportedEnergy     int32 // Wh
	NetEnergy          int32 // Wh
	SessionStartEnergy int32 // Wh
	ChargedEnergy      int32 // Wh
	Reset              ResetState

	Sensorbox *Sensorbox

	descriptor    Descriptor
	family        Family
	mainsCapacity uint16
	hooks         Hooks
	writer        RegisterWriter
}

func NewMeter(cfg MeterConfig, hooks Hooks, writer RegisterWriter) (*Meter, error) {
	descriptor, err := LookupDescriptor(cfg.Type)
	if err != nil {
		return nil, err
	}
	if cfg.Type == METER_CUSTOM {
		if cfg.Custom == nil {
			return nil, fmt.Errorf("meter type %s requires a custom descriptor", cfg.Type)
		}
		if err := cfg.Custom.Validate(); err != nil {
			return nil, fmt.Errorf("custom meter: %w", err)
		}
		descriptor = *cfg.Custom
	}
	m := &Meter{
		Type:          cfg.Type,
		Address:       cfg.Address,
		Role:          cfg.Role,
		Reset:         RESET_PENDING_INITIAL,
		descriptor:    descriptor,
		family:        familyOf(cfg.Type),
		mainsCapacity: cfg.MainsCapacity,
		hooks:         hooks,
		writer:        writer,
	}
	if cfg.Type == METER_SENSORBOX {
		m.Sensorbox = NewSensorbox(cfg.Sensorbox)
	}
	return m, nil
}

func (m *Meter) Descriptor() Descriptor {
	return m.descriptor
}

// Decode reads value number index of buf with this meter's wire format.
func (m *Meter) Decode(buf []byte, index int, exponent int8) int32 {
	return Decode(buf, index, m.descriptor.ByteOrder, m.descriptor.DataType, exponent)
}

// HandleResponse applies a response frame to the meter and reports which
// quantity it updated. Frames matching no configured register, and Sensorbox
// frames without fresh data, return QUANTITY_NONE.
func (m *Meter) HandleResponse(frame ResponseFrame) Quantity {
	if frame.Kind != FRAME_RESPONSE || !m.Type.HasWireRegisters() {
		return QUANTITY_NONE
	}
	d := &m.descriptor
	switch frame.Register {
	case d.Current.Address:
		if !m.family.decodeCurrent(m, frame) {
			return QUANTITY_NONE
		}
		m.currentsUpdated()
		return QUANTITY_CURRENT
	case d.Power.Address:
		m.MeasuredPower = m.family.decodePower(m, frame.Data)
		return QUANTITY_POWER
	case d.EnergyImport.Address:
		value := m.family.decodeEnergy(m, frame.Data)
		if m.family.invertsEnergy() {
			m.ExportedEnergy = value
			m.UpdateEnergies()
			return QUANTITY_ENERGY_EXPORT
		}
		m.ImportedEnergy = value
		m.UpdateEnergies()
		return QUANTITY_ENERGY_IMPORT
	case d.EnergyExport.Address:
		value := m.family.decodeEnergy(m, frame.Data)
		if m.family.invertsEnergy() {
			m.ImportedEnergy = value
			m.UpdateEnergies()
			return QUANTITY_ENERGY_IMPORT
		}
		m.ExportedEnergy = value
		m.UpdateEnergies()
		return QUANTITY_ENERGY_EXPORT
	}
	return QUANTITY_NONE
}

func (m *Meter) currentsUpdated() {
	if m.Role == ROLE_MAINS {
		m.Timeout = COMM_TIMEOUT
		if m.hooks.MainsCurrents != nil {
			m.hooks.MainsCurrents(m)
		}
		return
	}
	m.Timeout = COMM_EVTIMEOUT
	if m.hooks.EVCurrents != nil {
		m.hooks.EVCurrents(m)
	}
}

// storeCurrents converts milliamps to deci-amps and refreshes the measured current.
func (m *Meter) storeCurrents(mA [3]int32) {
	for x := range mA {
		m.PhaseCurrent[x] = mA[x] / 100
	}
	m.CalcMeasuredCurrent()
}

// SetCurrents feeds phase currents in dA to meters that are not polled.
func (m *Meter) SetCurrents(dA [3]int32) error {
	if m.Type != METER_API {
		return fmt.Errorf("meter type %s does not accept pushed currents", m.Type)
	}
	m.PhaseCurrent = dA
	m.CalcMeasuredCurrent()
	m.currentsUpdated()
	return nil
}

func (m *Meter) CalcMeasuredCurrent() {
	m.MeasuredCurrent = slices.Max(m.PhaseCurrent[:])
}

func (m *Meter) UpdateEnergies() {
	m.NetEnergy = m.ImportedEnergy - m.ExportedEnergy
	if m.Reset == RESET_PENDING_INITIAL {
		m.SessionStartEnergy = m.NetEnergy
		m.Reset = RESET_NONE
	}
	m.ChargedEnergy = m.NetEnergy - m.SessionStartEnergy
	if m.hooks.Energy != nil {
		m.hooks.Energy(m)
	}
}

// ArmSessionReset is called when the EV disconnects.
func (m *Meter) ArmSessionReset() {
	if m.Reset == RESET_NONE {
		m.Reset = RESET_PENDING_SESSION
	}
}

// StartSession is called when charging starts. It re-captures the snapshot
// if a reset is pending and reports whether it did.
func (m *Meter) StartSession() bool {
	if m.Reset == RESET_NONE {
		return false
	}
	m.SessionStartEnergy = m.NetEnergy
	m.ChargedEnergy = 0
	m.Reset = RESET_NONE
	return true
}

// Tick advances the communication watchdog by one second. It returns true
// on the tick the meter stops communicating.
func (m *Meter) Tick() bool {
	if m.Timeout == 0 {
		return false
	}
	m.Timeout--
	if m.Timeout > 0 {
		return false
	}
	if m.Sensorbox != nil {
		m.Sensorbox.ResetSync()
	}
	return true
}

func (m *Meter) Communicating() bool {
	return m.Timeout > 0
}

// CommunicationError is called by the transport owner when a request fails.
func (m *Meter) CommunicationError() {
	if m.Sensorbox != nil {
		m.Sensorbox.ResetSync()
	}
}

func (m *Meter) writeRegister(address uint8, register uint16, value uint16) {
	if m.writer != nil {
		m.writer.WriteRegister(address, register, value)
	}
}

type MeterState struct {
	Type               string           `json:"type"`
	Role               string           `json:"role"`
	Address            uint8            `json:"address"`
	Communicating      bool             `json:"communicating"`
	PhaseCurrent       [3]int32         `json:"phase_current_da"`
	PhasePower         [3]int32         `json:"phase_power_w"`
	MeasuredCurrent    int32            `json:"measured_current_da"`
	MeasuredPower      int32            `json:"measured_power_w"`
	ImportedEnergy     int32            `json:"imported_energy_wh"`
	ExportedEnergy     int32            `json:"exported_energy_wh"`
	NetEnergy          int32            `json:"net_energy_wh"`
	SessionStartEnergy int32            `json:"session_start_energy_wh"`
	ChargedEnergy      int32            `json:"charged_energy_wh"`
	Reset              string           `json:"reset"`
	Sensorbox          *SensorboxStatus `json:"sensorbox,omitempty"`
}

// State returns a copy safe to hand to other goroutines.
func (m *Meter) State() MeterState {
	s := MeterState{
		Type:               m.descriptor.Name,
		Role:               m.Role.String(),
		Address:            m.Address,
		Communicating:      m.Communicating(),
		PhaseCurrent:       m.PhaseCurrent,
		PhasePower:         m.PhasePower,
		MeasuredCurrent:    m.MeasuredCurrent,
		MeasuredPower:      m.MeasuredPower,
		ImportedEnergy:     m.ImportedEnergy,
		ExportedEnergy:     m.ExportedEnergy,
		NetEnergy:          m.NetEnergy,
		SessionStartEnergy: m.SessionStartEnergy,
		ChargedEnergy:      m.ChargedEnergy,
		Reset:              m.Reset.String(),
	}
	if m.Sensorbox != nil {
		status := m.Sensorbox.Status
		s.Sensorbox = &status
	}
	return s
}
