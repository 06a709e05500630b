package energy_meter

import (
	"fmt"
)

type ByteOrder uint8

const (
	LBF_LWF ByteOrder = iota // low byte first, low word first
	LBF_HWF                  // low byte first, high word first
	HBF_LWF                  // high byte first, low word first
	HBF_HWF                  // high byte first, high word first (big endian)
)

func (o ByteOrder) String() string {
	switch o {
	case LBF_LWF:
		return "LBF_LWF"
	case LBF_HWF:
		return "LBF_HWF"
	case HBF_LWF:
		return "HBF_LWF"
	case HBF_HWF:
		return "HBF_HWF"
	}
	return fmt.Sprintf("ByteOrder(%d)", o)
}

type DataType uint8

const (
	DATATYPE_INT32 DataType = iota
	DATATYPE_FLOAT32
	DATATYPE_INT16
)

// Width returns the size of one value on the wire, in bytes.
func (dt DataType) Width() int {
	if dt == DATATYPE_INT16 {
		return 2
	}
	return 4
}

// Registers returns the number of 16 bit registers one value spans.
func (dt DataType) Registers() uint16 {
	return uint16(dt.Width() / 2)
}

func (dt DataType) String() string {
	switch dt {
	case DATATYPE_INT32:
		return "INT32"
	case DATATYPE_FLOAT32:
		return "FLOAT32"
	case DATATYPE_INT16:
		return "INT16"
	}
	return fmt.Sprintf("DataType(%d)", dt)
}

// MeterType values are persisted in user configuration. Append only.
type MeterType uint8

const (
	METER_DISABLED MeterType = iota
	METER_SENSORBOX
	METER_PHOENIX_CONTACT
	METER_FINDER_7E
	METER_EASTRON_3P
	METER_EASTRON_3P_INV
	METER_ABB
	METER_SOLAREDGE
	METER_WAGO
	METER_API
	METER_EASTRON_1P
	METER_FINDER_7M
	METER_SINOTIMER
	METER_HOMEWIZARD_P1
	METER_SCHNEIDER
	METER_CHINT
	METER_CARLO_GAVAZZI
	METER_UNUSED_3
	METER_UNUSED_4
	METER_CUSTOM
	METER_TYPE_COUNT
)

func (t MeterType) Valid() bool {
	return t < METER_TYPE_COUNT
}

func (t MeterType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("MeterType(%d)", t)
	}
	return descriptors[t].Name
}

// Register is a register address plus its decimal scaling exponent.
// Address 0 marks an unused quantity on most meters.
type Register struct {
	Address uint16
	Divisor int8
}

type Descriptor struct {
	Name         string
	ByteOrder    ByteOrder
	Function     uint8
	DataType     DataType
	Voltage      Register
	Current      Register
	Power        Register
	EnergyImport Register
	EnergyExport Register
}

var descriptors = [METER_TYPE_COUNT]Descriptor{
	METER_DISABLED:        {"Disabled", LBF_LWF, 0, DATATYPE_INT32, Register{0, 0}, Register{0, 0}, Register{0, 0}, Register{0, 0}, Register{0, 0}},
	METER_SENSORBOX:       {"Sensorbox", HBF_HWF, 4, DATATYPE_FLOAT32, Register{0xFFFF, 0}, Register{0, 0}, Register{0xFFFF, 0}, Register{0xFFFF, 0}, Register{0, 0}},
	METER_PHOENIX_CONTACT: {"Phoenix C", HBF_LWF, 4, DATATYPE_INT32, Register{0x0, 1}, Register{0xC, 3}, Register{0x28, 1}, Register{0x3E, 1}, Register{0, 0}},
	METER_FINDER_7E:       {"Finder 7E", HBF_HWF, 4, DATATYPE_FLOAT32, Register{0x1000, 0}, Register{0x100E, 0}, Register{0x1026, 0}, Register{0x1106, 3}, Register{0x110E, 3}},
	METER_EASTRON_3P:      {"Eastron3P", HBF_HWF, 4, DATATYPE_FLOAT32, Register{0x0, 0}, Register{0x6, 0}, Register{0x34, 0}, Register{0x48, 0}, Register{0x4A, 0}},
	METER_EASTRON_3P_INV:  {"InvEastrn", HBF_HWF, 4, DATATYPE_FLOAT32, Register{0x0, 0}, Register{0x6, 0}, Register{0x34, 0}, Register{0x48, 0}, Register{0x4A, 0}},
	METER_ABB:             {"ABB", HBF_HWF, 3, DATATYPE_INT32, Register{0x5B00, 1}, Register{0x5B0C, 2}, Register{0x5B14, 2}, Register{0x5000, 2}, Register{0x5004, 2}},
	METER_SOLAREDGE:       {"SolarEdge", HBF_HWF, 3, DATATYPE_INT16, Register{40196, 0}, Register{40191, 0}, Register{40206, 0}, Register{40234, 3}, Register{40226, 3}},
	METER_WAGO:            {"WAGO", HBF_HWF, 3, DATATYPE_FLOAT32, Register{0x5002, 0}, Register{0x500C, 0}, Register{0x5012, -3}, Register{0x600C, 0}, Register{0x6018, 0}},
	METER_API:             {"API", HBF_HWF, 3, DATATYPE_FLOAT32, Register{0x5002, 0}, Register{0x500C, 0}, Register{0x5012, 3}, Register{0x6000, 0}, Register{0x6018, 0}},
	METER_EASTRON_1P:      {"Eastron1P", HBF_HWF, 4, DATATYPE_FLOAT32, Register{0x0, 0}, Register{0x6, 0}, Register{0x0C, 0}, Register{0x48, 0}, Register{0x4A, 0}},
	METER_FINDER_7M:       {"Finder 7M", HBF_HWF, 4, DATATYPE_FLOAT32, Register{2500, 0}, Register{2516, 0}, Register{2536, 0}, Register{2638, 3}, Register{0, 0}},
	METER_SINOTIMER:       {"Sinotimer", HBF_HWF, 4, DATATYPE_INT16, Register{0x0, 1}, Register{0x3, 2}, Register{0x8, 0}, Register{0x27, 2}, Register{0x31, 2}},
	METER_HOMEWIZARD_P1:   {"HmWzrd P1", HBF_HWF, 0, DATATYPE_INT16, Register{0, 0}, Register{0, 0}, Register{0, 0}, Register{0, 0}, Register{0, 0}},
	METER_SCHNEIDER:       {"Schneider", HBF_HWF, 3, DATATYPE_FLOAT32, Register{0x0BD3, 0}, Register{0x0BB7, 0}, Register{0x0BF3, -3}, Register{0xB02B, 0}, Register{0xB02D, 0}},
	METER_CHINT:           {"Chint", HBF_HWF, 3, DATATYPE_FLOAT32, Register{0x2000, 1}, Register{0x200C, 3}, Register{0x2012, 1}, Register{0x101E, 0}, Register{0x1028, 0}},
	METER_CARLO_GAVAZZI:   {"C.Gavazzi", HBF_LWF, 4, DATATYPE_INT32, Register{0x0, 1}, Register{0xC, 3}, Register{0x28, 1}, Register{0x34, 1}, Register{0x4E, 1}},
	METER_UNUSED_3:        {"Unused 3", LBF_LWF, 4, DATATYPE_INT32, Register{0, 0}, Register{0, 0}, Register{0, 0}, Register{0, 0}, Register{0, 0}},
	METER_UNUSED_4:        {"Unused 4", LBF_LWF, 4, DATATYPE_INT32, Register{0, 0}, Register{0, 0}, Register{0, 0}, Register{0, 0}, Register{0, 0}},
	METER_CUSTOM:          {"Custom", LBF_LWF, 4, DATATYPE_INT32, Register{0, 0}, Register{0, 0}, Register{0, 0}, Register{0, 0}, Register{0, 0}},
}

// LookupDescriptor returns a copy of the table row for the given meter type.
func LookupDescriptor(t MeterType) (Descriptor, error) {
	if !t.Valid() {
		return Descriptor{}, fmt.Errorf("unknown meter type %d", t)
	}
	return descriptors[t], nil
}

// CustomDescriptor builds the row used by METER_CUSTOM from user settings.
// Import and export energy share one divisor.
func CustomDescriptor(order ByteOrder, function uint8, dataType DataType,
	voltage, current, power, energyImport, energyExport uint16,
	voltageDivisor, currentDivisor, powerDivisor, energyDivisor int8) Descriptor {
	d := descriptors[METER_CUSTOM]
	d.ByteOrder = order
	d.Function = function
	d.DataType = dataType
	d.Voltage = Register{voltage, voltageDivisor}
	d.Current = Register{current, currentDivisor}
	d.Power = Register{power, powerDivisor}
	d.EnergyImport = Register{energyImport, energyDivisor}
	d.EnergyExport = Register{energyExport, energyDivisor}
	return d
}

// Validate checks a descriptor can be served by the dispatcher.
func (d Descriptor) Validate() error {
	if d.ByteOrder > HBF_HWF {
		return fmt.Errorf("invalid byte order %d", d.ByteOrder)
	}
	if d.DataType > DATATYPE_INT16 {
		return fmt.Errorf("invalid data type %d", d.DataType)
	}
	if d.Function != 3 && d.Function != 4 {
		return fmt.Errorf("invalid modbus function %d, must be 3 or 4", d.Function)
	}
	for _, r := range []Register{d.Voltage, d.Current, d.Power, d.EnergyImport, d.EnergyExport} {
		// current and energy are decoded to milli units, three decades below the divisor
		if r.Divisor < -maxExponent+3 || r.Divisor > maxExponent {
			return fmt.Errorf("divisor %d out of range", r.Divisor)
		}
	}
	seen := make(map[uint16]bool)
	for _, addr := range []uint16{d.Current.Address, d.Power.Address, d.EnergyImport.Address, d.EnergyExport.Address} {
		if addr == 0 || addr == 0xFFFF {
			continue
		}
		if seen[addr] {
			return fmt.Errorf("register 0x%04X used by more than one quantity", addr)
		}
		seen[addr] = true
	}
	return nil
}

// HasWireRegisters is false for meter types fed by something other than Modbus polling.
func (t MeterType) HasWireRegisters() bool {
	switch t {
	case METER_DISABLED, METER_API, METER_HOMEWIZARD_P1, METER_UNUSED_3, METER_UNUSED_4:
		return false
	}
	return true
}
