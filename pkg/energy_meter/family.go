package energy_meter

// Family is the per meter type decoding policy. The method set is closed:
// only this package provides implementations.
type Family interface {
	decodeCurrent(m *Meter, frame ResponseFrame) bool
	decodePower(m *Meter, buf []byte) int32
	decodeEnergy(m *Meter, buf []byte) int32
	invertsEnergy() bool

	currentRegisters(m *Meter) uint16
	powerRegisters(m *Meter) uint16
	energyRequest(m *Meter, export bool) (register uint16, count uint16, ok bool)
}

// one entry per meter type, checked by tests
var families = [METER_TYPE_COUNT]Family{
	METER_DISABLED:        baseFamily{},
	METER_SENSORBOX:       sensorboxFamily{},
	METER_PHOENIX_CONTACT: baseFamily{},
	METER_FINDER_7E:       baseFamily{exportsEnergy: true},
	METER_EASTRON_3P:      signedByPower{baseFamily{exportsEnergy: true}, 3, false},
	METER_EASTRON_3P_INV:  invertedFamily{signedByPower{baseFamily{exportsEnergy: true}, 3, true}},
	METER_ABB:             abbFamily{signedByPower{baseFamily{exportsEnergy: true}, 5, false}},
	METER_SOLAREDGE:       solarEdgeFamily{},
	METER_WAGO:            baseFamily{exportsEnergy: true},
	METER_API:             baseFamily{},
	METER_EASTRON_1P:      signedByPower{baseFamily{exportsEnergy: true}, 3, false},
	METER_FINDER_7M:       signedByPower{baseFamily{}, 7, false},
	METER_SINOTIMER:       sinotimerFamily{},
	METER_HOMEWIZARD_P1:   baseFamily{},
	METER_SCHNEIDER:       signedByPower{baseFamily{}, 27, false},
	METER_CHINT:           signedByPower{baseFamily{}, 4, false},
	METER_CARLO_GAVAZZI:   baseFamily{},
	METER_UNUSED_3:        baseFamily{},
	METER_UNUSED_4:        baseFamily{},
	METER_CUSTOM:          baseFamily{},
}

func familyOf(t MeterType) Family {
	f := families[t]
	if f == nil {
		panic("energy_meter: no family for meter type " + t.String())
	}
	return f
}

// baseFamily decodes three phase currents, a single power register and a
// single energy register, all in the descriptor format.
type baseFamily struct {
	exportsEnergy bool
}

func (baseFamily) decodeCurrent(m *Meter, frame ResponseFrame) bool {
	var mA [3]int32
	for x := range mA {
		mA[x] = m.Decode(frame.Data, x, m.descriptor.Current.Divisor-3)
	}
	m.storeCurrents(mA)
	return true
}

func (baseFamily) decodePower(m *Meter, buf []byte) int32 {
	return m.Decode(buf, 0, m.descriptor.Power.Divisor)
}

func (baseFamily) decodeEnergy(m *Meter, buf []byte) int32 {
	return m.Decode(buf, 0, m.descriptor.EnergyImport.Divisor-3)
}

func (baseFamily) invertsEnergy() bool {
	return false
}

func (baseFamily) currentRegisters(m *Meter) uint16 {
	return 3 * m.descriptor.DataType.Registers()
}

func (baseFamily) powerRegisters(m *Meter) uint16 {
	return m.descriptor.DataType.Registers()
}

func (f baseFamily) energyRequest(m *Meter, export bool) (uint16, uint16, bool) {
	if export {
		if !f.exportsEnergy {
			return 0, 0, false
		}
		return m.descriptor.EnergyExport.Address, m.descriptor.DataType.Registers(), true
	}
	return m.descriptor.EnergyImport.Address, m.descriptor.DataType.Registers(), true
}

// signedByPower meters report current magnitudes only. The phase powers,
// found offset values after the currents, give the direction.
type signedByPower struct {
	baseFamily
	offset int
	invert bool
}

func (f signedByPower) decodeCurrent(m *Meter, frame ResponseFrame) bool {
	var mA [3]int32
	var total int32
	// all three phases, also on single phase meters, or exported current keeps a wrong sign
	for x := range mA {
		mA[x] = m.Decode(frame.Data, x, m.descriptor.Current.Divisor-3)
		power := m.Decode(frame.Data, x+f.offset, m.descriptor.Power.Divisor)
		if f.invert {
			power = -power
		}
		m.PhasePower[x] = power
		total += power
		if power < 0 {
			mA[x] = -mA[x]
		}
	}
	m.MeasuredPower = total
	m.storeCurrents(mA)
	return true
}

func (f signedByPower) currentRegisters(m *Meter) uint16 {
	return uint16(f.offset+3) * m.descriptor.DataType.Registers()
}

// invertedFamily is an Eastron wired the other way around.
type invertedFamily struct {
	signedByPower
}

func (invertedFamily) decodePower(m *Meter, buf []byte) int32 {
	return -m.Decode(buf, 0, m.descriptor.Power.Divisor)
}

func (invertedFamily) invertsEnergy() bool {
	return true
}

func (invertedFamily) energyRequest(m *Meter, export bool) (uint16, uint16, bool) {
	if export {
		return m.descriptor.EnergyImport.Address, m.descriptor.DataType.Registers(), true
	}
	return m.descriptor.EnergyExport.Address, m.descriptor.DataType.Registers(), true
}

// abbFamily exposes energy as a 64 bit counter. Only the low half is decoded,
// valid while the counter stays below about 2e7.
type abbFamily struct {
	signedByPower
}

func (abbFamily) decodeEnergy(m *Meter, buf []byte) int32 {
	return Decode(buf, 1, m.descriptor.ByteOrder, DATATYPE_INT32, m.descriptor.EnergyImport.Divisor-3)
}

func (abbFamily) energyRequest(m *Meter, export bool) (uint16, uint16, bool) {
	return wideEnergyRequest(m, export)
}

// solarEdgeFamily carries its scale factor in a register next to the values.
type solarEdgeFamily struct {
	baseFamily
}

func (solarEdgeFamily) decodeCurrent(m *Meter, frame ResponseFrame) bool {
	sf := dynamicExponent(-m.Decode(frame.Data, 3, 0))
	var mA [3]int32
	for x := range mA {
		mA[x] = m.Decode(frame.Data, x, sf-3)
	}
	m.storeCurrents(mA)
	return true
}

func (solarEdgeFamily) decodePower(m *Meter, buf []byte) int32 {
	sf := dynamicExponent(-m.Decode(buf, 1, 0))
	return m.Decode(buf, 0, sf)
}

func (solarEdgeFamily) decodeEnergy(m *Meter, buf []byte) int32 {
	return Decode(buf, 0, m.descriptor.ByteOrder, DATATYPE_INT32, m.descriptor.EnergyImport.Divisor-3)
}

func (solarEdgeFamily) currentRegisters(m *Meter) uint16 {
	return 4 * m.descriptor.DataType.Registers()
}

func (solarEdgeFamily) powerRegisters(m *Meter) uint16 {
	return 2 * m.descriptor.DataType.Registers()
}

func (solarEdgeFamily) energyRequest(m *Meter, export bool) (uint16, uint16, bool) {
	return wideEnergyRequest(m, export)
}

// sinotimerFamily has no total power register, the three phases are summed.
type sinotimerFamily struct {
	baseFamily
}

func (sinotimerFamily) decodePower(m *Meter, buf []byte) int32 {
	var total int32
	for x := range m.PhasePower {
		m.PhasePower[x] = m.Decode(buf, x, m.descriptor.Power.Divisor)
		total += m.PhasePower[x]
	}
	return total
}

func (sinotimerFamily) decodeEnergy(m *Meter, buf []byte) int32 {
	return Decode(buf, 0, m.descriptor.ByteOrder, DATATYPE_INT32, m.descriptor.EnergyImport.Divisor-3)
}

func (sinotimerFamily) powerRegisters(m *Meter) uint16 {
	return 3 * m.descriptor.DataType.Registers()
}

func (sinotimerFamily) energyRequest(m *Meter, export bool) (uint16, uint16, bool) {
	return wideEnergyRequest(m, export)
}

// sensorboxFamily multiplexes P1 smart meter and CT readings in one frame,
// followed by the Sensorbox status block.
type sensorboxFamily struct {
	baseFamily
}

const (
	SENSORBOX_FRAME_REGISTERS = 32
	sensorboxP1Offset         = 4
	sensorboxCTOffset         = 7
)

func (sensorboxFamily) decodeCurrent(m *Meter, frame ResponseFrame) bool {
	buf := frame.Data
	if buf[3] == 0 {
		return false
	}
	offset := sensorboxCTOffset
	if buf[3]&0x80 != 0 {
		offset = sensorboxP1Offset
	}
	var mA [3]int32
	for x := range mA {
		mA[x] = m.Decode(buf, offset+x, m.descriptor.Current.Divisor-3)
		if offset == sensorboxCTOffset {
			// above 100A mains, 200A:50mA CTs are fitted
			if m.mainsCapacity > 100 {
				mA[x] *= 2
			}
			if mA[x] > -100 && mA[x] < 100 {
				mA[x] = 0
			}
		}
	}
	m.storeCurrents(mA)
	if m.Sensorbox != nil {
		m.Sensorbox.process(m, frame, offset == sensorboxCTOffset)
	}
	return true
}

func (sensorboxFamily) currentRegisters(m *Meter) uint16 {
	return SENSORBOX_FRAME_REGISTERS
}

func (sensorboxFamily) powerRegisters(m *Meter) uint16 {
	return 0
}

func (sensorboxFamily) energyRequest(m *Meter, export bool) (uint16, uint16, bool) {
	return 0, 0, false
}

// wideEnergyRequest reads two values for meters whose energy register is
// wider than their other quantities.
func wideEnergyRequest(m *Meter, export bool) (uint16, uint16, bool) {
	register := m.descriptor.EnergyImport.Address
	if export {
		register = m.descriptor.EnergyExport.Address
	}
	return register, 2 * m.descriptor.DataType.Registers(), true
}

func dynamicExponent(sf int32) int8 {
	if sf > maxExponent-3 {
		return maxExponent - 3
	}
	if sf < -maxExponent+3 {
		return -maxExponent + 3
	}
	return int8(sf)
}
