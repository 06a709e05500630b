package energy_meter

// ReadRequest is a register read planned by a meter. Count is in registers.
type ReadRequest struct {
	Address  uint8
	Function uint8
	Register uint16
	Count    uint16
	Quantity Quantity
}

func unusedRegister(address uint16) bool {
	return address == 0 || address == 0xFFFF
}

func (m *Meter) CurrentRequest() (ReadRequest, bool) {
	if !m.Type.HasWireRegisters() {
		return ReadRequest{}, false
	}
	return ReadRequest{
		Address:  m.Address,
		Function: m.descriptor.Function,
		Register: m.descriptor.Current.Address,
		Count:    m.family.currentRegisters(m),
		Quantity: QUANTITY_CURRENT,
	}, true
}

func (m *Meter) PowerRequest() (ReadRequest, bool) {
	if !m.Type.HasWireRegisters() || unusedRegister(m.descriptor.Power.Address) {
		return ReadRequest{}, false
	}
	count := m.family.powerRegisters(m)
	if count == 0 {
		return ReadRequest{}, false
	}
	return ReadRequest{
		Address:  m.Address,
		Function: m.descriptor.Function,
		Register: m.descriptor.Power.Address,
		Count:    count,
		Quantity: QUANTITY_POWER,
	}, true
}

// EnergyRequest plans the import (export false) or export energy read.
func (m *Meter) EnergyRequest(export bool) (ReadRequest, bool) {
	if !m.Type.HasWireRegisters() {
		return ReadRequest{}, false
	}
	register, count, ok := m.family.energyRequest(m, export)
	if !ok || unusedRegister(register) {
		return ReadRequest{}, false
	}
	quantity := QUANTITY_ENERGY_IMPORT
	if export {
		quantity = QUANTITY_ENERGY_EXPORT
	}
	return ReadRequest{
		Address:  m.Address,
		Function: m.descriptor.Function,
		Register: register,
		Count:    count,
		Quantity: quantity,
	}, true
}

// Requests returns the reads of one poll cycle, energy included when withEnergy is set.
func (m *Meter) Requests(withEnergy bool) []ReadRequest {
	var requests []ReadRequest
	if r, ok := m.CurrentRequest(); ok {
		requests = append(requests, r)
	}
	if r, ok := m.PowerRequest(); ok {
		requests = append(requests, r)
	}
	if withEnergy {
		for _, export := range []bool{false, true} {
			if r, ok := m.EnergyRequest(export); ok {
				requests = append(requests, r)
			}
		}
	}
	return requests
}
