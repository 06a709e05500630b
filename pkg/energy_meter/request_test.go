package energy_meter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPlans(t *testing.T) {

	assert := assert.New(t)

	plan := func(mt MeterType) *Meter {
		m, err := NewMeter(MeterConfig{Type: mt, Address: 10}, Hooks{}, nil)
		require.NoError(t, err)
		return m
	}

	r, ok := plan(METER_EASTRON_3P).CurrentRequest()
	assert.True(ok)
	assert.Equal(ReadRequest{Address: 10, Function: 4, Register: 0x6, Count: 12, Quantity: QUANTITY_CURRENT}, r)

	abb := plan(METER_ABB)
	r, _ = abb.CurrentRequest()
	assert.Equal(uint16(16), r.Count)
	r, _ = abb.EnergyRequest(false)
	assert.Equal(ReadRequest{Address: 10, Function: 3, Register: 0x5000, Count: 4, Quantity: QUANTITY_ENERGY_IMPORT}, r)
	r, _ = abb.EnergyRequest(true)
	assert.Equal(uint16(0x5004), r.Register)

	se := plan(METER_SOLAREDGE)
	r, _ = se.CurrentRequest()
	assert.Equal(uint16(4), r.Count)
	r, _ = se.PowerRequest()
	assert.Equal(uint16(2), r.Count)
	r, _ = se.EnergyRequest(false)
	assert.Equal(uint16(2), r.Count)

	r, _ = plan(METER_SINOTIMER).PowerRequest()
	assert.Equal(uint16(3), r.Count)

	r, _ = plan(METER_FINDER_7E).PowerRequest()
	assert.Equal(ReadRequest{Address: 10, Function: 4, Register: 0x1026, Count: 2, Quantity: QUANTITY_POWER}, r)

	inv := plan(METER_EASTRON_3P_INV)
	r, _ = inv.EnergyRequest(false)
	assert.Equal(uint16(0x4A), r.Register)
	r, _ = inv.EnergyRequest(true)
	assert.Equal(uint16(0x48), r.Register)

	sb := plan(METER_SENSORBOX)
	r, _ = sb.CurrentRequest()
	assert.Equal(ReadRequest{Address: 10, Function: 4, Register: 0, Count: 32, Quantity: QUANTITY_CURRENT}, r)
	_, ok = sb.PowerRequest()
	assert.False(ok)
	_, ok = sb.EnergyRequest(false)
	assert.False(ok)
}

func TestExportEnergyPlannedOnlyForExportingMeters(t *testing.T) {

	assert := assert.New(t)

	exporting := map[MeterType]bool{
		METER_FINDER_7E: true, METER_EASTRON_3P: true, METER_EASTRON_1P: true, METER_WAGO: true,
		METER_SOLAREDGE: true, METER_SINOTIMER: true, METER_ABB: true, METER_EASTRON_3P_INV: true,
	}
	for mt := MeterType(0); mt < METER_CUSTOM; mt++ {
		m, err := NewMeter(MeterConfig{Type: mt, Address: 1}, Hooks{}, nil)
		require.NoError(t, err)
		_, ok := m.EnergyRequest(true)
		assert.Equal(exporting[mt], ok, "meter type %s", mt)
	}
}

func TestMetersWithoutWireRegistersPlanNothing(t *testing.T) {
	for _, mt := range []MeterType{METER_DISABLED, METER_API, METER_HOMEWIZARD_P1, METER_UNUSED_3, METER_UNUSED_4} {
		m, err := NewMeter(MeterConfig{Type: mt}, Hooks{}, nil)
		require.NoError(t, err)
		assert.Empty(t, m.Requests(true), "meter type %s", mt)
	}
}

func TestPollCycleRequests(t *testing.T) {
	m, err := NewMeter(MeterConfig{Type: METER_EASTRON_3P, Address: 10}, Hooks{}, nil)
	require.NoError(t, err)

	assert.Len(t, m.Requests(false), 2)
	assert.Len(t, m.Requests(true), 4)
}
