package modbus_transport

import (
	"fmt"
	"sync"

	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
)

type RegisterWrite struct {
	Address  uint8
	Register uint16
	Value    uint16
}

// TestTransport is an in-memory bus. Unset registers read as zero.
type TestTransport struct {
	mu        sync.Mutex
	registers map[uint8]map[uint16]uint16
	failing   map[uint8]error
	writes    []RegisterWrite
	open      bool
}

var _ Transport = (*TestTransport)(nil)

func CreateTestTransport() *TestTransport {
	return &TestTransport{
		registers: make(map[uint8]map[uint16]uint16),
		failing:   make(map[uint8]error),
	}
}

func (t *TestTransport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = true
	return nil
}

func (t *TestTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.open = false
	return nil
}

// SetRaw stores wire bytes starting at register. data must have an even length.
func (t *TestTransport) SetRaw(address uint8, register uint16, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	regs, ok := t.registers[address]
	if !ok {
		regs = make(map[uint16]uint16)
		t.registers[address] = regs
	}
	for i := 0; i+1 < len(data); i += 2 {
		regs[register+uint16(i/2)] = uint16(data[i])<<8 | uint16(data[i+1])
	}
}

// SetValues encodes consecutive values in the given wire format starting at register.
func (t *TestTransport) SetValues(address uint8, register uint16, order energy_meter.ByteOrder,
	dataType energy_meter.DataType, exponent int8, values ...int32) {
	buf := make([]byte, len(values)*dataType.Width())
	for i, v := range values {
		energy_meter.Encode(buf, i, order, dataType, v, exponent)
	}
	t.SetRaw(address, register, buf)
}

// Fail makes every request to address return err, or succeed again when err is nil.
func (t *TestTransport) Fail(address uint8, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.failing, address)
		return
	}
	t.failing[address] = err
}

func (t *TestTransport) Writes() []RegisterWrite {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]RegisterWrite(nil), t.writes...)
}

func (t *TestTransport) Read(req energy_meter.ReadRequest) (energy_meter.ResponseFrame, error) {
	if err := validateFunction(req.Function); err != nil {
		return energy_meter.ResponseFrame{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return energy_meter.ResponseFrame{}, fmt.Errorf("modbus: transport not open")
	}
	if err, ok := t.failing[req.Address]; ok {
		return energy_meter.ResponseFrame{}, err
	}
	data := make([]byte, int(req.Count)*2)
	regs := t.registers[req.Address]
	for i := uint16(0); i < req.Count; i++ {
		v := regs[req.Register+i]
		data[2*i] = byte(v >> 8)
		data[2*i+1] = byte(v)
	}
	return responseFrame(req, data)
}

func (t *TestTransport) Write(address uint8, register uint16, value uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err, ok := t.failing[address]; ok {
		return err
	}
	t.writes = append(t.writes, RegisterWrite{Address: address, Register: register, Value: value})
	regs, ok := t.registers[address]
	if !ok {
		regs = make(map[uint16]uint16)
		t.registers[address] = regs
	}
	regs[register] = value
	return nil
}
