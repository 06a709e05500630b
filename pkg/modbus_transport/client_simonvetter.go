package modbus_transport

import (
	"time"

	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// ModbusClientTransport talks to the bus through simonvetter/modbus, over
// TCP ("tcp://host:port") or a serial line ("rtu:///dev/ttyUSB0").
type ModbusClientTransport struct {
	client     *modbus.ModbusClient
	instrument []ModbusInstrument
	unitId     uint8
}

var _ Transport = (*ModbusClientTransport)(nil)

func CreateModbusClientTransport(url string, speed uint, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) (*ModbusClientTransport, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:      url,
		Speed:    speed,
		DataBits: 8,
		Parity:   modbus.PARITY_NONE,
		StopBits: 1,
		Timeout:  timeout,
	})
	if err != nil {
		return nil, err
	}
	return &ModbusClientTransport{
		client:     client,
		instrument: instruments(logger.With(zap.String("target", url)), instrumentation),
	}, nil
}

func (t *ModbusClientTransport) Open() error {
	return t.client.Open()
}

func (t *ModbusClientTransport) Close() error {
	return t.client.Close()
}

func (t *ModbusClientTransport) setUnitId(address uint8) error {
	if t.unitId == address {
		return nil
	}
	if err := t.client.SetUnitId(address); err != nil {
		return err
	}
	t.unitId = address
	return nil
}

func (t *ModbusClientTransport) Read(req energy_meter.ReadRequest) (energy_meter.ResponseFrame, error) {
	if err := validateFunction(req.Function); err != nil {
		return energy_meter.ResponseFrame{}, err
	}
	if err := t.setUnitId(req.Address); err != nil {
		return energy_meter.ResponseFrame{}, err
	}
	regType := modbus.HOLDING_REGISTER
	if req.Function == FUNCTION_READ_INPUT {
		regType = modbus.INPUT_REGISTER
	}
	data, err := t.readRawBytes(req.Register, req.Count*2, regType)
	if err != nil {
		return energy_meter.ResponseFrame{}, err
	}
	return responseFrame(req, data)
}

func (t *ModbusClientTransport) Write(address uint8, register uint16, value uint16) error {
	if err := t.setUnitId(address); err != nil {
		return err
	}
	defer RecordTimer("WriteRegister", t.instrument)()
	return t.client.WriteRegister(register, value)
}

// readRawBytes reads size bytes starting at register addr, unswapped.
func (t *ModbusClientTransport) readRawBytes(addr uint16, size uint16, regType modbus.RegType) ([]byte, error) {
	defer RecordTimer("ReadRawBytes", t.instrument)()
	return t.client.ReadRawBytes(addr, size, regType)
}
