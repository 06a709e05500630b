package modbus_transport

import (
	"time"

	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
	mb "github.com/goburrow/modbus"
	"go.uber.org/zap"
)

// GoburrowTransport drives an RS485 bus with goburrow/modbus. The slave id of
// the shared handler is switched per request.
type GoburrowTransport struct {
	handler    *mb.RTUClientHandler
	client     mb.Client
	instrument []ModbusInstrument
}

var _ Transport = (*GoburrowTransport)(nil)

func CreateGoburrowTransport(serialPort string, baudRate int, timeout time.Duration,
	logger *zap.Logger, instrumentation *ModbusInstrument) *GoburrowTransport {
	h := mb.NewRTUClientHandler(serialPort)
	if baudRate > 0 {
		h.BaudRate = baudRate
	}
	h.DataBits = 8
	h.Parity = "N"
	h.StopBits = 1
	h.Timeout = timeout
	return &GoburrowTransport{
		handler:    h,
		client:     mb.NewClient(h),
		instrument: instruments(logger.With(zap.String("target", serialPort)), instrumentation),
	}
}

func (t *GoburrowTransport) Open() error {
	return t.handler.Connect()
}

func (t *GoburrowTransport) Close() error {
	return t.handler.Close()
}

func (t *GoburrowTransport) Read(req energy_meter.ReadRequest) (energy_meter.ResponseFrame, error) {
	if err := validateFunction(req.Function); err != nil {
		return energy_meter.ResponseFrame{}, err
	}
	t.handler.SlaveId = req.Address
	var data []byte
	var err error
	if req.Function == FUNCTION_READ_INPUT {
		data, err = t.readInputRegisters(req.Register, req.Count)
	} else {
		data, err = t.readHoldingRegisters(req.Register, req.Count)
	}
	if err != nil {
		return energy_meter.ResponseFrame{}, err
	}
	return responseFrame(req, data)
}

func (t *GoburrowTransport) Write(address uint8, register uint16, value uint16) error {
	t.handler.SlaveId = address
	defer RecordTimer("WriteSingleRegister", t.instrument)()
	_, err := t.client.WriteSingleRegister(register, value)
	return err
}

func (t *GoburrowTransport) readInputRegisters(addr uint16, quantity uint16) ([]byte, error) {
	defer RecordTimer("ReadInputRegisters", t.instrument)()
	return t.client.ReadInputRegisters(addr, quantity)
}

func (t *GoburrowTransport) readHoldingRegisters(addr uint16, quantity uint16) ([]byte, error) {
	defer RecordTimer("ReadHoldingRegisters", t.instrument)()
	return t.client.ReadHoldingRegisters(addr, quantity)
}
