package modbus_transport

import (
	"fmt"
	"time"

	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
	"go.uber.org/zap"
)

const (
	FUNCTION_READ_HOLDING = 3
	FUNCTION_READ_INPUT   = 4
)

// Transport performs the register reads and writes planned by meters on a
// single Modbus bus. Implementations are not safe for concurrent use.
type Transport interface {
	Open() error
	Close() error
	Read(req energy_meter.ReadRequest) (energy_meter.ResponseFrame, error)
	Write(address uint8, register uint16, value uint16) error
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}

func traceLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	if logger == nil {
		return nil
	}
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug(fmt.Sprintf("modbus [%s]: %d millis", fnName, readTime.Milliseconds()))
		},
	}
}

func instruments(logger *zap.Logger, instrumentation *ModbusInstrument) []ModbusInstrument {
	var inst []ModbusInstrument
	if logInst := traceLoggerInstrumentation(logger); logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}
	return inst
}

func responseFrame(req energy_meter.ReadRequest, data []byte) (energy_meter.ResponseFrame, error) {
	if len(data) != int(req.Count)*2 {
		return energy_meter.ResponseFrame{}, fmt.Errorf("modbus: expected %d bytes from 0x%02X@0x%04X, got %d",
			req.Count*2, req.Address, req.Register, len(data))
	}
	return energy_meter.ResponseFrame{
		Kind:     energy_meter.FRAME_RESPONSE,
		Address:  req.Address,
		Function: req.Function,
		Register: req.Register,
		Data:     data,
	}, nil
}

func validateFunction(function uint8) error {
	if function != FUNCTION_READ_HOLDING && function != FUNCTION_READ_INPUT {
		return fmt.Errorf("modbus: unsupported read function %d", function)
	}
	return nil
}
