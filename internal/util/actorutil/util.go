package actorutil

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/mqtt"
	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

// API mains meter feeds are rejected outside this range, in dA.

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel, zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToRequest maps an MQTT command to the request understood
// by the metering actor. Unknown commands map to nil without error.
func ParsedMQTTCommandToRequest(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	switch cmd.Command {
	case mqtt.COMMAND_SWITCH:
		switch cmd.DeviceId {
		case domain.SWITCH_ID_EV_CONNECTED:
			if cmd.Payload == mqtt.MQTT_PAYLOAD_OFF {
				return domain.EVDisconnectedRequest{}, nil
			}
		case domain.SWITCH_ID_CHARGING:
			if cmd.Payload == mqtt.MQTT_PAYLOAD_ON {
				return domain.SessionStartRequest{}, nil
			}
		}
	case mqtt.COMMAND_NUMBER:
		if cmd.DeviceId == domain.INPUT_NUMBER_ID_SENSORBOX_WIFI_MODE {
			value, err := strconv.ParseFloat(cmd.Payload, 64)
			if err != nil {
				return nil, err
			}
			if value < 0 || value > float64(energy_meter.WIFI_PORTAL) {
				return nil, fmt.Errorf("invalid sensorbox wifi mode %v", value)
			}
			return domain.SetSensorboxWiFiModeRequest{
				Mode: energy_meter.WiFiMode(value),
			}, nil
		}
	case mqtt.COMMAND_METER:
		switch cmd.DeviceId {
		case mqtt.METER_FEED_MAINS:
			return parseMainsMeterFeed(cmd.Payload)
		case mqtt.METER_FEED_EV:
			return parseEVMeterFeed(cmd.Payload)
		}
	}
	return nil, nil
}

// "L1:L2:L3" in dA
func parseMainsMeterFeed(payload string) (domain.ActorRequest, error) {
	values, err := parseColonSeparated(payload, 3)
	if err != nil {
		return nil, err
	}
	req := domain.SetApiMeterRequest{
		Role:     energy_meter.ROLE_MAINS,
		Currents: [3]int32{values[0], values[1], values[2]},
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// "L1:L2:L3:W:Wh", currents in dA. W and Wh are ignored when negative.
func parseEVMeterFeed(payload string) (domain.ActorRequest, error) {
	values, err := parseColonSeparated(payload, 5)
	if err != nil {
		return nil, err
	}
	req := domain.SetApiMeterRequest{
		Role:     energy_meter.ROLE_EV,
		Currents: [3]int32{values[0], values[1], values[2]},
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if values[3] > -1 {
		power := values[3]
		req.Power = &power
	}
	if values[4] > -1 {
		energy := values[4]
		req.Energy = &energy
	}
	return req, nil
}

func parseColonSeparated(payload string, n int) ([]int32, error) {
	parts := strings.Split(strings.TrimSpace(payload), ":")
	if len(parts) != n {
		return nil, errors.New("invalid meter payload")
	}
	values := make([]int32, n)
	for i, part := range parts {
		v, err := strconv.ParseInt(part, 10, 32)
		if err != nil {
			return nil, err
		}
		values[i] = int32(v)
	}
	return values, nil
}
