package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/berfenger/evsemeter2mqtt/internal/adapter/actor"
	"github.com/berfenger/evsemeter2mqtt/internal/config"
	"github.com/berfenger/evsemeter2mqtt/internal/core/actor"
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/metrics"
	"github.com/berfenger/evsemeter2mqtt/internal/server"
	"github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"
	"github.com/berfenger/evsemeter2mqtt/pkg/modbus_transport"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	slog.Info("Using", "config", cfg.Redacted())

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// init Modbus actor provider
	modbusProv, err := modbusActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, modbusProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		logger.Error("cannot spawn master actor", zap.Error(err))
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func createTransport(cfg *config.Config, logger *zap.Logger) (modbus_transport.Transport, error) {
	timeout := time.Duration(cfg.Modbus.TimeoutMillis) * time.Millisecond
	switch cfg.Modbus.Driver {
	case config.MODBUS_DRIVER_TCP, config.MODBUS_DRIVER_RTU:
		return modbus_transport.CreateModbusClientTransport(cfg.Modbus.URL, cfg.Modbus.Speed, timeout,
			logger, metrics.ModbusInstrumentation())
	case config.MODBUS_DRIVER_GOBURROW:
		return modbus_transport.CreateGoburrowTransport(cfg.Modbus.SerialPort, int(cfg.Modbus.Speed), timeout,
			logger, metrics.ModbusInstrumentation()), nil
	case config.MODBUS_DRIVER_TEST:
		return modbus_transport.CreateTestTransport(), nil
	}
	return nil, fmt.Errorf("unknown modbus driver %q", cfg.Modbus.Driver)
}

func modbusActorProvider(cfg *config.Config, logger *zap.Logger) (actor.ModbusActorProvider, error) {

	transport, err := createTransport(cfg, logger)
	if err != nil {
		return nil, err
	}

	return func() *adactor.ModbusActor {
		return adactor.NewModbusActor(transport, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}
