package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/config"
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/core/port"
	"github.com/berfenger/evsemeter2mqtt/internal/core/service"

	"github.com/asynkron/protoactor-go/actor"
	_ "github.com/joho/godotenv/autoload"
)

var errUnexpectedResponse = errors.New("unexpected actor response")

// timeoutError marks failures to reach the actor system, as opposed to rejected requests.
type timeoutError struct {
	err error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("actor request: %v", e.err)
}

func (e *timeoutError) Unwrap() error {
	return e.err
}

type Server struct {
	port            uint
	httpLog         bool
	rootContext     *actor.RootContext
	masterActor     *actor.PID
	validator       port.SettingsValidator
	settingsContext domain.SettingsContext
}

func settingsContext(cfg config.Config) domain.SettingsContext {
	return domain.SettingsContext{
		MinCurrent:        int(cfg.LoadBalancing.MinCurrent),
		MaxCurrent:        int(cfg.LoadBalancing.MaxCurrent),
		LoadBalancingRole: int(cfg.LoadBalancing.Role),
		Mode:              int(cfg.LoadBalancing.Mode),
	}
}

func newServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID) *Server {
	return &Server{
		port:            cfg.Port,
		rootContext:     rootContext,
		masterActor:     masterActor,
		httpLog:         cfg.HttpLog,
		validator:       &service.DefaultSettingsValidator{},
		settingsContext: settingsContext(cfg),
	}
}

func NewServer(cfg config.Config, rootContext *actor.RootContext, masterActor *actor.PID) *http.Server {
	NewServer := newServer(cfg, rootContext, masterActor)

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
