package server

import (
	"net/http"
	"time"

	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const REQUEST_TIMEOUT = 10 * time.Second

type currentsRequest struct {
	Role     string   `json:"role"`
	Currents [3]int32 `json:"currents_da"`
	Power    *int32   `json:"power_w,omitempty"`
	Energy   *int32   `json:"energy_wh,omitempty"`
}

type wifiModeRequest struct {
	Mode *uint8 `json:"mode"`
}

type settingsResponse struct {
	Valid  bool                `json:"valid"`
	Errors []domain.FieldError `json:"errors,omitempty"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/meters", s.MetersHandler)
	api.POST("/settings", s.SettingsHandler)
	api.POST("/session/start", s.SessionStartHandler)
	api.POST("/session/disconnect", s.EVDisconnectedHandler)
	api.POST("/currents", s.CurrentsHandler)
	api.PUT("/sensorbox/wifi", s.SensorboxWiFiHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, REQUEST_TIMEOUT).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) MetersHandler(c echo.Context) error {
	res, err := s.request(domain.GetMetersStateRequest{})
	if err != nil {
		return actorError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SettingsHandler validates a settings update and applies the sum-of-mains limit when valid.
func (s *Server) SettingsHandler(c echo.Context) error {
	var req domain.SettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	errs := s.validator.ValidateSettings(req, s.settingsContext)
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, settingsResponse{Valid: false, Errors: errs})
	}
	if req.MaxSumMains != nil {
		if _, err := s.request(domain.SetMaxSumMainsRequest{MaxSumMains: uint16(*req.MaxSumMains)}); err != nil {
			return actorError(c, err)
		}
	}
	return c.JSON(http.StatusOK, settingsResponse{Valid: true})
}

func (s *Server) SessionStartHandler(c echo.Context) error {
	res, err := s.request(domain.SessionStartRequest{})
	if err != nil {
		return actorError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reset": res.(domain.SessionStartResponse).Reset})
}

func (s *Server) EVDisconnectedHandler(c echo.Context) error {
	if _, err := s.request(domain.EVDisconnectedRequest{}); err != nil {
		return actorError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) CurrentsHandler(c echo.Context) error {
	var req currentsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var role energy_meter.Role
	switch req.Role {
	case energy_meter.ROLE_MAINS.String():
		role = energy_meter.ROLE_MAINS
	case energy_meter.ROLE_EV.String():
		role = energy_meter.ROLE_EV
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role should be mains or ev"})
	}
	feed := domain.SetApiMeterRequest{
		Role:     role,
		Currents: req.Currents,
		Power:    req.Power,
		Energy:   req.Energy,
	}
	if err := feed.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if _, err := s.request(feed); err != nil {
		return actorError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) SensorboxWiFiHandler(c echo.Context) error {
	var req wifiModeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.Mode == nil || *req.Mode > uint8(energy_meter.WIFI_PORTAL) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "mode should be 0, 1 or 2"})
	}
	_, err := s.request(domain.SetSensorboxWiFiModeRequest{Mode: energy_meter.WiFiMode(*req.Mode)})
	if err != nil {
		return actorError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// request asks the master actor and unwraps response errors.
func (s *Server) request(req domain.ActorRequest) (domain.ActorResponse, error) {
	res, err := s.rootContext.RequestFuture(s.masterActor, req, REQUEST_TIMEOUT).Result()
	if err != nil {
		return nil, &timeoutError{err}
	}
	resp, ok := res.(domain.ActorResponse)
	if !ok {
		return nil, &timeoutError{errUnexpectedResponse}
	}
	if resp.HasResponseError() {
		return nil, resp.GetResponseError()
	}
	return resp, nil
}

func actorError(c echo.Context, err error) error {
	if _, ok := err.(*timeoutError); ok {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
}
