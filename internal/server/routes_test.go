package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	adactor "github.com/berfenger/evsemeter2mqtt/internal/adapter/actor"
	coreactor "github.com/berfenger/evsemeter2mqtt/internal/core/actor"
	"github.com/berfenger/evsemeter2mqtt/internal/core/domain"
	"github.com/berfenger/evsemeter2mqtt/internal/util"
	"github.com/berfenger/evsemeter2mqtt/internal/util/actorutil"
	"github.com/berfenger/evsemeter2mqtt/pkg/energy_meter"
	"github.com/berfenger/evsemeter2mqtt/pkg/modbus_transport"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) http.Handler {
	cfg := util.LoadTestConfig()
	// mains fed over the API
	cfg.MainsMeter.Type = uint8(energy_meter.METER_API)
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	transport := modbus_transport.CreateTestTransport()

	props := actor.PropsFromProducer(func() actor.Actor {
		return coreactor.NewMasterOfPuppetsActor(cfg, func() *adactor.ModbusActor {
			return adactor.NewModbusActor(transport, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)

	t.Cleanup(func() {
		as.Root.Stop(pid)
		as.Shutdown()
	})

	return newServer(cfg, as.Root, pid).RegisterRoutes()
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(t)

	assert.Eventually(t, func() bool {
		return doRequest(h, http.MethodGet, "/healthcheck", "").Code == http.StatusOK
	}, 5*time.Second, 200*time.Millisecond)
}

func TestCurrentsAndMeters(t *testing.T) {

	assert := assert.New(t)

	h := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/currents", `{"role":"mains","currents_da":[100,50,-20]}`)
	assert.Equal(http.StatusNoContent, rec.Code)

	// out of range feeds leave the meter untouched
	rec = doRequest(h, http.MethodPost, "/api/currents", `{"role":"mains","currents_da":[99999,-99999,0]}`)
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Contains(rec.Body.String(), "out of range")

	// the ev meter is an Eastron, not fed over the API
	rec = doRequest(h, http.MethodPost, "/api/currents", `{"role":"ev","currents_da":[10,10,10]}`)
	assert.Equal(http.StatusUnprocessableEntity, rec.Code)

	rec = doRequest(h, http.MethodPost, "/api/currents", `{"role":"grid","currents_da":[10,10,10]}`)
	assert.Equal(http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodGet, "/api/meters", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var state domain.GetMetersStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.NotNil(t, state.Mains)
	assert.Equal([3]int32{100, 50, -20}, state.Mains.PhaseCurrent)
	assert.Equal(int32(130), state.MainsLimit.Isum)
	assert.Equal("API", state.Mains.Type)
}

func TestSession(t *testing.T) {

	assert := assert.New(t)

	h := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/session/disconnect", "")
	assert.Equal(http.StatusNoContent, rec.Code)

	rec = doRequest(h, http.MethodPost, "/api/session/start", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), `"reset"`)
}

func TestSettings(t *testing.T) {

	assert := assert.New(t)

	h := newTestHandler(t)

	rec := doRequest(h, http.MethodPost, "/api/settings", `{"current_min":4,"stop_timer":30,"color":{"r":0,"g":300,"b":0}}`)
	assert.Equal(http.StatusBadRequest, rec.Code)
	var resp settingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(resp.Valid)
	assert.Equal([]domain.FieldError{
		{Field: "current_min", Error: domain.SETTINGS_VALUE_NOT_ALLOWED},
		{Field: "color", Error: domain.SETTINGS_VALUE_NOT_ALLOWED},
	}, resp.Errors)

	rec = doRequest(h, http.MethodPost, "/api/settings", `{"current_max_sum_mains":20}`)
	assert.Equal(http.StatusOK, rec.Code)

	rec = doRequest(h, http.MethodGet, "/api/meters", "")
	var state domain.GetMetersStateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(int32(200), state.MainsLimit.Limit)
}

func TestSensorboxWiFi(t *testing.T) {

	assert := assert.New(t)

	h := newTestHandler(t)

	rec := doRequest(h, http.MethodPut, "/api/sensorbox/wifi", `{"mode":5}`)
	assert.Equal(http.StatusBadRequest, rec.Code)

	// the mains meter is not a sensorbox
	rec = doRequest(h, http.MethodPut, "/api/sensorbox/wifi", `{"mode":1}`)
	assert.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
