package handlers

import (
	"context"
	"net/http"
	"time"

	"home_gateway/internal/models"
	"home_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastGenUsername    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockControl struct {
	state      models.DeviceState
	irrigation models.IrrigationConfig

	switchErr  error
	pumpErr    error
	saveErr    error
	saveResult models.IrrigationConfig
	resetErr   error

	lastSwitch  service.ControlParams
	lastPump    *bool
	lastSave    service.IrrigationParams
	resetCalled int
}

func (m *mockControl) Devices() models.DeviceState { return m.state }
func (m *mockControl) Switch(ctx context.Context, p service.ControlParams) error {
	m.lastSwitch = p
	return m.switchErr
}
func (m *mockControl) SetPump(ctx context.Context, on bool) error {
	m.lastPump = &on
	return m.pumpErr
}
func (m *mockControl) SaveIrrigation(ctx context.Context, p service.IrrigationParams) (models.IrrigationConfig, error) {
	m.lastSave = p
	return m.saveResult, m.saveErr
}
func (m *mockControl) Irrigation() models.IrrigationConfig { return m.irrigation }
func (m *mockControl) Reset(ctx context.Context) error {
	m.resetCalled++
	return m.resetErr
}

type mockSync struct {
	commandsView service.CommandsView
	ingestResult models.SensorReading
	ingestErr    error
	confirmErr   error
	readings     []models.SensorReading

	lastCommandsID string
	lastIngest     service.ReadingParams
	lastConfirm    service.ConfirmParams
}

func (m *mockSync) Commands(deviceID, ip string) service.CommandsView {
	m.lastCommandsID = deviceID
	return m.commandsView
}
func (m *mockSync) Ingest(ctx context.Context, p service.ReadingParams) (models.SensorReading, error) {
	m.lastIngest = p
	return m.ingestResult, m.ingestErr
}
func (m *mockSync) Confirm(ctx context.Context, p service.ConfirmParams) error {
	m.lastConfirm = p
	return m.confirmErr
}
func (m *mockSync) Readings() []models.SensorReading { return m.readings }

type mockWeather struct {
	raining bool
	info    service.WeatherInfo
	err     error
}

func (m *mockWeather) IsRaining(ctx context.Context) bool { return m.raining }
func (m *mockWeather) Current(ctx context.Context) (service.WeatherInfo, error) {
	return m.info, m.err
}

type mockLink struct {
	status models.DeviceLinkStatus
}

func (m *mockLink) Touch(deviceID, ip string)                       {}
func (m *mockLink) Status() models.DeviceLinkStatus                 { return m.status }
func (m *mockLink) Connected() bool                                 { return m.status.Connected }
func (m *mockLink) Run(ctx context.Context, interval time.Duration) {}

type mockScheduler struct {
	status service.ScheduleStatus
}

func (m *mockScheduler) Run(ctx context.Context, tick time.Duration) {}
func (m *mockScheduler) Status() service.ScheduleStatus              { return m.status }

type mockEventLog struct {
	resp []models.GatewayEvent
	err  error
	last service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.GatewayEvent, error) {
	m.last = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

type mockSet struct {
	auth      *mockAuth
	control   *mockControl
	sync      *mockSync
	weather   *mockWeather
	link      *mockLink
	scheduler *mockScheduler
	logs      *mockEventLog
}

func newMockService() (*service.Service, *mockSet) {
	m := &mockSet{
		auth:      &mockAuth{parseID: 1, genTokenToken: "test-token"},
		control:   &mockControl{state: models.DefaultDeviceState()},
		sync:      &mockSync{},
		weather:   &mockWeather{},
		link:      &mockLink{status: models.DeviceLinkStatus{Connected: true}},
		scheduler: &mockScheduler{},
		logs:      &mockEventLog{},
	}
	s := &service.Service{
		Control:       m.control,
		DeviceSync:    m.sync,
		Weather:       m.weather,
		Link:          m.link,
		Scheduler:     m.scheduler,
		EventLog:      m.logs,
		Authorization: m.auth,
	}
	return s, m
}

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
