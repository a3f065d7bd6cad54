package service

import (
	"context"
	"time"

	"home_gateway/internal/logger"
	"home_gateway/internal/models"
	"home_gateway/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Control exposes the browser-facing command surface: snapshot reads, single
// device mutations, direct pump control and irrigation configuration.
type Control interface {
	Devices() models.DeviceState
	Switch(ctx context.Context, p ControlParams) error
	SetPump(ctx context.Context, on bool) error
	SaveIrrigation(ctx context.Context, p IrrigationParams) (models.IrrigationConfig, error)
	Irrigation() models.IrrigationConfig
	Reset(ctx context.Context) error
}

// DeviceSync is the poll/confirm protocol for the remote controller.
type DeviceSync interface {
	Commands(deviceID, ip string) CommandsView
	Ingest(ctx context.Context, p ReadingParams) (models.SensorReading, error)
	Confirm(ctx context.Context, p ConfirmParams) error
	Readings() []models.SensorReading
}

// Weather answers the single question the scheduler cares about, plus the
// richer view the UI displays.
type Weather interface {
	IsRaining(ctx context.Context) bool
	Current(ctx context.Context) (WeatherInfo, error)
}

// Link tracks remote-controller liveness.
type Link interface {
	Touch(deviceID, ip string)
	Status() models.DeviceLinkStatus
	Connected() bool
	Run(ctx context.Context, interval time.Duration)
}

// Scheduler drives automatic irrigation. Run blocks until ctx is cancelled.
type Scheduler interface {
	Run(ctx context.Context, tick time.Duration)
	Status() ScheduleStatus
}

type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.GatewayEvent, error)
}

// Service aggregates all sub-services.
type Service struct {
	Control
	DeviceSync
	Weather
	Link
	Scheduler
	EventLog
	Authorization

	Store *DeviceStore
}

// Config carries the tunables NewService needs beyond the repositories.
type Config struct {
	Weather     WeatherConfig
	LinkTimeout time.Duration
	Tolerance   time.Duration
	SigningKey  string
}

// NewService wires the repository layer into concrete services and loads the
// persisted state into the store.
func NewService(ctx context.Context, repos *repository.Repository, cfg Config, log *logger.Logger) (*Service, error) {
	store := NewDeviceStore(repos.State, log)
	if err := store.Load(ctx); err != nil {
		return nil, err
	}

	weather := NewWeatherService(cfg.Weather, log)
	link := NewLinkService(cfg.LinkTimeout, repos.Events, log)
	scheduler := NewSchedulerService(store, weather, repos.Events, cfg.Tolerance, log)

	// A pump restored running gets a fresh shutoff deadline; every running
	// pump carries a timer, restarts included.
	if irr := store.Irrigation(); irr.PumpActive {
		scheduler.ArmShutoff(time.Duration(irr.DurationMinutes) * time.Minute)
		log.Infow("pump was running at shutdown, shutoff re-armed", "duration_min", irr.DurationMinutes)
	}

	control := NewControlService(store, weather, link, scheduler, repos.Events, log)
	sync := NewSyncService(store, link, scheduler, repos.Events, log)

	return &Service{
		Control:       control,
		DeviceSync:    sync,
		Weather:       weather,
		Link:          link,
		Scheduler:     scheduler,
		EventLog:      NewEventLogService(repos.Events),
		Authorization: NewAuthService(repos.Auth, cfg.SigningKey),
		Store:         store,
	}, nil
}

// ControlParams is one (category, key, value) mutation from the browser.
type ControlParams struct {
	Category string
	Key      string
	Value    bool
}

// IrrigationParams replaces the irrigation configuration wholesale.
type IrrigationParams struct {
	Mode            string
	AvoidRain       bool
	DurationMinutes int
	Schedules       []models.ScheduleEntry
}

// ReadingParams is an inbound sensor push. Numeric fields tolerate string
// payloads; IrrigationAuto is an optional mode hint from the device.
type ReadingParams struct {
	Temperature    models.FlexFloat
	Humidity       models.FlexFloat
	GasLevel       models.FlexFloat
	GasAlert       bool
	Device         string
	Heartbeat      bool
	WifiRSSI       int
	IPAddress      string
	IrrigationAuto *bool
}

// ConfirmParams merges only the provided subset of applied state.
type ConfirmParams struct {
	Lights     map[string]bool
	Outlets    map[string]bool
	Irrigation *ConfirmIrrigation
	DeviceID   string
	IPAddress  string
}

// ConfirmIrrigation is the irrigation slice of a confirm payload.
type ConfirmIrrigation struct {
	PumpActive    bool
	AutomaticMode *bool
}

// CommandsView is the projection the remote controller polls for actuation.
type CommandsView struct {
	Lights     map[string]bool    `json:"lights"`
	Outlets    map[string]bool    `json:"outlets"`
	Irrigation CommandsIrrigation `json:"irrigation"`
}

type CommandsIrrigation struct {
	PumpActive      bool                   `json:"pump_active"`
	AutomaticMode   bool                   `json:"automatic_mode"`
	DurationMinutes int                    `json:"duration_minutes"`
	Schedules       []models.ScheduleEntry `json:"schedules"`
}

// ScheduleStatus is a diagnostic view of the scheduler.
type ScheduleStatus struct {
	CurrentTime string                 `json:"current_time"`
	CurrentDay  string                 `json:"current_day"`
	Mode        string                 `json:"mode"`
	PumpActive  bool                   `json:"pump_active"`
	AvoidRain   bool                   `json:"avoid_rain"`
	Duration    int                    `json:"duration_minutes"`
	Schedules   []models.ScheduleEntry `json:"schedules"`
}

// WeatherInfo is the UI-facing slice of the upstream weather payload.
type WeatherInfo struct {
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	TempC       float64 `json:"temp_c"`
	Humidity    float64 `json:"humidity"`
	Raining     bool    `json:"raining"`
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "" matches all event types
}
