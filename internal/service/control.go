package service

import (
	"context"
	"fmt"
	"time"

	"home_gateway/internal/logger"
	"home_gateway/internal/models"
	"home_gateway/internal/repository"
)

// ShutoffTimers is the slice of the scheduler the command paths need: every
// manual activation arms the auto-off timer and every manual off cancels it.
type ShutoffTimers interface {
	ArmShutoff(d time.Duration)
	CancelShutoff()
}

// ControlService validates and applies browser commands.
type ControlService struct {
	store   *DeviceStore
	weather Weather
	link    Link
	timers  ShutoffTimers
	events  repository.EventRepo
	log     *logger.Logger
}

func NewControlService(store *DeviceStore, weather Weather, link Link, timers ShutoffTimers, events repository.EventRepo, log *logger.Logger) *ControlService {
	return &ControlService{
		store:   store,
		weather: weather,
		link:    link,
		timers:  timers,
		events:  events,
		log:     log,
	}
}

// Devices returns a full state snapshot.
func (s *ControlService) Devices() models.DeviceState {
	return s.store.Snapshot()
}

// Irrigation returns the current irrigation configuration.
func (s *ControlService) Irrigation() models.IrrigationConfig {
	return s.store.Irrigation()
}

// Switch applies one (category, key, value) mutation. Lights and outlets
// require the remote controller to be reachable; the pump is accepted
// offline so irrigation policy changes are never held hostage by the link.
func (s *ControlService) Switch(ctx context.Context, p ControlParams) error {
	switch p.Category {
	case models.CategoryLights, models.CategoryOutlets:
		if !s.link.Connected() {
			return ErrDeviceOffline
		}
		if err := s.store.SetSwitch(ctx, p.Category, p.Key, p.Value); err != nil {
			return err
		}
		s.log.Infow("device switched", "category", p.Category, "key", p.Key, "on", p.Value)
		return nil
	case models.CategoryIrrigation:
		if p.Key != models.PumpKey {
			return fmt.Errorf("%w: %s/%s", ErrUnknownDevice, p.Category, p.Key)
		}
		return s.SetPump(ctx, p.Value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCategory, p.Category)
	}
}

// SetPump turns the pump on or off directly. Activation is rain-gated
// whenever avoid_rain is set, regardless of mode; every activation gets a
// shutoff timer and every off path cancels it.
func (s *ControlService) SetPump(ctx context.Context, on bool) error {
	cfg := s.store.Irrigation()

	if on && cfg.AvoidRain && s.weather.IsRaining(ctx) {
		s.appendEvent(ctx, models.EventRainBlocked, "manual activation suppressed: rain detected", nil)
		return ErrWeatherBlocked
	}

	changed, err := s.store.SetPump(ctx, on)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	if on {
		s.timers.ArmShutoff(time.Duration(cfg.DurationMinutes) * time.Minute)
		s.appendEvent(ctx, models.EventPumpOn, "pump turned on", map[string]any{"duration_minutes": cfg.DurationMinutes})
	} else {
		s.timers.CancelShutoff()
		s.appendEvent(ctx, models.EventPumpOff, "pump turned off", nil)
	}
	s.log.Infow("pump state set", "on", on)
	return nil
}

// SaveIrrigation replaces the configuration wholesale after validating it.
// The pump ground truth is preserved; the scheduler picks the new entries up
// on its next tick.
func (s *ControlService) SaveIrrigation(ctx context.Context, p IrrigationParams) (models.IrrigationConfig, error) {
	if p.Mode != models.ModeManual && p.Mode != models.ModeAutomatic {
		return models.IrrigationConfig{}, fmt.Errorf("%w: mode %q", ErrInvalidConfig, p.Mode)
	}
	if p.DurationMinutes < 1 {
		return models.IrrigationConfig{}, fmt.Errorf("%w: duration %d minutes", ErrInvalidConfig, p.DurationMinutes)
	}
	for _, entry := range p.Schedules {
		if err := entry.Validate(); err != nil {
			return models.IrrigationConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	cfg := models.IrrigationConfig{
		Mode:            p.Mode,
		AvoidRain:       p.AvoidRain,
		DurationMinutes: p.DurationMinutes,
		Schedules:       p.Schedules,
	}
	if cfg.Schedules == nil {
		cfg.Schedules = []models.ScheduleEntry{}
	}
	if err := s.store.ReplaceIrrigation(ctx, cfg); err != nil {
		return models.IrrigationConfig{}, err
	}

	s.log.Infow("irrigation config saved", "mode", cfg.Mode, "schedules", len(cfg.Schedules), "avoid_rain", cfg.AvoidRain)
	s.appendEvent(ctx, models.EventConfigSaved, "irrigation config replaced", map[string]any{
		"mode":      cfg.Mode,
		"schedules": len(cfg.Schedules),
	})
	return s.store.Irrigation(), nil
}

// Reset turns every actuator off. Requires the link, like the original
// firmware contract, and cancels any pending shutoff.
func (s *ControlService) Reset(ctx context.Context) error {
	if !s.link.Connected() {
		return ErrDeviceOffline
	}
	if err := s.store.ResetAll(ctx); err != nil {
		return err
	}
	s.timers.CancelShutoff()
	s.appendEvent(ctx, models.EventReset, "all devices turned off", nil)
	return nil
}

func (s *ControlService) appendEvent(ctx context.Context, typ, msg string, meta any) {
	if err := s.events.Append(ctx, models.GatewayEvent{Type: typ, Description: msg, Metadata: meta}); err != nil {
		s.log.Errorw("append event failed", "type", typ, "err", err)
	}
}
