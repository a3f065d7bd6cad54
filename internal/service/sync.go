package service

import (
	"context"
	"time"

	"home_gateway/internal/logger"
	"home_gateway/internal/models"
	"home_gateway/internal/repository"

	"github.com/google/uuid"
)

// SyncService implements the poll/confirm protocol for the remote
// controller. Every call doubles as a liveness signal.
type SyncService struct {
	store  *DeviceStore
	link   Link
	timers ShutoffTimers
	events repository.EventRepo
	log    *logger.Logger

	now func() time.Time
}

func NewSyncService(store *DeviceStore, link Link, timers ShutoffTimers, events repository.EventRepo, log *logger.Logger) *SyncService {
	return &SyncService{
		store:  store,
		link:   link,
		timers: timers,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

// Commands is the read-only projection the controller polls for actuation.
func (s *SyncService) Commands(deviceID, ip string) CommandsView {
	s.link.Touch(deviceID, ip)

	st := s.store.Snapshot()
	return CommandsView{
		Lights:  st.Lights,
		Outlets: st.Outlets,
		Irrigation: CommandsIrrigation{
			PumpActive:      st.Irrigation.PumpActive,
			AutomaticMode:   st.Irrigation.Mode == models.ModeAutomatic,
			DurationMinutes: st.Irrigation.DurationMinutes,
			Schedules:       st.Irrigation.Schedules,
		},
	}
}

// Ingest appends a sensor reading. Numeric fields were already coerced by
// FlexFloat (unparseable input lands as 0); the gas alert is taken from the
// sender or derived from the level. An irrigation_auto hint switches the
// server-side mode.
func (s *SyncService) Ingest(ctx context.Context, p ReadingParams) (models.SensorReading, error) {
	s.link.Touch(p.Device, p.IPAddress)

	reading := models.SensorReading{
		ID:          uuid.NewString(),
		Temperature: float64(p.Temperature),
		Humidity:    float64(p.Humidity),
		GasLevel:    float64(p.GasLevel),
		GasAlert:    p.GasAlert || float64(p.GasLevel) > models.GasAlertThreshold,
		Device:      p.Device,
		Heartbeat:   p.Heartbeat,
		WifiRSSI:    p.WifiRSSI,
		Timestamp:   s.now().UTC(),
	}
	if err := s.store.AppendReading(ctx, reading); err != nil {
		return models.SensorReading{}, err
	}

	if p.IrrigationAuto != nil {
		mode := models.ModeManual
		if *p.IrrigationAuto {
			mode = models.ModeAutomatic
		}
		changed, err := s.store.SetMode(ctx, mode)
		if err != nil {
			return reading, err
		}
		if changed {
			s.log.Infow("irrigation mode set by device", "mode", mode)
			s.appendEvent(ctx, models.EventModeChange, "mode reported by device: "+mode, nil)
		}
	}
	return reading, nil
}

// Confirm merges the applied-state subset the controller reports back,
// keeping both sides eventually consistent with physical-world lag. Pump
// transitions keep the shutoff timer in step: a reported off cancels it, a
// reported on arms it so the pump never runs unbounded.
func (s *SyncService) Confirm(ctx context.Context, p ConfirmParams) error {
	s.link.Touch(p.DeviceID, p.IPAddress)

	var pump *bool
	var mode *string
	if p.Irrigation != nil {
		pump = &p.Irrigation.PumpActive
		if p.Irrigation.AutomaticMode != nil {
			m := models.ModeManual
			if *p.Irrigation.AutomaticMode {
				m = models.ModeAutomatic
			}
			mode = &m
		}
	}

	pumpOn, pumpOff, err := s.store.MergeConfirm(ctx, p.Lights, p.Outlets, pump, mode)
	if err != nil {
		return err
	}
	if pumpOff {
		s.timers.CancelShutoff()
		s.appendEvent(ctx, models.EventPumpOff, "pump off confirmed by device", nil)
	}
	if pumpOn {
		duration := s.store.Irrigation().DurationMinutes
		s.timers.ArmShutoff(time.Duration(duration) * time.Minute)
		s.appendEvent(ctx, models.EventPumpOn, "pump on confirmed by device", map[string]any{"duration_minutes": duration})
	}
	return nil
}

// Readings returns the bounded reading log, newest first.
func (s *SyncService) Readings() []models.SensorReading {
	return s.store.Readings()
}

func (s *SyncService) appendEvent(ctx context.Context, typ, msg string, meta any) {
	if err := s.events.Append(ctx, models.GatewayEvent{Type: typ, Description: msg, Metadata: meta}); err != nil {
		s.log.Errorw("append event failed", "type", typ, "err", err)
	}
}
