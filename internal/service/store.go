package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"home_gateway/internal/logger"
	"home_gateway/internal/models"
	"home_gateway/internal/repository"
)

// DeviceStore is the single owner of the mutable device state. Every
// mutation runs under one mutex and persists the whole document before the
// lock is released, so no reader can observe memory and storage out of sync
// for longer than one mutation call.
//
// Persistence is write-through: a failed write keeps the in-memory mutation
// and surfaces as ErrPersist to the caller.
type DeviceStore struct {
	mu    sync.RWMutex
	state models.DeviceState

	repo repository.StateRepo
	log  *logger.Logger
}

func NewDeviceStore(repo repository.StateRepo, log *logger.Logger) *DeviceStore {
	return &DeviceStore{
		state: models.DefaultDeviceState(),
		repo:  repo,
		log:   log,
	}
}

// Load replaces the in-memory state with the persisted document. Absence or
// a corrupt document falls back to the hard-coded default schema.
func (s *DeviceStore) Load(ctx context.Context) error {
	st, err := s.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNoState) {
			s.log.Infow("no persisted state, starting from defaults")
			return nil
		}
		s.log.Errorw("load state failed, starting from defaults", "err", err)
		return nil
	}

	// Guard against documents written before the irrigation section existed.
	if st.Lights == nil {
		st.Lights = models.DefaultDeviceState().Lights
	}
	if st.Outlets == nil {
		st.Outlets = models.DefaultDeviceState().Outlets
	}
	if st.Irrigation.Mode == "" {
		st.Irrigation = models.DefaultDeviceState().Irrigation
	}
	if st.Irrigation.DurationMinutes < 1 {
		st.Irrigation.DurationMinutes = 5
	}
	if st.Readings == nil {
		st.Readings = []models.SensorReading{}
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.log.Infow("state loaded",
		"lights", len(st.Lights),
		"outlets", len(st.Outlets),
		"schedules", len(st.Irrigation.Schedules),
		"readings", len(st.Readings),
	)
	return nil
}

// Snapshot returns a consistent deep copy of the current state.
func (s *DeviceStore) Snapshot() models.DeviceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Irrigation returns a copy of the irrigation configuration.
func (s *DeviceStore) Irrigation() models.IrrigationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg := s.state.Irrigation
	cfg.Schedules = append([]models.ScheduleEntry(nil), cfg.Schedules...)
	return cfg
}

// Readings returns a copy of the reading log, newest first.
func (s *DeviceStore) Readings() []models.SensorReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.SensorReading(nil), s.state.Readings...)
}

// SetSwitch flips one light or outlet. Keys are fixed at initialization;
// unknown (category, key) pairs are rejected before any mutation.
func (s *DeviceStore) SetSwitch(ctx context.Context, category, key string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var m map[string]bool
	switch category {
	case models.CategoryLights:
		m = s.state.Lights
	case models.CategoryOutlets:
		m = s.state.Outlets
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if _, ok := m[key]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownDevice, category, key)
	}

	m[key] = on
	return s.persistLocked(ctx)
}

// SetPump sets the pump ground truth. Returns changed=false when the pump
// already had the requested value; in that case nothing is persisted, which
// is what makes scheduler re-triggers idempotent.
func (s *DeviceStore) SetPump(ctx context.Context, on bool) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Irrigation.PumpActive == on {
		return false, nil
	}
	s.state.Irrigation.PumpActive = on
	return true, s.persistLocked(ctx)
}

// SetMode switches between manual and automatic. Returns changed=false if
// the mode already matched.
func (s *DeviceStore) SetMode(ctx context.Context, mode string) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Irrigation.Mode == mode {
		return false, nil
	}
	s.state.Irrigation.Mode = mode
	return true, s.persistLocked(ctx)
}

// ReplaceIrrigation swaps in a validated configuration, preserving the
// current pump ground truth.
func (s *DeviceStore) ReplaceIrrigation(ctx context.Context, cfg models.IrrigationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg.PumpActive = s.state.Irrigation.PumpActive
	s.state.Irrigation = cfg
	return s.persistLocked(ctx)
}

// AppendReading prepends the reading and evicts the oldest entries beyond
// the capacity bound.
func (s *DeviceStore) AppendReading(ctx context.Context, r models.SensorReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Readings = append([]models.SensorReading{r}, s.state.Readings...)
	if len(s.state.Readings) > models.MaxReadings {
		s.state.Readings = s.state.Readings[:models.MaxReadings]
	}
	return s.persistLocked(ctx)
}

// MergeConfirm merges the applied-state subset reported by the remote
// controller. Only keys that exist in the fixed schema are merged; unknown
// keys are ignored. Reports pump transitions so the caller can keep the
// shutoff timer in step.
func (s *DeviceStore) MergeConfirm(ctx context.Context, lights, outlets map[string]bool, pump *bool, mode *string) (pumpOn, pumpOff bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range lights {
		if _, ok := s.state.Lights[k]; ok {
			s.state.Lights[k] = v
		}
	}
	for k, v := range outlets {
		if _, ok := s.state.Outlets[k]; ok {
			s.state.Outlets[k] = v
		}
	}
	if pump != nil && s.state.Irrigation.PumpActive != *pump {
		s.state.Irrigation.PumpActive = *pump
		pumpOn = *pump
		pumpOff = !*pump
	}
	if mode != nil {
		s.state.Irrigation.Mode = *mode
	}
	return pumpOn, pumpOff, s.persistLocked(ctx)
}

// ResetAll turns every actuator off, pump included.
func (s *DeviceStore) ResetAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k := range s.state.Lights {
		s.state.Lights[k] = false
	}
	for k := range s.state.Outlets {
		s.state.Outlets[k] = false
	}
	s.state.Irrigation.PumpActive = false
	return s.persistLocked(ctx)
}

// persistLocked writes the whole document. Callers hold the write lock.
func (s *DeviceStore) persistLocked(ctx context.Context) error {
	if err := s.repo.Save(ctx, s.state); err != nil {
		s.log.Errorw("persist state failed", "err", err)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}
