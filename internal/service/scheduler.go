package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"home_gateway/internal/logger"
	"home_gateway/internal/models"
	"home_gateway/internal/repository"
)

const (
	// DefaultTick must stay at or below the tolerance window so no schedule
	// entry can slip between two evaluations.
	DefaultTick      = 10 * time.Second
	DefaultTolerance = 60 * time.Second

	rainCheckTimeout = 15 * time.Second
	shutoffTimeout   = 5 * time.Second
)

// SchedulerService compares wall-clock time against the configured schedule
// entries and drives the pump. It owns the single shutoff timer: arming
// always cancels any previous handle, and every pump-off path cancels it so
// a stale timer can never shut off a re-activated pump.
type SchedulerService struct {
	store   *DeviceStore
	weather Weather
	events  repository.EventRepo
	log     *logger.Logger

	tolerance time.Duration
	minute    time.Duration // time.Minute; compressed in tests
	now       func() time.Time

	mu        sync.Mutex
	shutoff   *time.Timer
	checking  bool      // a rain check for a matched entry is in flight
	lastStart time.Time // target minute of the last activation; fires once per minute slot
}

func NewSchedulerService(store *DeviceStore, weather Weather, events repository.EventRepo, tolerance time.Duration, log *logger.Logger) *SchedulerService {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &SchedulerService{
		store:     store,
		weather:   weather,
		events:    events,
		log:       log,
		tolerance: tolerance,
		minute:    time.Minute,
		now:       time.Now,
	}
}

// Run evaluates the schedule on every tick until ctx is cancelled. The rain
// check never blocks the loop; ticks keep their cadence regardless of
// upstream latency.
func (s *SchedulerService) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultTick
	}
	t := time.NewTicker(tick)
	defer t.Stop()

	s.log.Infow("irrigation scheduler started", "tick", tick, "tolerance", s.tolerance)
	for {
		select {
		case <-ctx.Done():
			s.CancelShutoff()
			return
		case <-t.C:
			s.evaluate(ctx)
		}
	}
}

// evaluate runs one scheduler tick: at most one activation is started, first
// matching entry wins.
func (s *SchedulerService) evaluate(ctx context.Context) {
	now := s.now()
	cfg := s.store.Irrigation()

	if cfg.Mode != models.ModeAutomatic {
		return
	}
	if cfg.PumpActive {
		// Idempotence guard: a matching entry must not re-arm the timer.
		return
	}

	day := models.WeekdayTag(now)
	for i, entry := range cfg.Schedules {
		if !entry.FiresOn(day) {
			continue
		}
		target, due := s.entryTarget(entry, now)
		if !due {
			continue
		}
		if s.firedAt(target) {
			// A short run can end inside the same tolerance window; the
			// slot already fired and must not restart the pump.
			continue
		}
		s.trigger(ctx, i, entry, cfg.AvoidRain, target)
		return
	}
}

// entryDue reports whether now falls within the tolerance window around the
// entry's target minute. Unparseable times never fire.
func (s *SchedulerService) entryDue(entry models.ScheduleEntry, now time.Time) bool {
	_, due := s.entryTarget(entry, now)
	return due
}

// entryTarget resolves the entry's target minute on now's date and whether
// now falls within the tolerance window around it.
func (s *SchedulerService) entryTarget(entry models.ScheduleEntry, now time.Time) (time.Time, bool) {
	hour, minute, err := entry.Clock()
	if err != nil {
		return time.Time{}, false
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	diff := now.Sub(target)
	if diff < 0 {
		diff = -diff
	}
	return target, diff <= s.tolerance
}

func (s *SchedulerService) firedAt(target time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStart.Equal(target)
}

// trigger finalizes the activation decision. With rain avoidance on, the
// oracle call runs in its own goroutine and the decision lands whenever it
// resolves; pump state is re-checked at that point since it may have changed.
func (s *SchedulerService) trigger(ctx context.Context, idx int, entry models.ScheduleEntry, avoidRain bool, target time.Time) {
	if !avoidRain {
		s.activate(ctx, idx, entry, target)
		return
	}

	s.mu.Lock()
	if s.checking {
		s.mu.Unlock()
		return
	}
	s.checking = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.checking = false
			s.mu.Unlock()
		}()

		cctx, cancel := context.WithTimeout(context.Background(), rainCheckTimeout)
		defer cancel()

		if s.weather.IsRaining(cctx) {
			s.log.Infow("scheduled irrigation blocked by rain", "entry", entry.Time)
			s.appendEvent(models.EventRainBlocked, fmt.Sprintf("schedule %s suppressed: rain detected", entry.Time), nil)
			return
		}
		s.activate(context.Background(), idx, entry, target)
	}()
}

// activate flips the pump on and arms the shutoff timer. SetPump reports
// changed=false when the pump is already running, which covers the window
// between the tick's snapshot and the rain check resolving.
func (s *SchedulerService) activate(ctx context.Context, idx int, entry models.ScheduleEntry, target time.Time) {
	changed, err := s.store.SetPump(ctx, true)
	if err != nil {
		s.log.Errorw("scheduled activation failed", "entry", entry.Time, "err", err)
		return
	}
	if !changed {
		return
	}

	s.mu.Lock()
	s.lastStart = target
	s.mu.Unlock()

	duration := s.store.Irrigation().DurationMinutes
	s.ArmShutoff(time.Duration(duration) * s.minute)

	s.log.Infow("scheduled irrigation started", "entry", entry.Time, "duration_min", duration)
	s.appendEvent(models.EventScheduleFire, fmt.Sprintf("schedule %s fired", entry.Time), map[string]any{
		"entry":            idx,
		"duration_minutes": duration,
	})
}

// ArmShutoff arms the auto-off timer, superseding any pending one.
func (s *SchedulerService) ArmShutoff(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutoff != nil {
		s.shutoff.Stop()
	}
	s.shutoff = time.AfterFunc(d, s.shutoffFired)
}

// CancelShutoff drops the pending timer, if any. Called on every path that
// turns the pump off outside the timer itself.
func (s *SchedulerService) CancelShutoff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shutoff != nil {
		s.shutoff.Stop()
		s.shutoff = nil
	}
}

func (s *SchedulerService) shutoffFired() {
	s.mu.Lock()
	s.shutoff = nil
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutoffTimeout)
	defer cancel()

	changed, err := s.store.SetPump(ctx, false)
	if err != nil {
		s.log.Errorw("auto shutoff persist failed", "err", err)
	}
	if changed {
		s.log.Infow("irrigation auto shutoff")
		s.appendEvent(models.EventAutoShutoff, "irrigation duration elapsed, pump off", nil)
	}
}

// Status is the diagnostic view served to the UI.
func (s *SchedulerService) Status() ScheduleStatus {
	now := s.now()
	cfg := s.store.Irrigation()
	return ScheduleStatus{
		CurrentTime: now.Format("15:04"),
		CurrentDay:  models.WeekdayTag(now),
		Mode:        cfg.Mode,
		PumpActive:  cfg.PumpActive,
		AvoidRain:   cfg.AvoidRain,
		Duration:    cfg.DurationMinutes,
		Schedules:   cfg.Schedules,
	}
}

func (s *SchedulerService) appendEvent(typ, msg string, meta any) {
	ctx, cancel := context.WithTimeout(context.Background(), shutoffTimeout)
	defer cancel()
	if err := s.events.Append(ctx, models.GatewayEvent{Type: typ, Description: msg, Metadata: meta}); err != nil {
		s.log.Errorw("append event failed", "type", typ, "err", err)
	}
}
