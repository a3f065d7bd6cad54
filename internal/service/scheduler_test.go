package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"home_gateway/internal/logger"
	"home_gateway/internal/models"
)

type fakeWeather struct {
	mu      sync.Mutex
	raining bool
	calls   int
}

func (f *fakeWeather) IsRaining(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.raining
}

func (f *fakeWeather) Current(ctx context.Context) (WeatherInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return WeatherInfo{Raining: f.raining}, nil
}

func (f *fakeWeather) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var _ Weather = (*fakeWeather)(nil)

// mondayMorning is a Monday, 30 seconds past 08:00.
var mondayMorning = time.Date(2026, time.August, 24, 8, 0, 30, 0, time.UTC)

func newTestScheduler(t *testing.T, cfg models.IrrigationConfig, weather Weather) (*SchedulerService, *DeviceStore, *fakeEventRepo) {
	t.Helper()
	store := newTestStore(t, &fakeStateRepo{})
	if err := store.ReplaceIrrigation(context.Background(), cfg); err != nil {
		t.Fatalf("ReplaceIrrigation(): %v", err)
	}
	events := &fakeEventRepo{}
	s := NewSchedulerService(store, weather, events, DefaultTolerance, logger.Get(logger.ErrorLevel))
	s.now = func() time.Time { return mondayMorning }
	s.minute = 10 * time.Millisecond
	return s, store, events
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func autoConfig(avoidRain bool, schedules ...models.ScheduleEntry) models.IrrigationConfig {
	return models.IrrigationConfig{
		Mode:            models.ModeAutomatic,
		AvoidRain:       avoidRain,
		DurationMinutes: 5,
		Schedules:       schedules,
	}
}

func TestScheduler_FiresMatchingEntry(t *testing.T) {
	s, store, events := newTestScheduler(t,
		autoConfig(false, models.ScheduleEntry{Time: "08:00", Days: []string{"mon"}}),
		&fakeWeather{})

	s.evaluate(context.Background())
	s.CancelShutoff()

	if !store.Irrigation().PumpActive {
		t.Fatalf("expected pump on after matching tick")
	}
	types := events.typesSeen()
	if len(types) != 1 || types[0] != models.EventScheduleFire {
		t.Fatalf("expected a single %s event, got %v", models.EventScheduleFire, types)
	}
}

func TestScheduler_SkipsInManualMode(t *testing.T) {
	cfg := autoConfig(false, models.ScheduleEntry{Time: "08:00", Days: []string{"mon"}})
	cfg.Mode = models.ModeManual
	s, store, _ := newTestScheduler(t, cfg, &fakeWeather{})

	s.evaluate(context.Background())

	if store.Irrigation().PumpActive {
		t.Fatalf("manual mode must not fire schedules")
	}
}

func TestScheduler_SkipsWhenDayDoesNotMatch(t *testing.T) {
	s, store, _ := newTestScheduler(t,
		autoConfig(false, models.ScheduleEntry{Time: "08:00", Days: []string{"tue", "thu"}}),
		&fakeWeather{})

	s.evaluate(context.Background())

	if store.Irrigation().PumpActive {
		t.Fatalf("entry for other days must not fire on Monday")
	}
}

func TestScheduler_SkipsOutsideToleranceWindow(t *testing.T) {
	s, store, _ := newTestScheduler(t,
		autoConfig(false, models.ScheduleEntry{Time: "09:30", Days: []string{"mon"}}),
		&fakeWeather{})

	s.evaluate(context.Background())

	if store.Irrigation().PumpActive {
		t.Fatalf("entry 90 minutes away must not fire")
	}
}

func TestScheduler_FirstMatchingEntryWins(t *testing.T) {
	s, store, events := newTestScheduler(t,
		autoConfig(false,
			models.ScheduleEntry{Time: "08:00", Days: []string{"mon"}},
			models.ScheduleEntry{Time: "08:01", Days: []string{"mon"}}),
		&fakeWeather{})

	s.evaluate(context.Background())
	s.CancelShutoff()

	if !store.Irrigation().PumpActive {
		t.Fatalf("expected pump on")
	}
	if types := events.typesSeen(); len(types) != 1 {
		t.Fatalf("expected one activation, got events %v", types)
	}
}

func TestScheduler_RainSuppressesActivation(t *testing.T) {
	s, store, events := newTestScheduler(t,
		autoConfig(true, models.ScheduleEntry{Time: "08:00", Days: []string{"mon"}}),
		&fakeWeather{raining: true})

	s.evaluate(context.Background())

	waitFor(t, time.Second, "rain-blocked event", func() bool {
		types := events.typesSeen()
		return len(types) == 1 && types[0] == models.EventRainBlocked
	})
	if store.Irrigation().PumpActive {
		t.Fatalf("pump must stay off when it is raining")
	}
}

func TestScheduler_DryForecastActivates(t *testing.T) {
	weather := &fakeWeather{raining: false}
	s, store, events := newTestScheduler(t,
		autoConfig(true, models.ScheduleEntry{Time: "08:00", Days: []string{"mon"}}),
		weather)

	s.evaluate(context.Background())

	waitFor(t, time.Second, "pump on", func() bool {
		return store.Irrigation().PumpActive
	})
	s.CancelShutoff()
	if weather.callCount() != 1 {
		t.Fatalf("expected exactly one rain check, got %d", weather.callCount())
	}
	types := events.typesSeen()
	if len(types) != 1 || types[0] != models.EventScheduleFire {
		t.Fatalf("expected schedule-fire event, got %v", types)
	}
}

func TestScheduler_AutoShutoffAfterDuration(t *testing.T) {
	cfg := autoConfig(false, models.ScheduleEntry{Time: "08:00", Days: []string{"mon"}})
	cfg.DurationMinutes = 3
	s, store, events := newTestScheduler(t, cfg, &fakeWeather{})

	s.evaluate(context.Background())
	if !store.Irrigation().PumpActive {
		t.Fatalf("expected pump on")
	}

	// 3 compressed minutes at 10ms each.
	waitFor(t, time.Second, "auto shutoff", func() bool {
		return !store.Irrigation().PumpActive
	})
	waitFor(t, time.Second, "shutoff event", func() bool {
		for _, typ := range events.typesSeen() {
			if typ == models.EventAutoShutoff {
				return true
			}
		}
		return false
	})
}

func TestScheduler_SlotFiresOnceEvenWhenRunEndsInsideWindow(t *testing.T) {
	cfg := autoConfig(false, models.ScheduleEntry{Time: "08:00", Days: []string{"mon"}})
	cfg.DurationMinutes = 1
	s, store, events := newTestScheduler(t, cfg, &fakeWeather{})

	s.evaluate(context.Background())
	if !store.Irrigation().PumpActive {
		t.Fatalf("expected pump on")
	}
	waitFor(t, time.Second, "auto shutoff", func() bool {
		return !store.Irrigation().PumpActive
	})

	// Still inside the 08:00 tolerance window; the slot already ran.
	s.evaluate(context.Background())
	if store.Irrigation().PumpActive {
		t.Fatalf("slot restarted the pump after its run ended")
	}
	fires := 0
	for _, typ := range events.typesSeen() {
		if typ == models.EventScheduleFire {
			fires++
		}
	}
	if fires != 1 {
		t.Fatalf("expected one activation, got %d", fires)
	}
}

func TestScheduler_RunningPumpIsNotRearmed(t *testing.T) {
	cfg := autoConfig(false, models.ScheduleEntry{Time: "08:00", Days: []string{"mon"}})
	cfg.DurationMinutes = 6
	s, store, events := newTestScheduler(t, cfg, &fakeWeather{})

	s.evaluate(context.Background())
	if !store.Irrigation().PumpActive {
		t.Fatalf("expected pump on")
	}

	// A second matching tick while the pump runs must not restart the clock.
	s.evaluate(context.Background())

	waitFor(t, time.Second, "auto shutoff", func() bool {
		return !store.Irrigation().PumpActive
	})
	fires := 0
	for _, typ := range events.typesSeen() {
		if typ == models.EventScheduleFire {
			fires++
		}
	}
	if fires != 1 {
		t.Fatalf("expected one schedule fire, got %d", fires)
	}
}

func TestScheduler_CancelShutoffKeepsPumpOn(t *testing.T) {
	cfg := autoConfig(false, models.ScheduleEntry{Time: "08:00", Days: []string{"mon"}})
	cfg.DurationMinutes = 2
	s, store, _ := newTestScheduler(t, cfg, &fakeWeather{})
	s.minute = 50 * time.Millisecond

	s.evaluate(context.Background())
	s.CancelShutoff()

	time.Sleep(250 * time.Millisecond)
	if !store.Irrigation().PumpActive {
		t.Fatalf("cancelled timer must not turn the pump off")
	}
}

func TestScheduler_EntryDue(t *testing.T) {
	s, _, _ := newTestScheduler(t, autoConfig(false), &fakeWeather{})

	cases := []struct {
		name  string
		entry string
		now   time.Time
		want  bool
	}{
		{"exact minute", "08:00", mondayMorning, true},
		{"edge of window", "08:01", time.Date(2026, time.August, 24, 8, 0, 0, 0, time.UTC), true},
		{"just outside", "08:02", time.Date(2026, time.August, 24, 8, 0, 59, 0, time.UTC), false},
		{"before target", "08:01", time.Date(2026, time.August, 24, 8, 0, 30, 0, time.UTC), true},
		{"unparseable", "8h00", mondayMorning, false},
	}
	for _, tc := range cases {
		got := s.entryDue(models.ScheduleEntry{Time: tc.entry, Days: []string{"mon"}}, tc.now)
		if got != tc.want {
			t.Errorf("%s: entryDue(%q at %s) = %v, want %v", tc.name, tc.entry, tc.now.Format("15:04:05"), got, tc.want)
		}
	}
}

func TestScheduler_StatusReflectsConfig(t *testing.T) {
	s, _, _ := newTestScheduler(t,
		autoConfig(true, models.ScheduleEntry{Time: "06:30", Days: []string{"mon", "fri"}}),
		&fakeWeather{})

	st := s.Status()
	if st.CurrentTime != "08:00" || st.CurrentDay != "mon" {
		t.Fatalf("unexpected clock view: %+v", st)
	}
	if st.Mode != models.ModeAutomatic || !st.AvoidRain || st.PumpActive {
		t.Fatalf("unexpected config view: %+v", st)
	}
	if len(st.Schedules) != 1 || st.Schedules[0].Time != "06:30" {
		t.Fatalf("unexpected schedules: %+v", st.Schedules)
	}
}
