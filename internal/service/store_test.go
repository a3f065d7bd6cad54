package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"home_gateway/internal/logger"
	"home_gateway/internal/models"
	"home_gateway/internal/repository"
)

// ---- shared fakes for service tests ----

var (
	_ repository.StateRepo = (*fakeStateRepo)(nil)
	_ repository.EventRepo = (*fakeEventRepo)(nil)
)

type fakeStateRepo struct {
	loadResp   models.DeviceState
	loadErr    error
	saveErr    error
	savedCalls []models.DeviceState
}

func (f *fakeStateRepo) Load(ctx context.Context) (models.DeviceState, error) {
	return f.loadResp, f.loadErr
}

func (f *fakeStateRepo) Save(ctx context.Context, s models.DeviceState) error {
	f.savedCalls = append(f.savedCalls, s.Clone())
	return f.saveErr
}

type fakeEventRepo struct {
	mu        sync.Mutex
	appendErr error
	events    []models.GatewayEvent
}

func (f *fakeEventRepo) Append(ctx context.Context, e models.GatewayEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.appendErr
}

func (f *fakeEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.GatewayEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.GatewayEvent, 0, len(f.events))
	for _, e := range f.events {
		if typ != "" && e.Type != typ {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEventRepo) typesSeen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.Type)
	}
	return types
}

func newTestStore(t *testing.T, repo *fakeStateRepo) *DeviceStore {
	t.Helper()
	store := NewDeviceStore(repo, logger.Get(logger.ErrorLevel))
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load(): %v", err)
	}
	return store
}

func lastSaved(t *testing.T, f *fakeStateRepo) models.DeviceState {
	t.Helper()
	if len(f.savedCalls) == 0 {
		t.Fatalf("expected at least one Save call")
	}
	return f.savedCalls[len(f.savedCalls)-1]
}

// ---- tests ----

func TestDeviceStore_LoadFallsBackToDefaults(t *testing.T) {
	repo := &fakeStateRepo{loadErr: errors.New("corrupt document")}
	store := newTestStore(t, repo)

	st := store.Snapshot()
	if len(st.Lights) != 7 {
		t.Fatalf("expected 7 default lights, got %d", len(st.Lights))
	}
	if len(st.Outlets) != 5 {
		t.Fatalf("expected 5 default outlets, got %d", len(st.Outlets))
	}
	if st.Irrigation.Mode != models.ModeManual || !st.Irrigation.AvoidRain || st.Irrigation.DurationMinutes != 5 {
		t.Fatalf("unexpected default irrigation config: %+v", st.Irrigation)
	}
}

func TestDeviceStore_LoadUsesPersistedDocument(t *testing.T) {
	prior := models.DefaultDeviceState()
	prior.Lights["kitchen"] = true
	prior.Irrigation.Mode = models.ModeAutomatic
	repo := &fakeStateRepo{loadResp: prior}
	store := newTestStore(t, repo)

	st := store.Snapshot()
	if !st.Lights["kitchen"] {
		t.Fatalf("expected kitchen light restored on")
	}
	if st.Irrigation.Mode != models.ModeAutomatic {
		t.Fatalf("expected automatic mode restored, got %q", st.Irrigation.Mode)
	}
}

func TestDeviceStore_SetSwitchMutatesAndPersists(t *testing.T) {
	repo := &fakeStateRepo{}
	store := newTestStore(t, repo)

	if err := store.SetSwitch(context.Background(), models.CategoryLights, "kitchen", true); err != nil {
		t.Fatalf("SetSwitch(): %v", err)
	}
	if !store.Snapshot().Lights["kitchen"] {
		t.Fatalf("mutation not visible in snapshot")
	}
	if !lastSaved(t, repo).Lights["kitchen"] {
		t.Fatalf("mutation not persisted")
	}
}

func TestDeviceStore_SetSwitchRejectsUnknownPath(t *testing.T) {
	store := newTestStore(t, &fakeStateRepo{})

	if err := store.SetSwitch(context.Background(), models.CategoryLights, "garage", true); !errors.Is(err, ErrUnknownDevice) {
		t.Fatalf("expected ErrUnknownDevice, got %v", err)
	}
	if err := store.SetSwitch(context.Background(), "garden", "kitchen", true); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestDeviceStore_PersistFailureKeepsMutationAndReportsError(t *testing.T) {
	repo := &fakeStateRepo{saveErr: errors.New("disk full")}
	store := newTestStore(t, repo)

	err := store.SetSwitch(context.Background(), models.CategoryLights, "kitchen", true)
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	// Write-through: the in-memory value stands.
	if !store.Snapshot().Lights["kitchen"] {
		t.Fatalf("expected in-memory mutation to survive persist failure")
	}
}

func TestDeviceStore_SetPumpIsIdempotent(t *testing.T) {
	repo := &fakeStateRepo{}
	store := newTestStore(t, repo)

	changed, err := store.SetPump(context.Background(), true)
	if err != nil || !changed {
		t.Fatalf("first SetPump: changed=%v err=%v", changed, err)
	}
	saves := len(repo.savedCalls)

	changed, err = store.SetPump(context.Background(), true)
	if err != nil || changed {
		t.Fatalf("second SetPump: changed=%v err=%v", changed, err)
	}
	if len(repo.savedCalls) != saves {
		t.Fatalf("no-op SetPump should not persist")
	}
}

func TestDeviceStore_ReadingLogIsBoundedNewestFirst(t *testing.T) {
	repo := &fakeStateRepo{}
	store := newTestStore(t, repo)

	for i := 0; i < 150; i++ {
		r := models.SensorReading{ID: fmt.Sprintf("r%d", i), Temperature: float64(i)}
		if err := store.AppendReading(context.Background(), r); err != nil {
			t.Fatalf("AppendReading(%d): %v", i, err)
		}
	}

	readings := store.Readings()
	if len(readings) != models.MaxReadings {
		t.Fatalf("expected %d readings, got %d", models.MaxReadings, len(readings))
	}
	if readings[0].ID != "r149" {
		t.Fatalf("expected newest first, got %s", readings[0].ID)
	}
	if readings[len(readings)-1].ID != "r50" {
		t.Fatalf("expected oldest evicted, tail is %s", readings[len(readings)-1].ID)
	}
}

func TestDeviceStore_MergeConfirmIgnoresUnknownKeysAndReportsPump(t *testing.T) {
	repo := &fakeStateRepo{}
	store := newTestStore(t, repo)

	pump := true
	on, off, err := store.MergeConfirm(context.Background(),
		map[string]bool{"kitchen": true, "garage": true},
		nil, &pump, nil)
	if err != nil {
		t.Fatalf("MergeConfirm(): %v", err)
	}
	if !on || off {
		t.Fatalf("expected pump-on transition, got on=%v off=%v", on, off)
	}

	st := store.Snapshot()
	if !st.Lights["kitchen"] {
		t.Fatalf("known key not merged")
	}
	if _, ok := st.Lights["garage"]; ok {
		t.Fatalf("unknown key must not be introduced")
	}
	if !st.Irrigation.PumpActive {
		t.Fatalf("pump state not merged")
	}
}

func TestDeviceStore_ResetAllTurnsEverythingOff(t *testing.T) {
	repo := &fakeStateRepo{}
	store := newTestStore(t, repo)

	_ = store.SetSwitch(context.Background(), models.CategoryLights, "kitchen", true)
	_, _ = store.SetPump(context.Background(), true)

	if err := store.ResetAll(context.Background()); err != nil {
		t.Fatalf("ResetAll(): %v", err)
	}
	st := store.Snapshot()
	for k, v := range st.Lights {
		if v {
			t.Fatalf("light %s still on after reset", k)
		}
	}
	if st.Irrigation.PumpActive {
		t.Fatalf("pump still on after reset")
	}
}

func TestDeviceStore_SnapshotIsACopy(t *testing.T) {
	store := newTestStore(t, &fakeStateRepo{})

	snap := store.Snapshot()
	snap.Lights["kitchen"] = true

	if store.Snapshot().Lights["kitchen"] {
		t.Fatalf("snapshot mutation leaked into the store")
	}
}
