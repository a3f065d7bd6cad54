package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"home_gateway/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newEventMock(t *testing.T) (*EventSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewEventSQLite(db), mock
}

func TestEventAppend_FillsDefaultsAndNormalizesType(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	mock.ExpectExec("INSERT INTO gateway_events").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "PUMP_ON", "pump turned on", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(testCtx(t), models.GatewayEvent{
		Type:        "  pump_on ",
		Description: "pump turned on",
		Metadata:    map[string]any{"duration_minutes": 5},
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestEventAppend_NilMetadataStoresNull(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	mock.ExpectExec("INSERT INTO gateway_events").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "RESET", "all devices turned off", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Append(testCtx(t), models.GatewayEvent{
		Type:        models.EventReset,
		Description: "all devices turned off",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestEventAppend_DBError(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	mock.ExpectExec("INSERT INTO gateway_events").
		WillReturnError(errors.New("locked"))

	err := repo.Append(testCtx(t), models.GatewayEvent{Type: models.EventPumpOn, Description: "x"})
	if err == nil || !strings.Contains(err.Error(), "locked") {
		t.Fatalf("expected db error, got %v", err)
	}
}

func TestEventList_NoFiltersParsesMetadata(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	now := time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC)
	meta, _ := json.Marshal(map[string]any{"entry": 0})

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("e1", now, "SCHEDULE_FIRE", "schedule 08:00 fired", string(meta)).
		AddRow("e2", now.Add(5*time.Minute), "AUTO_SHUTOFF", "pump off", nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, occurred_at, type, message, meta FROM gateway_events ORDER BY occurred_at ASC`)).
		WillReturnRows(rows)

	got, err := repo.List(testCtx(t), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 events, got %d", len(got))
	}
	if got[0].Metadata == nil || got[1].Metadata != nil {
		t.Fatalf("metadata parsing wrong: %+v", got)
	}
}

func TestEventList_AppliesFilters(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	from := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, occurred_at, type, message, meta FROM gateway_events WHERE occurred_at >= ? AND occurred_at <= ? AND type = ? ORDER BY occurred_at ASC`)).
		WithArgs(from, to, "PUMP_ON").
		WillReturnRows(sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}))

	got, err := repo.List(testCtx(t), from, to, "pump_on")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestEventList_KeepsRawMalformedMetadata(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	rows := sqlmock.NewRows([]string{"id", "occurred_at", "type", "message", "meta"}).
		AddRow("e1", time.Now().UTC(), "RAIN_BLOCKED", "m", "{broken")

	mock.ExpectQuery("SELECT id, occurred_at, type, message, meta FROM gateway_events").
		WillReturnRows(rows)

	got, err := repo.List(testCtx(t), time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if s, ok := got[0].Metadata.(string); !ok || s != "{broken" {
		t.Fatalf("malformed metadata should pass through raw, got %#v", got[0].Metadata)
	}
}

func TestEventList_RowError(t *testing.T) {
	t.Parallel()
	repo, mock := newEventMock(t)

	mock.ExpectQuery("SELECT id, occurred_at, type, message, meta FROM gateway_events").
		WillReturnError(sql.ErrConnDone)

	if _, err := repo.List(testCtx(t), time.Time{}, time.Time{}, ""); err == nil {
		t.Fatalf("expected query error")
	}
}
