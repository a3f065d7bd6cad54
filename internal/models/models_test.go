package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFlexFloat_Coercion(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want float64
	}{
		{"number", `23.5`, 23.5},
		{"quoted number", `"23.5"`, 23.5},
		{"quoted int", `"412"`, 412},
		{"garbage", `"n/a"`, 0},
		{"null", `null`, 0},
		{"empty string", `""`, 0},
	}
	for _, tc := range cases {
		var f FlexFloat
		if err := json.Unmarshal([]byte(tc.in), &f); err != nil {
			t.Errorf("%s: unmarshal error: %v", tc.name, err)
			continue
		}
		if float64(f) != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, float64(f), tc.want)
		}
	}
}

func TestScheduleEntry_Validate(t *testing.T) {
	cases := []struct {
		name  string
		entry ScheduleEntry
		ok    bool
	}{
		{"valid", ScheduleEntry{Time: "08:00", Days: []string{"mon", "fri"}}, true},
		{"no days", ScheduleEntry{Time: "08:00"}, true},
		{"bad hour", ScheduleEntry{Time: "25:00", Days: []string{"mon"}}, false},
		{"bad minute", ScheduleEntry{Time: "08:75", Days: []string{"mon"}}, false},
		{"missing colon", ScheduleEntry{Time: "0800", Days: []string{"mon"}}, false},
		{"unknown day", ScheduleEntry{Time: "08:00", Days: []string{"monday"}}, false},
		{"duplicate day", ScheduleEntry{Time: "08:00", Days: []string{"mon", "mon"}}, false},
	}
	for _, tc := range cases {
		err := tc.entry.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("%s: Validate() = %v, want ok=%v", tc.name, err, tc.ok)
		}
	}
}

func TestWeekdayTag(t *testing.T) {
	// 2026-08-24 is a Monday.
	monday := time.Date(2026, time.August, 24, 12, 0, 0, 0, time.UTC)
	for i, want := range []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"} {
		if got := WeekdayTag(monday.AddDate(0, 0, i)); got != want {
			t.Errorf("day %d: got %q, want %q", i, got, want)
		}
	}
}

func TestDeviceState_CloneIsDeep(t *testing.T) {
	st := DefaultDeviceState()
	st.Irrigation.Schedules = []ScheduleEntry{{Time: "08:00", Days: []string{"mon"}}}

	cp := st.Clone()
	cp.Lights["kitchen"] = true
	cp.Irrigation.Schedules[0].Time = "09:00"

	if st.Lights["kitchen"] {
		t.Fatalf("light map shared between clone and original")
	}
	if st.Irrigation.Schedules[0].Time != "08:00" {
		t.Fatalf("schedule slice header shared, but entries are values; got %q", st.Irrigation.Schedules[0].Time)
	}
}
