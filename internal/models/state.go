package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Irrigation modes.
const (
	ModeManual    = "manual"
	ModeAutomatic = "automatic"
)

// Device categories accepted by the control API.
const (
	CategoryLights     = "lights"
	CategoryOutlets    = "outlets"
	CategoryIrrigation = "irrigation"
)

// PumpKey is the only controllable key in the irrigation category.
const PumpKey = "pump"

// DeviceState is the whole persisted document: actuator booleans, the
// irrigation configuration and the bounded sensor reading log.
type DeviceState struct {
	Lights     map[string]bool  `json:"lights"`
	Outlets    map[string]bool  `json:"outlets"`
	Irrigation IrrigationConfig `json:"irrigation"`
	Readings   []SensorReading  `json:"readings,omitempty"`
}

// IrrigationConfig holds the pump ground truth plus scheduling policy.
type IrrigationConfig struct {
	PumpActive      bool            `json:"pump_active"`
	Mode            string          `json:"mode"` // manual | automatic
	AvoidRain       bool            `json:"avoid_rain"`
	DurationMinutes int             `json:"duration_minutes"`
	Schedules       []ScheduleEntry `json:"schedules"`
}

// ScheduleEntry is one (time-of-day, weekday-set) trigger for automatic
// irrigation. Time is "HH:MM" in 24-hour local time.
type ScheduleEntry struct {
	Time string   `json:"time"`
	Days []string `json:"days"`
}

// weekdayTags is indexed by time.Weekday (Sunday = 0).
var weekdayTags = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// WeekdayTag returns the schedule tag for t's weekday.
func WeekdayTag(t time.Time) string {
	return weekdayTags[int(t.Weekday())]
}

// ValidWeekday reports whether tag is one of the seven known tags.
func ValidWeekday(tag string) bool {
	for _, d := range weekdayTags {
		if d == tag {
			return true
		}
	}
	return false
}

// Clock parses the entry time into hour and minute, rejecting anything that
// is not a valid 24-hour HH:MM pair.
func (e ScheduleEntry) Clock() (hour, minute int, err error) {
	parts := strings.SplitN(e.Time, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("schedule time %q: want HH:MM", e.Time)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("schedule time %q: bad hour", e.Time)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("schedule time %q: bad minute", e.Time)
	}
	return hour, minute, nil
}

// Validate checks the entry invariants: parseable time, known weekday tags,
// no duplicate tags. An empty day set is legal (the entry never fires).
func (e ScheduleEntry) Validate() error {
	if _, _, err := e.Clock(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(e.Days))
	for _, d := range e.Days {
		if !ValidWeekday(d) {
			return fmt.Errorf("schedule %q: unknown weekday %q", e.Time, d)
		}
		if seen[d] {
			return fmt.Errorf("schedule %q: duplicate weekday %q", e.Time, d)
		}
		seen[d] = true
	}
	return nil
}

// FiresOn reports whether the entry is eligible on the given weekday tag.
func (e ScheduleEntry) FiresOn(tag string) bool {
	for _, d := range e.Days {
		if d == tag {
			return true
		}
	}
	return false
}

// DefaultDeviceState is the hard-coded schema used when no prior state can be
// loaded: 7 lights, 5 outlets, pump off in manual mode with rain avoidance on.
func DefaultDeviceState() DeviceState {
	return DeviceState{
		Lights: map[string]bool{
			"living_room": false,
			"bedroom_1":   false,
			"bedroom_2":   false,
			"bedroom_3":   false,
			"hallway":     false,
			"kitchen":     false,
			"bathroom":    false,
		},
		Outlets: map[string]bool{
			"living_room_outlet": false,
			"kitchen_outlet":     false,
			"bedroom_1_outlet":   false,
			"bedroom_2_outlet":   false,
			"bedroom_3_outlet":   false,
		},
		Irrigation: IrrigationConfig{
			PumpActive:      false,
			Mode:            ModeManual,
			AvoidRain:       true,
			DurationMinutes: 5,
			Schedules:       []ScheduleEntry{},
		},
		Readings: []SensorReading{},
	}
}

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the store's internal maps.
func (s DeviceState) Clone() DeviceState {
	out := s
	out.Lights = make(map[string]bool, len(s.Lights))
	for k, v := range s.Lights {
		out.Lights[k] = v
	}
	out.Outlets = make(map[string]bool, len(s.Outlets))
	for k, v := range s.Outlets {
		out.Outlets[k] = v
	}
	out.Irrigation.Schedules = append([]ScheduleEntry(nil), s.Irrigation.Schedules...)
	out.Readings = append([]SensorReading(nil), s.Readings...)
	return out
}
