package models

import (
	"bytes"
	"strconv"
	"time"
)

const (
	// MaxReadings bounds the in-memory reading log (FIFO eviction).
	MaxReadings = 100
	// GasAlertThreshold is the derived-alert cutoff for gas_level.
	GasAlertThreshold = 300.0
)

// SensorReading is one inbound sample from the remote controller.
type SensorReading struct {
	ID          string    `json:"id"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	GasLevel    float64   `json:"gas_level"`
	GasAlert    bool      `json:"gas_alert"`
	Device      string    `json:"device,omitempty"`
	Heartbeat   bool      `json:"heartbeat,omitempty"`
	WifiRSSI    int       `json:"wifi_rssi,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// FlexFloat accepts a JSON number or a numeric string; anything unparseable
// decodes to 0 instead of failing the whole payload. The remote firmware has
// shipped both representations over time.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		unquoted, err := strconv.Unquote(string(b))
		if err != nil {
			*f = 0
			return nil
		}
		b = []byte(unquoted)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexFloat(v)
	return nil
}
