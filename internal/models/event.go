package models

import "time"

// Event types recorded by the gateway.
const (
	EventPumpOn       = "PUMP_ON"
	EventPumpOff      = "PUMP_OFF"
	EventScheduleFire = "SCHEDULE_FIRE"
	EventRainBlocked  = "RAIN_BLOCKED"
	EventAutoShutoff  = "AUTO_SHUTOFF"
	EventConfigSaved  = "CONFIG_SAVED"
	EventModeChange   = "MODE_CHANGE"
	EventReset        = "RESET"
	EventLinkUp       = "LINK_UP"
	EventLinkDown     = "LINK_DOWN"
)

// GatewayEvent is a single append-only log entry.
type GatewayEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
