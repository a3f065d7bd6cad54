package models

import "time"

// LinkTimeout is how long the remote controller may stay silent before the
// link is considered down.
const LinkTimeout = 120 * time.Second

// DeviceLinkStatus is the derived connectivity state of the remote
// controller. Volatile; never persisted.
type DeviceLinkStatus struct {
	Connected       bool      `json:"connected"`
	DeviceID        string    `json:"device_id,omitempty"`
	IPAddress       string    `json:"ip_address,omitempty"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at,omitempty"`
}
