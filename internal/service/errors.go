package service

import "errors"

// Command failure taxonomy. Handlers map these to status codes with
// errors.Is; everything else is an internal error.
var (
	ErrUnknownCategory = errors.New("unknown device category")
	ErrUnknownDevice   = errors.New("unknown device key")
	ErrInvalidConfig   = errors.New("invalid irrigation config")
	ErrWeatherBlocked  = errors.New("irrigation blocked: rain detected")
	ErrDeviceOffline   = errors.New("remote controller offline")

	// ErrPersist wraps durable-write failures. The in-memory mutation stands;
	// the caller decides how loudly to fail.
	ErrPersist = errors.New("state not persisted")
)
