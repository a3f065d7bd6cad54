package service

import (
	"context"
	"sync"
	"time"

	"home_gateway/internal/logger"
	"home_gateway/internal/models"
	"home_gateway/internal/repository"
)

const defaultLinkCheck = 60 * time.Second

// LinkService derives remote-controller connectivity from contact recency.
// Connected is evaluated lazily on every read and re-checked by a periodic
// tick so disconnects get logged even when nobody is reading.
type LinkService struct {
	timeout time.Duration
	events  repository.EventRepo
	log     *logger.Logger
	now     func() time.Time

	mu            sync.Mutex
	deviceID      string
	ipAddress     string
	lastHeartbeat time.Time
	seen          bool
	wasConnected  bool
}

func NewLinkService(timeout time.Duration, events repository.EventRepo, log *logger.Logger) *LinkService {
	if timeout <= 0 {
		timeout = models.LinkTimeout
	}
	return &LinkService{
		timeout: timeout,
		events:  events,
		log:     log,
		now:     time.Now,
	}
}

// Touch records inbound contact from the remote controller. Any device
// endpoint counts as a heartbeat. The event write happens after the lock
// is released so reads never wait on the database.
func (s *LinkService) Touch(deviceID, ip string) {
	s.mu.Lock()
	if deviceID != "" {
		s.deviceID = deviceID
	}
	if ip != "" {
		s.ipAddress = ip
	}
	s.lastHeartbeat = s.now()
	s.seen = true
	cameUp := !s.wasConnected
	if cameUp {
		s.wasConnected = true
	}
	device, addr := s.deviceID, s.ipAddress
	s.mu.Unlock()

	if cameUp {
		s.log.Infow("remote controller connected", "device", device, "ip", addr)
		s.appendEvent(models.EventLinkUp, "remote controller reachable")
	}
}

// Connected reports liveness: contact within the timeout window.
func (s *LinkService) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedLocked()
}

// Status returns the full volatile link record.
func (s *LinkService) Status() models.DeviceLinkStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.DeviceLinkStatus{
		Connected:       s.connectedLocked(),
		DeviceID:        s.deviceID,
		IPAddress:       s.ipAddress,
		LastHeartbeatAt: s.lastHeartbeat,
	}
}

// Run re-evaluates liveness on an interval, logging and recording the
// connected -> disconnected transition.
func (s *LinkService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultLinkCheck
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.check()
		}
	}
}

func (s *LinkService) check() {
	s.mu.Lock()
	wentDown := s.wasConnected && !s.connectedLocked()
	if wentDown {
		s.wasConnected = false
	}
	device, last := s.deviceID, s.lastHeartbeat
	s.mu.Unlock()

	if wentDown {
		s.log.Warnw("remote controller link timed out",
			"device", device,
			"last_heartbeat", last,
		)
		s.appendEvent(models.EventLinkDown, "remote controller silent beyond timeout")
	}
}

func (s *LinkService) connectedLocked() bool {
	return s.seen && s.now().Sub(s.lastHeartbeat) <= s.timeout
}

func (s *LinkService) appendEvent(typ, msg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.Append(ctx, models.GatewayEvent{Type: typ, Description: msg}); err != nil {
		s.log.Errorw("append event failed", "type", typ, "err", err)
	}
}
