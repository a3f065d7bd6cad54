package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"home_gateway/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
)

const (
	defaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5/weather"
	defaultWeatherTimeout = 8 * time.Second
	defaultWeatherTTL     = 10 * time.Minute
	weatherMaxRetries     = 2
)

// rainKeywords gate irrigation: a condition containing any of these counts
// as rain. "thunder" also catches "thunderstorm".
var rainKeywords = []string{"rain", "drizzle", "storm", "thunder"}

type WeatherConfig struct {
	APIKey   string
	Lat, Lon float64
	BaseURL  string        // override for tests
	Timeout  time.Duration // per-fetch bound
	CacheTTL time.Duration
}

// WeatherService wraps the upstream weather lookup. Any failure (missing
// key, network error, breaker open, non-2xx) makes IsRaining answer false:
// the system prefers irrigating in unknown weather over silently sticking.
type WeatherService struct {
	cfg     WeatherConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger

	now func() time.Time

	// Single-slot read-through cache: the system only ever queries one
	// fixed location.
	mu       sync.Mutex
	cached   WeatherInfo
	cachedAt time.Time
}

func NewWeatherService(cfg WeatherConfig, log *logger.Logger) *WeatherService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultWeatherBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWeatherTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultWeatherTTL
	}
	return &WeatherService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     "openweather",
			Interval: time.Minute,
			Timeout:  30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
		log: log,
		now: time.Now,
	}
}

// IsRaining reports whether the fixed location currently has precipitation.
// The answer is cached for the configured TTL to avoid hammering the
// upstream from a 10-second scheduler tick.
func (s *WeatherService) IsRaining(ctx context.Context) bool {
	info, err := s.Current(ctx)
	if err != nil {
		s.log.Infow("weather unavailable, assuming dry", "err", err)
		return false
	}
	return info.Raining
}

// Current returns the cached conditions, fetching when the slot is stale.
func (s *WeatherService) Current(ctx context.Context) (WeatherInfo, error) {
	s.mu.Lock()
	if !s.cachedAt.IsZero() && s.now().Sub(s.cachedAt) < s.cfg.CacheTTL {
		info := s.cached
		s.mu.Unlock()
		return info, nil
	}
	s.mu.Unlock()

	info, err := s.fetch(ctx)
	if err != nil {
		return WeatherInfo{}, err
	}

	s.mu.Lock()
	s.cached = info
	s.cachedAt = s.now()
	s.mu.Unlock()
	return info, nil
}

// owmResponse is the slice of the OpenWeatherMap payload we consume.
type owmResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
}

func (s *WeatherService) fetch(ctx context.Context) (WeatherInfo, error) {
	if s.cfg.APIKey == "" {
		return WeatherInfo{}, fmt.Errorf("weather api key not configured")
	}

	var out owmResponse
	op := func() error {
		res, err := s.breaker.Execute(func() (interface{}, error) {
			return s.fetchOnce(ctx)
		})
		if err != nil {
			// An open breaker will not heal within this fetch; stop retrying.
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res.(owmResponse)
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), weatherMaxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return WeatherInfo{}, err
	}

	if len(out.Weather) == 0 {
		return WeatherInfo{}, fmt.Errorf("weather payload missing conditions")
	}

	condition := strings.ToLower(out.Weather[0].Main)
	return WeatherInfo{
		Condition:   condition,
		Description: out.Weather[0].Description,
		TempC:       out.Main.Temp,
		Humidity:    out.Main.Humidity,
		Raining:     conditionIsRain(condition),
	}, nil
}

func (s *WeatherService) fetchOnce(ctx context.Context) (owmResponse, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", s.cfg.Lat))
	q.Set("lon", fmt.Sprintf("%f", s.cfg.Lon))
	q.Set("appid", s.cfg.APIKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return owmResponse{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return owmResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return owmResponse{}, fmt.Errorf("weather upstream status %d: %s", resp.StatusCode, string(b))
	}

	var out owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return owmResponse{}, err
	}
	return out, nil
}

func conditionIsRain(condition string) bool {
	for _, kw := range rainKeywords {
		if strings.Contains(condition, kw) {
			return true
		}
	}
	return false
}
