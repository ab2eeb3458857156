package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/travigo/corridor/pkg/alerts"
	"github.com/travigo/corridor/pkg/util"
)

const (
	DefaultScheduleTTL   = 6 * time.Hour
	DefaultFetchTimeout  = 8 * time.Second
	DefaultFetchRetry    = 2 * time.Second
	DefaultRedisDatabase = 0
)

type Config struct {
	ConfigFile string

	GTFSURL string

	TripUpdatesURL      string
	VehiclePositionsURL string
	RealtimeAPIKey      string

	AlertsURL    string
	AlertsFormat alerts.Format

	FreightURL    string
	FreightAPIKey string

	ScheduleTTL  time.Duration
	FetchTimeout time.Duration
	FetchRetry   time.Duration

	RedisAddress  string
	RedisPassword string
	RedisDatabase int
}

// Load reads .env when present and then the CORRIDOR_* environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	return FromEnvironment(util.GetEnvironmentVariables("CORRIDOR_"))
}

func FromEnvironment(env map[string]string) (*Config, error) {
	cfg := &Config{
		ConfigFile:          env["CORRIDOR_CONFIG_FILE"],
		GTFSURL:             env["CORRIDOR_GTFS_URL"],
		TripUpdatesURL:      env["CORRIDOR_TRIP_UPDATES_URL"],
		VehiclePositionsURL: env["CORRIDOR_VEHICLE_POSITIONS_URL"],
		RealtimeAPIKey:      env["CORRIDOR_REALTIME_API_KEY"],
		AlertsURL:           env["CORRIDOR_ALERTS_URL"],
		FreightURL:          env["CORRIDOR_FREIGHT_URL"],
		FreightAPIKey:       env["CORRIDOR_FREIGHT_API_KEY"],
		RedisAddress:        env["CORRIDOR_REDIS_ADDRESS"],
		RedisPassword:       env["CORRIDOR_REDIS_PASSWORD"],
		RedisDatabase:       DefaultRedisDatabase,
	}

	var err error

	if cfg.AlertsFormat, err = alerts.ParseFormat(env["CORRIDOR_ALERTS_FORMAT"]); err != nil {
		return nil, fmt.Errorf("invalid CORRIDOR_ALERTS_FORMAT: %w", err)
	}

	if cfg.ScheduleTTL, err = duration(env, "CORRIDOR_SCHEDULE_TTL", DefaultScheduleTTL); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = duration(env, "CORRIDOR_FETCH_TIMEOUT", DefaultFetchTimeout); err != nil {
		return nil, err
	}
	if cfg.FetchRetry, err = duration(env, "CORRIDOR_FETCH_RETRY", DefaultFetchRetry); err != nil {
		return nil, err
	}

	if value := env["CORRIDOR_REDIS_DATABASE"]; value != "" {
		if cfg.RedisDatabase, err = strconv.Atoi(value); err != nil {
			return nil, fmt.Errorf("invalid CORRIDOR_REDIS_DATABASE %q: %w", value, err)
		}
	}

	return cfg, nil
}

// RealtimeConfigured reports whether live passenger data can be fetched at all.
func (c *Config) RealtimeConfigured() bool {
	return c.RealtimeAPIKey != ""
}

// FreightConfigured reports whether the live freight feed should be queried.
func (c *Config) FreightConfigured() bool {
	return c.FreightURL != "" && c.FreightAPIKey != ""
}

func duration(env map[string]string, key string, fallback time.Duration) (time.Duration, error) {
	value := env[key]
	if value == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, value)
	}

	return d, nil
}
