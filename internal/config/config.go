package config

import (
	"fmt"
	"os"
	"strconv"

	"congresshub-backend/lib/configutil"
)

const (
	DefaultQuotaPerHour = 5000
	DefaultCycleTimeout = 1800
	DefaultGraceCycles  = 2
)

// Config is everything the ingestion core needs to run one cycle. Values
// come from an optional ingest.json5 found by walking up from the cwd,
// overridden by environment variables.
type Config struct {
	ApiKey      string `json:"api_key"`
	BaseUrl     string `json:"base_url"`
	DatabaseUrl string `json:"database_url"`
	// LeadershipUrl is the static page scraped for committee leadership the
	// JSON API omits.
	LeadershipUrl string `json:"leadership_url"`
	// TargetCongress 0 means "latest", resolved against the upstream.
	TargetCongress      int `json:"target_congress"`
	QuotaPerHour        int `json:"quota_per_hour"`
	CycleTimeoutSeconds int `json:"cycle_timeout_seconds"`
	GraceCycles         int `json:"grace_cycles"`
}

func intFromEnv(out *int, name string) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	*out = v
	return nil
}

// Load reads ingest.json5 (if present) and applies environment overrides.
// A missing config file is fine as long as the environment provides the
// required values.
func Load() (Config, error) {
	cfg, err := configutil.ReadRecursively[Config]("ingest.json5")
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}

	if v := os.Getenv("UPSTREAM_API_KEY"); v != "" {
		cfg.ApiKey = v
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		cfg.BaseUrl = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseUrl = v
	}
	if v := os.Getenv("LEADERSHIP_URL"); v != "" {
		cfg.LeadershipUrl = v
	}
	err = intFromEnv(&cfg.TargetCongress, "TARGET_CONGRESS")
	if err != nil {
		return Config{}, err
	}
	err = intFromEnv(&cfg.QuotaPerHour, "REQUEST_QUOTA_PER_HOUR")
	if err != nil {
		return Config{}, err
	}
	err = intFromEnv(&cfg.CycleTimeoutSeconds, "CYCLE_TIMEOUT_SECONDS")
	if err != nil {
		return Config{}, err
	}
	err = intFromEnv(&cfg.GraceCycles, "DEACTIVATION_GRACE_CYCLES")
	if err != nil {
		return Config{}, err
	}

	if cfg.QuotaPerHour == 0 {
		cfg.QuotaPerHour = DefaultQuotaPerHour
	}
	if cfg.CycleTimeoutSeconds == 0 {
		cfg.CycleTimeoutSeconds = DefaultCycleTimeout
	}
	if cfg.GraceCycles == 0 {
		cfg.GraceCycles = DefaultGraceCycles
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.ApiKey == "" {
		return fmt.Errorf("UPSTREAM_API_KEY is not set")
	}
	if c.BaseUrl == "" {
		return fmt.Errorf("upstream base_url is not set")
	}
	if c.DatabaseUrl == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if c.QuotaPerHour < 0 {
		return fmt.Errorf("request quota must be positive, got %d", c.QuotaPerHour)
	}
	if c.GraceCycles < 1 {
		return fmt.Errorf("grace cycles must be at least 1, got %d", c.GraceCycles)
	}
	return nil
}
