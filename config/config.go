// Package config resolves voltbridge's runtime configuration from VOLTBRIDGE_-prefixed
// environment variables, the way a twelve-factor daemon is configured for its deployment
// environment rather than through a config file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/titone-mit/voltbridge/ramp"
)

// Config is voltbridge's full runtime configuration.
type Config struct {
	Host              string
	Port              int
	HTTPHost          string
	HTTPPort          int
	DeviceTool        string
	SubprocessTimeout time.Duration
	FlushInterval     time.Duration
	SupervisorCheck   time.Duration
	RampSmoothing     ramp.Smoothing
	RampFloor         time.Duration
	QueueDB           string
	PIDFile           string
	TCPRateLimit      int
}

// Load resolves Config from the environment, applying the documented defaults for anything
// unset. It returns an error only when a required variable is missing or a set variable fails
// to parse.
func Load() (Config, error) {
	cfg := Config{
		Host:              envOr("VOLTBRIDGE_HOST", "0.0.0.0"),
		Port:              4998,
		HTTPHost:          envOr("VOLTBRIDGE_HTTP_HOST", "127.0.0.1"),
		HTTPPort:          8080,
		DeviceTool:        os.Getenv("VOLTBRIDGE_DEVICE_TOOL"),
		SubprocessTimeout: 60 * time.Second,
		FlushInterval:     5 * time.Second,
		SupervisorCheck:   time.Second,
		RampSmoothing:     ramp.Linear,
		RampFloor:         80 * time.Millisecond,
		QueueDB:           envOr("VOLTBRIDGE_QUEUE_DB", "voltbridge-queue.db"),
		PIDFile:           envOr("VOLTBRIDGE_PID_FILE", "/var/run/voltbridge.pid"),
		TCPRateLimit:      20,
	}

	if cfg.DeviceTool == "" {
		return Config{}, fmt.Errorf("config: VOLTBRIDGE_DEVICE_TOOL is required")
	}

	var err error
	if cfg.Port, err = envOrIntErr("VOLTBRIDGE_PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	if cfg.HTTPPort, err = envOrIntErr("VOLTBRIDGE_HTTP_PORT", cfg.HTTPPort); err != nil {
		return Config{}, err
	}
	if cfg.TCPRateLimit, err = envOrIntErr("VOLTBRIDGE_TCP_RATE_LIMIT", cfg.TCPRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.SubprocessTimeout, err = envOrDurationErr("VOLTBRIDGE_SUBPROCESS_TIMEOUT", cfg.SubprocessTimeout); err != nil {
		return Config{}, err
	}
	if cfg.FlushInterval, err = envOrDurationErr("VOLTBRIDGE_FLUSH_INTERVAL", cfg.FlushInterval); err != nil {
		return Config{}, err
	}
	if cfg.SupervisorCheck, err = envOrDurationErr("VOLTBRIDGE_SUPERVISOR_CHECK", cfg.SupervisorCheck); err != nil {
		return Config{}, err
	}
	if cfg.RampFloor, err = envOrDurationErr("VOLTBRIDGE_RAMP_STEP_DELAY_FLOOR", cfg.RampFloor); err != nil {
		return Config{}, err
	}

	if smoothing := os.Getenv("VOLTBRIDGE_RAMP_SMOOTHING"); smoothing != "" {
		switch smoothing {
		case "linear":
			cfg.RampSmoothing = ramp.Linear
		case "cosine":
			cfg.RampSmoothing = ramp.Cosine
		default:
			return Config{}, fmt.Errorf("config: VOLTBRIDGE_RAMP_SMOOTHING must be \"linear\" or \"cosine\", got %q", smoothing)
		}
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrIntErr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

func envOrDurationErr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
