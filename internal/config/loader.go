package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Loader loads configuration from environment variables. Tests can override
// Lookup to inject deterministic maps.
type Loader struct {
	Lookup func(string) (string, bool)
}

// Load retrieves the daemon's ambient configuration from environment
// variables, following the same defaults -> JSON blob -> per-field env var
// layering as nupi-ai-plugin-vad-local-silero's adapter config loader.
func (l Loader) Load() (Config, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}

	cfg := Config{
		SocketRoot:       DefaultSocketRoot,
		LogLevel:         DefaultLogLevel,
		HelloTimeoutMs:   DefaultHelloTimeoutMs,
		LivenessPeriodMs: DefaultLivenessPeriodMs,
		RetryCount:       DefaultRetryCount,
		RetryBackoffUs:   DefaultRetryBackoffUs,
		SynthPollMs:      DefaultSynthPollMs,
	}

	if raw, ok := l.Lookup("TTSD_CONFIG"); ok && strings.TrimSpace(raw) != "" {
		if err := applyJSON(raw, &cfg); err != nil {
			return Config{}, err
		}
	}

	overrideString(l.Lookup, "TTSD_SOCKET_ROOT", &cfg.SocketRoot)
	overrideString(l.Lookup, "TTSD_LOG_LEVEL", &cfg.LogLevel)
	if err := overrideInt(l.Lookup, "TTSD_HELLO_TIMEOUT_MS", &cfg.HelloTimeoutMs); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "TTSD_LIVENESS_PERIOD_MS", &cfg.LivenessPeriodMs); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "TTSD_RETRY_COUNT", &cfg.RetryCount); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "TTSD_RETRY_BACKOFF_US", &cfg.RetryBackoffUs); err != nil {
		return Config{}, err
	}
	if err := overrideInt(l.Lookup, "TTSD_SYNTH_POLL_MS", &cfg.SynthPollMs); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyJSON(raw string, cfg *Config) error {
	type jsonConfig struct {
		SocketRoot       string `json:"socket_root"`
		LogLevel         string `json:"log_level"`
		HelloTimeoutMs   *int   `json:"hello_timeout_ms"`
		LivenessPeriodMs *int   `json:"liveness_period_ms"`
		RetryCount       *int   `json:"retry_count"`
		RetryBackoffUs   *int   `json:"retry_backoff_us"`
		SynthPollMs      *int   `json:"synth_poll_ms"`
	}
	var payload jsonConfig
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return fmt.Errorf("config: decode TTSD_CONFIG: %w", err)
	}
	if payload.SocketRoot != "" {
		cfg.SocketRoot = payload.SocketRoot
	}
	if payload.LogLevel != "" {
		cfg.LogLevel = payload.LogLevel
	}
	if payload.HelloTimeoutMs != nil {
		cfg.HelloTimeoutMs = *payload.HelloTimeoutMs
	}
	if payload.LivenessPeriodMs != nil {
		cfg.LivenessPeriodMs = *payload.LivenessPeriodMs
	}
	if payload.RetryCount != nil {
		cfg.RetryCount = *payload.RetryCount
	}
	if payload.RetryBackoffUs != nil {
		cfg.RetryBackoffUs = *payload.RetryBackoffUs
	}
	if payload.SynthPollMs != nil {
		cfg.SynthPollMs = *payload.SynthPollMs
	}
	return nil
}

func overrideString(lookup func(string) (string, bool), key string, target *string) {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		*target = strings.TrimSpace(value)
	}
}

func overrideInt(lookup func(string) (string, bool), key string, target *int) error {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config: invalid value for %s: %w", key, err)
		}
		*target = parsed
	}
	return nil
}
