// Package config loads the daemon-wide JSON configuration file and layers
// environment-variable overrides on top of it, the way the teacher layers
// env vars over a file-backed default.
package config

import (
	"log"
	"os"

	"github.com/dean0x/devlog/internal/fsutil"
)

const (
	envOllamaBaseURL = "DEVLOG_OLLAMA_BASE_URL"
	envOllamaModel   = "DEVLOG_OLLAMA_MODEL"

	defaultOllamaBaseURL           = "http://localhost:11434"
	defaultOllamaModel             = "llama3.1"
	defaultPollIntervalMS          = 5_000
	defaultSessionTimeoutMS        = 300_000
	defaultStalenessCheckIntervalMS = 3_600_000
	defaultDecayThresholdDays      = 30
	defaultReviewThresholdDays     = 90
	defaultCatchupDebounceMS       = 30_000
	defaultCatchupMaxStaleMS       = 300_000
)

// Config is the global JSON configuration, merged with environment
// overrides and validated defaults.
type Config struct {
	OllamaBaseURL             string `json:"ollama_base_url"`
	OllamaModel               string `json:"ollama_model"`
	PollIntervalMS            int    `json:"poll_interval_ms"`
	SessionTimeoutMS          int    `json:"session_timeout_ms"`
	StalenessCheckIntervalMS  int    `json:"staleness_check_interval_ms"`
	DecayThresholdDays        int    `json:"decay_threshold_days"`
	ReviewThresholdDays       int    `json:"review_threshold_days"`
	CatchupDebounceMS         int    `json:"catchup_debounce_ms"`
	CatchupMaxStaleMS         int    `json:"catchup_max_stale_ms"`
	NotifyAddr                string `json:"notify_addr,omitempty"`
}

// Defaults returns the hardcoded default configuration.
func Defaults() Config {
	return Config{
		OllamaBaseURL:            defaultOllamaBaseURL,
		OllamaModel:              defaultOllamaModel,
		PollIntervalMS:           defaultPollIntervalMS,
		SessionTimeoutMS:         defaultSessionTimeoutMS,
		StalenessCheckIntervalMS: defaultStalenessCheckIntervalMS,
		DecayThresholdDays:       defaultDecayThresholdDays,
		ReviewThresholdDays:      defaultReviewThresholdDays,
		CatchupDebounceMS:        defaultCatchupDebounceMS,
		CatchupMaxStaleMS:        defaultCatchupMaxStaleMS,
	}
}

// Load reads path (a missing file yields defaults), applies environment
// overrides, and falls back to defaults (with a logged warning) for any
// field that fails validation rather than treating it as fatal.
func Load(path string) (Config, error) {
	cfg := Defaults()

	var onDisk Config
	ok, err := fsutil.ReadJSON(path, &onDisk)
	if err != nil {
		return Config{}, err
	}
	if ok {
		merge(&cfg, onDisk)
	}

	if v := os.Getenv(envOllamaBaseURL); v != "" {
		cfg.OllamaBaseURL = v
	}
	if v := os.Getenv(envOllamaModel); v != "" {
		cfg.OllamaModel = v
	}

	cfg.validate()
	return cfg, nil
}

// Save writes cfg to path atomically, for tooling that persists edits.
func Save(path string, cfg Config) error {
	return fsutil.WriteJSONAtomic(path, cfg)
}

// merge copies every non-zero field from onDisk into cfg, leaving defaults
// in place for anything the file omitted.
func merge(cfg *Config, onDisk Config) {
	if onDisk.OllamaBaseURL != "" {
		cfg.OllamaBaseURL = onDisk.OllamaBaseURL
	}
	if onDisk.OllamaModel != "" {
		cfg.OllamaModel = onDisk.OllamaModel
	}
	if onDisk.NotifyAddr != "" {
		cfg.NotifyAddr = onDisk.NotifyAddr
	}
	overrideIfSet(&cfg.PollIntervalMS, onDisk.PollIntervalMS)
	overrideIfSet(&cfg.SessionTimeoutMS, onDisk.SessionTimeoutMS)
	overrideIfSet(&cfg.StalenessCheckIntervalMS, onDisk.StalenessCheckIntervalMS)
	overrideIfSet(&cfg.DecayThresholdDays, onDisk.DecayThresholdDays)
	overrideIfSet(&cfg.ReviewThresholdDays, onDisk.ReviewThresholdDays)
	overrideIfSet(&cfg.CatchupDebounceMS, onDisk.CatchupDebounceMS)
	overrideIfSet(&cfg.CatchupMaxStaleMS, onDisk.CatchupMaxStaleMS)
}

func overrideIfSet(field *int, onDisk int) {
	if onDisk != 0 {
		*field = onDisk
	}
}

// validate replaces any non-positive duration-ish field with its default,
// logging a warning rather than failing — this is ambient robustness, not
// a contract the daemon depends on for correctness.
func (c *Config) validate() {
	d := Defaults()
	warn := func(name string, field *int, fallback int) {
		if *field <= 0 {
			log.Printf("config: %s must be positive, using default %d", name, fallback)
			*field = fallback
		}
	}
	warn("poll_interval_ms", &c.PollIntervalMS, d.PollIntervalMS)
	warn("session_timeout_ms", &c.SessionTimeoutMS, d.SessionTimeoutMS)
	warn("staleness_check_interval_ms", &c.StalenessCheckIntervalMS, d.StalenessCheckIntervalMS)
	warn("decay_threshold_days", &c.DecayThresholdDays, d.DecayThresholdDays)
	warn("review_threshold_days", &c.ReviewThresholdDays, d.ReviewThresholdDays)
	warn("catchup_debounce_ms", &c.CatchupDebounceMS, d.CatchupDebounceMS)
	warn("catchup_max_stale_ms", &c.CatchupMaxStaleMS, d.CatchupMaxStaleMS)
}
