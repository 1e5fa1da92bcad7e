package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"
)

const (
	defaultRefreshInterval = 2 * time.Second
	defaultReadTimeout     = 500 * time.Millisecond
	defaultWorkers         = 8
	defaultMaxFDs          = 256
	defaultMaxMaps         = 512
	defaultRingCapacity    = 1000
	defaultKillGrace       = 2 * time.Second

	envRefreshInterval = "STDUTIL_REFRESH_INTERVAL"
	envReadTimeout     = "STDUTIL_READ_TIMEOUT"
	envTracer          = "STDUTIL_TRACER"
)

// Config aggregates the tunables of the refresh loop and trace capture.
type Config struct {
	// RefreshInterval is the snapshot tick period.
	RefreshInterval time.Duration
	// ReadTimeout bounds a single per-process detail read.
	ReadTimeout time.Duration
	// Workers bounds concurrent per-process reads within one refresh.
	Workers int
	// MaxFDs and MaxMaps cap enumerated entries per process.
	MaxFDs  int
	MaxMaps int
	// RingCapacity is the trace output buffer size in lines.
	RingCapacity int
	// TracerPath is the external tracer binary.
	TracerPath string
	// KillGrace is how long to wait after SIGTERM before SIGKILL.
	KillGrace time.Duration
	// ProcRoot overrides the proc filesystem mount point.
	ProcRoot string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		RefreshInterval: defaultRefreshInterval,
		ReadTimeout:     defaultReadTimeout,
		Workers:         defaultWorkers,
		MaxFDs:          defaultMaxFDs,
		MaxMaps:         defaultMaxMaps,
		RingCapacity:    defaultRingCapacity,
		TracerPath:      "strace",
		KillGrace:       defaultKillGrace,
		ProcRoot:        "/proc",
	}
}

// Load builds a Config from an optional YAML file plus environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envRefreshInterval); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.RefreshInterval = dur
		} else {
			log.Warn("ignoring invalid env override", "var", envRefreshInterval, "value", v)
		}
	}
	if v := os.Getenv(envReadTimeout); v != "" {
		if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
			cfg.ReadTimeout = dur
		} else {
			log.Warn("ignoring invalid env override", "var", envReadTimeout, "value", v)
		}
	}
	if v := os.Getenv(envTracer); v != "" {
		cfg.TracerPath = v
	}
}

// fileConfig keeps durations as strings so the YAML stays human-editable.
type fileConfig struct {
	RefreshInterval string `yaml:"refresh_interval"`
	ReadTimeout     string `yaml:"read_timeout"`
	Workers         int    `yaml:"workers"`
	MaxFDs          int    `yaml:"max_fds"`
	MaxMaps         int    `yaml:"max_maps"`
	RingCapacity    int    `yaml:"ring_capacity"`
	TracerPath      string `yaml:"tracer"`
	KillGrace       string `yaml:"kill_grace"`
	ProcRoot        string `yaml:"proc_root"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.RefreshInterval != "" {
		dur, err := parsePositiveDuration("refresh_interval", raw.RefreshInterval)
		if err != nil {
			return err
		}
		cfg.RefreshInterval = dur
	}
	if raw.ReadTimeout != "" {
		dur, err := parsePositiveDuration("read_timeout", raw.ReadTimeout)
		if err != nil {
			return err
		}
		cfg.ReadTimeout = dur
	}
	if raw.KillGrace != "" {
		dur, err := parsePositiveDuration("kill_grace", raw.KillGrace)
		if err != nil {
			return err
		}
		cfg.KillGrace = dur
	}
	if raw.Workers > 0 {
		cfg.Workers = raw.Workers
	}
	if raw.MaxFDs > 0 {
		cfg.MaxFDs = raw.MaxFDs
	}
	if raw.MaxMaps > 0 {
		cfg.MaxMaps = raw.MaxMaps
	}
	if raw.RingCapacity > 0 {
		cfg.RingCapacity = raw.RingCapacity
	}
	if raw.TracerPath != "" {
		cfg.TracerPath = raw.TracerPath
	}
	if raw.ProcRoot != "" {
		cfg.ProcRoot = raw.ProcRoot
	}
	return nil
}

func parsePositiveDuration(name, v string) (time.Duration, error) {
	dur, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if dur <= 0 {
		return 0, errors.New(name + " must be > 0")
	}
	return dur, nil
}
