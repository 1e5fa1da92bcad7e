package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stdutil.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.RefreshInterval != 2*time.Second || cfg.Workers != 8 || cfg.TracerPath != "strace" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
refresh_interval: 5s
read_timeout: 250ms
workers: 4
max_fds: 64
ring_capacity: 200
tracer: /usr/local/bin/strace
proc_root: /host/proc
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshInterval != 5*time.Second {
		t.Fatalf("refresh interval = %v", cfg.RefreshInterval)
	}
	if cfg.ReadTimeout != 250*time.Millisecond {
		t.Fatalf("read timeout = %v", cfg.ReadTimeout)
	}
	if cfg.Workers != 4 || cfg.MaxFDs != 64 || cfg.RingCapacity != 200 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.TracerPath != "/usr/local/bin/strace" || cfg.ProcRoot != "/host/proc" {
		t.Fatalf("cfg = %+v", cfg)
	}
	// Untouched keys keep their defaults.
	if cfg.MaxMaps != Default().MaxMaps || cfg.KillGrace != Default().KillGrace {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadFileInvalidDuration(t *testing.T) {
	path := writeConfig(t, "refresh_interval: fast\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}

	path = writeConfig(t, "read_timeout: -1s\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected rejection of non-positive duration")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STDUTIL_REFRESH_INTERVAL", "10s")
	t.Setenv("STDUTIL_READ_TIMEOUT", "1s")
	t.Setenv("STDUTIL_TRACER", "ltrace")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshInterval != 10*time.Second || cfg.ReadTimeout != time.Second {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.TracerPath != "ltrace" {
		t.Fatalf("tracer = %q", cfg.TracerPath)
	}
}

func TestEnvOverrideInvalidValueIgnored(t *testing.T) {
	t.Setenv("STDUTIL_REFRESH_INTERVAL", "soon")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshInterval != Default().RefreshInterval {
		t.Fatalf("refresh interval = %v", cfg.RefreshInterval)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, "refresh_interval: 5s\n")
	t.Setenv("STDUTIL_REFRESH_INTERVAL", "7s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshInterval != 7*time.Second {
		t.Fatalf("refresh interval = %v", cfg.RefreshInterval)
	}
}
