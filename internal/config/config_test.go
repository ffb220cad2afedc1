package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleTOML = `
[host]
name = "reef-dev"
tick_rate = "100ms"
autoload = ["kinematics"]
autostart = false

[snapshot]
enabled = true
interval_ticks = 50

[logging]
level = "debug"
format = "json"

[parameters.gravity]
default = 3.7
min = 0.0
max = 50.0
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reef.toml")
	if err := os.WriteFile(path, []byte(sampleTOML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	if cfg.Host.Name != "reef-dev" {
		t.Errorf("Name = %q", cfg.Host.Name)
	}
	if cfg.Host.TickRate != 100*time.Millisecond {
		t.Errorf("TickRate = %v", cfg.Host.TickRate)
	}
	if cfg.Host.Autostart {
		t.Error("Autostart = true, want false from file")
	}
	if !cfg.Snapshot.Enabled || cfg.Snapshot.IntervalTicks != 50 {
		t.Errorf("Snapshot = %+v", cfg.Snapshot)
	}
	// Unset sections keep defaults.
	if cfg.Snapshot.Keep != 10 {
		t.Errorf("Keep = %d, want default 10", cfg.Snapshot.Keep)
	}
	if cfg.Database.MaxOpenConns != 10 {
		t.Errorf("MaxOpenConns = %d, want default 10", cfg.Database.MaxOpenConns)
	}
	p, ok := cfg.Parameters["gravity"]
	if !ok || p.Default != 3.7 || p.Max != 50 {
		t.Errorf("Parameters[gravity] = %+v ok=%v", p, ok)
	}
}

func TestLoadOrDefaults(t *testing.T) {
	cfg, err := LoadOrDefaults(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadOrDefaults = %v", err)
	}
	if cfg.Host.Name != "reef" || cfg.Host.TickRate != 50*time.Millisecond {
		t.Errorf("defaults = %+v", cfg.Host)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load on missing file succeeded")
	}
}
