package scripting

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/reeflab/reef/internal/plugin"
)

// Discovered is one plugin directory found by Scan.
type Discovered struct {
	Manifest *Manifest
	Dir      string
	Digest   string // blake2b-256 of the entry script, hex
}

// Scan walks the immediate children of dir looking for plugin.yaml manifests.
// A missing root directory yields an empty result, not an error.
func Scan(dir string) ([]Discovered, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read plugin dir %s: %w", dir, err)
	}

	var found []Discovered
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(dir, e.Name())
		manifestPath := filepath.Join(sub, "plugin.yaml")
		if _, err := os.Stat(manifestPath); err != nil {
			continue
		}
		m, err := LoadManifest(manifestPath)
		if err != nil {
			return nil, err
		}
		digest, err := digestFile(filepath.Join(sub, m.Entry))
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", m.Name, err)
		}
		found = append(found, Discovered{Manifest: m, Dir: sub, Digest: digest})
	}
	return found, nil
}

// digestFile computes the blake2b-256 hex digest of a script, for change
// detection across restarts.
func digestFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read entry script: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Install scans dir and registers one discovery factory per plugin found.
// Returns the number installed.
func Install(disc *plugin.Discovery, dir string, log *zap.Logger) (int, error) {
	found, err := Scan(dir)
	if err != nil {
		return 0, err
	}
	for _, d := range found {
		d := d
		err := disc.RegisterFactory(d.Manifest.Name, func(ctx context.Context) (plugin.Plugin, error) {
			return NewLuaPlugin(d.Manifest, d.Dir, log), nil
		})
		if err != nil {
			return 0, err
		}
		log.Info("lua plugin discovered",
			zap.String("plugin", d.Manifest.Name),
			zap.String("version", d.Manifest.Version),
			zap.String("digest", d.Digest[:12]),
		)
	}
	return len(found), nil
}
