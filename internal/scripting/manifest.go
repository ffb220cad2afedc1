// Package scripting turns directories of Lua scripts into first-class
// plugins. Each plugin directory carries a YAML manifest describing its
// metadata plus one entry script; hooks are plain Lua globals.
package scripting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reeflab/reef/internal/plugin"
)

// AlgorithmSpec mirrors plugin.Algorithm in manifest form.
type AlgorithmSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// ParameterSpec declares a tunable the plugin defines on activation.
type ParameterSpec struct {
	Name    string  `yaml:"name"`
	Default float64 `yaml:"default"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
}

// Manifest is the plugin.yaml schema.
type Manifest struct {
	Name         string          `yaml:"name"`
	Version      string          `yaml:"version"`
	Description  string          `yaml:"description"`
	Author       string          `yaml:"author"`
	Dependencies []string        `yaml:"dependencies"`
	CoreVersion  string          `yaml:"core_version"`
	Category     string          `yaml:"category"`
	Tags         []string        `yaml:"tags"`
	Entry        string          `yaml:"entry"`
	Algorithms   []AlgorithmSpec `yaml:"algorithms"`
	Parameters   []ParameterSpec `yaml:"parameters"`
}

// LoadManifest reads and parses one plugin.yaml.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m := &Manifest{}
	if err := yaml.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Entry == "" {
		m.Entry = "main.lua"
	}
	return m, nil
}

// Metadata converts the manifest into registry metadata. YAML leaves an
// absent list nil; the registry requires an explicit empty one.
func (m *Manifest) Metadata() plugin.Metadata {
	deps := m.Dependencies
	if deps == nil {
		deps = []string{}
	}
	return plugin.Metadata{
		Name:         m.Name,
		Version:      m.Version,
		Description:  m.Description,
		Author:       m.Author,
		Dependencies: deps,
		CoreVersion:  m.CoreVersion,
		Category:     m.Category,
		Tags:         m.Tags,
	}
}

// PluginAlgorithms converts the manifest's algorithm list.
func (m *Manifest) PluginAlgorithms() []plugin.Algorithm {
	out := make([]plugin.Algorithm, 0, len(m.Algorithms))
	for _, a := range m.Algorithms {
		out = append(out, plugin.Algorithm{Name: a.Name, Description: a.Description})
	}
	return out
}
