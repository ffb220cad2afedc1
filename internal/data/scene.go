// Package data loads scene files: the initial entity/component population a
// host seeds into a fresh world before plugins take over.
package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reeflab/reef/internal/core/ecs"
)

// SpawnEntry declares a batch of identical entities.
type SpawnEntry struct {
	Count      int                       `yaml:"count"`
	Components map[string]map[string]any `yaml:"components"`
}

// Scene is the scene.yaml schema: optional up-front type registrations plus
// spawn batches.
type Scene struct {
	Components []string     `yaml:"components"`
	Entities   []SpawnEntry `yaml:"entities"`
}

// LoadScene reads and parses a scene file.
func LoadScene(path string) (*Scene, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene %s: %w", path, err)
	}
	s := &Scene{}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	for i, e := range s.Entities {
		if e.Count < 0 {
			return nil, fmt.Errorf("scene %s: entry %d has negative count", path, i)
		}
	}
	return s, nil
}

// Populate registers the scene's component types and creates its entities.
// Returns the number of entities created. A zero count spawns one entity.
func (s *Scene) Populate(w *ecs.World) int {
	for _, name := range s.Components {
		if !w.Components().Registered(name) {
			w.RegisterComponent(name)
		}
	}
	total := 0
	for _, entry := range s.Entities {
		count := entry.Count
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			e := w.CreateEntity()
			for name, fields := range entry.Components {
				w.AddComponent(e, name, cloneFields(fields))
			}
			total++
		}
	}
	return total
}

// cloneFields deep-copies a component map so batch-spawned entities do not
// share mutable state.
func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneFields(nested)
			continue
		}
		out[k] = v
	}
	return out
}
