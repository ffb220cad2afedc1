package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/ecs"
	"github.com/reeflab/reef/internal/plugin"
)

// StatsSystem logs a world and registry summary at debug level every interval
// ticks.
type StatsSystem struct {
	registry *plugin.Registry
	interval int
	ticks    int
	log      *zap.Logger
}

func NewStatsSystem(registry *plugin.Registry, interval int, log *zap.Logger) *StatsSystem {
	if interval < 1 {
		interval = 1
	}
	return &StatsSystem{registry: registry, interval: interval, log: log}
}

func (s *StatsSystem) Update(w *ecs.World, dt time.Duration) {
	s.ticks++
	if s.ticks < s.interval {
		return
	}
	s.ticks = 0

	types := w.Components().Types()
	populations := make(map[string]int, len(types))
	for _, name := range types {
		populations[name] = w.Components().Count(name)
	}
	active := 0
	states := s.registry.States()
	for _, st := range states {
		if st == plugin.StateActive {
			active++
		}
	}
	s.log.Debug("world stats",
		zap.Int("entities", w.Entities().Count()),
		zap.Any("components", populations),
		zap.Int("plugins", len(states)),
		zap.Int("active_plugins", active),
	)
}
