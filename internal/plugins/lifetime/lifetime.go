// Package lifetime is a built-in plugin: entities carrying a lifetime
// component are destroyed when their time runs out.
package lifetime

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/ecs"
	"github.com/reeflab/reef/internal/core/event"
	"github.com/reeflab/reef/internal/plugin"
)

type Lifetime struct {
	Remaining float64 `json:"remaining"` // seconds
}

type Plugin struct {
	pc  *plugin.Context
	sys *reaper
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:         "lifetime",
		Version:      "1.0.0",
		Description:  "destroys entities whose lifetime has expired",
		Author:       "reef",
		Dependencies: []string{},
		CoreVersion:  "1.0.0",
		Category:     "core",
		Tags:         []string{"builtin", "ttl"},
	}
}

func (p *Plugin) Initialize(ctx context.Context, pc *plugin.Context) error {
	p.pc = pc
	pc.World.RegisterComponentWithFactory("lifetime", func() any { return &Lifetime{} })
	return nil
}

func (p *Plugin) Algorithms() []plugin.Algorithm {
	return []plugin.Algorithm{
		{Name: "ttl-reap", Description: "per-tick countdown and destruction of expired entities"},
	}
}

func (p *Plugin) Cleanup(ctx context.Context) error { return nil }

func (p *Plugin) OnActivate(ctx context.Context) error {
	p.sys = &reaper{bus: p.pc.Events, log: p.pc.Log}
	p.pc.World.RegisterSystem(p.sys)
	return nil
}

func (p *Plugin) OnDeactivate(ctx context.Context) error {
	if p.sys != nil {
		p.pc.World.UnregisterSystem(p.sys)
		p.sys = nil
	}
	return nil
}

// reaper ticks lifetimes down and destroys expired entities after the walk;
// destroying while iterating the query result would mutate the store under
// the loop.
type reaper struct {
	bus *event.Bus
	log *zap.Logger
}

func (s *reaper) Update(w *ecs.World, dt time.Duration) {
	step := dt.Seconds()
	var expired []ecs.Entity
	for _, e := range w.EntitiesWith("lifetime") {
		c, ok := w.GetComponent(e, "lifetime")
		if !ok {
			continue
		}
		lt, ok := c.(*Lifetime)
		if !ok {
			continue
		}
		lt.Remaining -= step
		if lt.Remaining <= 0 {
			expired = append(expired, e)
		}
	}
	for _, e := range expired {
		w.DestroyEntity(e)
		event.Emit(s.bus, event.EntityDestroyed{Entity: e})
	}
}

// EntityRemoved logs every destruction the reaper hears about, including ones
// other systems caused.
func (s *reaper) EntityRemoved(e ecs.Entity, w *ecs.World) {
	s.log.Debug("entity removed", zap.Uint32("entity", uint32(e)))
}
