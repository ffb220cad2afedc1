// Package kinematics is a built-in plugin: a forward Euler integrator over
// position/velocity components with a tunable gravity parameter.
package kinematics

import (
	"context"
	"time"

	"github.com/reeflab/reef/internal/core/ecs"
	"github.com/reeflab/reef/internal/plugin"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Velocity struct {
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
	VZ float64 `json:"vz"`
}

const defaultGravity = 9.81

type Plugin struct {
	pc  *plugin.Context
	sys *integrator
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:         "kinematics",
		Version:      "1.0.0",
		Description:  "forward Euler integration of position and velocity",
		Author:       "reef",
		Dependencies: []string{},
		CoreVersion:  "1.0.0",
		Category:     "physics",
		Tags:         []string{"builtin", "integration"},
	}
}

func (p *Plugin) Initialize(ctx context.Context, pc *plugin.Context) error {
	p.pc = pc
	pc.World.RegisterComponentWithFactory("position", func() any { return &Position{} })
	pc.World.RegisterComponentWithFactory("velocity", func() any { return &Velocity{} })
	if err := pc.Params.Define("gravity", defaultGravity, 0, 100); err != nil {
		return err
	}
	return nil
}

func (p *Plugin) Algorithms() []plugin.Algorithm {
	return []plugin.Algorithm{
		{Name: "euler-integrate", Description: "per-tick forward Euler step with gravity on the Y axis"},
	}
}

func (p *Plugin) Cleanup(ctx context.Context) error { return nil }

func (p *Plugin) OnActivate(ctx context.Context) error {
	gravity, _ := p.pc.Params.Get("gravity")
	p.sys = &integrator{gravity: gravity}
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

func (p *Plugin) OnParameterChanged(ctx context.Context, name string, value float64) error {
	if name == "gravity" && p.sys != nil {
		p.sys.gravity = value
	}
	return nil
}

// integrator walks every entity carrying both components. Velocity is listed
// first in the query: velocity-bearing entities are always the sparser set in
// scenes that mix static and moving bodies.
type integrator struct {
	gravity float64
}

func (s *integrator) Update(w *ecs.World, dt time.Duration) {
	step := dt.Seconds()
	for _, e := range w.EntitiesWith("velocity", "position") {
		pc, _ := w.GetComponent(e, "position")
		vc, _ := w.GetComponent(e, "velocity")
		pos, ok := pc.(*Position)
		if !ok {
			continue
		}
		vel, ok := vc.(*Velocity)
		if !ok {
			continue
		}
		vel.VY -= s.gravity * step
		pos.X += vel.VX * step
		pos.Y += vel.VY * step
		pos.Z += vel.VZ * step
	}
}
