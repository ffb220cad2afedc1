package kinematics

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/ecs"
	"github.com/reeflab/reef/internal/core/event"
	"github.com/reeflab/reef/internal/plugin"
	"github.com/reeflab/reef/internal/sim"
)

func newContext(t *testing.T) *plugin.Context {
	t.Helper()
	log := zap.NewNop()
	bus := event.NewBus(log)
	return &plugin.Context{
		World:  ecs.NewWorld(log),
		Events: bus,
		Params: sim.NewParameterStore(bus, log),
		Log:    log,
	}
}

func TestIntegrationStep(t *testing.T) {
	ctx := context.Background()
	pc := newContext(t)
	p := New()

	if err := p.Initialize(ctx, pc); err != nil {
		t.Fatalf("Initialize = %v", err)
	}
	if err := p.OnActivate(ctx); err != nil {
		t.Fatalf("OnActivate = %v", err)
	}

	e := pc.World.CreateEntity()
	pc.World.AddComponent(e, "position", &Position{})
	pc.World.AddComponent(e, "velocity", &Velocity{VX: 2})

	pc.World.Update(time.Second)

	posAny, _ := pc.World.GetComponent(e, "position")
	pos := posAny.(*Position)
	velAny, _ := pc.World.GetComponent(e, "velocity")
	vel := velAny.(*Velocity)

	if pos.X != 2 {
		t.Errorf("X = %v, want 2", pos.X)
	}
	if math.Abs(vel.VY+defaultGravity) > 1e-9 {
		t.Errorf("VY = %v, want %v", vel.VY, -defaultGravity)
	}
	if math.Abs(pos.Y+defaultGravity) > 1e-9 {
		t.Errorf("Y = %v, want %v", pos.Y, -defaultGravity)
	}
}

func TestGravityParameterApplies(t *testing.T) {
	ctx := context.Background()
	pc := newContext(t)
	p := New()
	if err := p.Initialize(ctx, pc); err != nil {
		t.Fatal(err)
	}
	if err := p.OnActivate(ctx); err != nil {
		t.Fatal(err)
	}

	// The host would route Params.Set through the registry broadcast; call
	// the observer hook directly here.
	if err := p.OnParameterChanged(ctx, "gravity", 1.5); err != nil {
		t.Fatal(err)
	}

	e := pc.World.CreateEntity()
	pc.World.AddComponent(e, "position", &Position{})
	pc.World.AddComponent(e, "velocity", &Velocity{})
	pc.World.Update(time.Second)

	velAny, _ := pc.World.GetComponent(e, "velocity")
	if vy := velAny.(*Velocity).VY; math.Abs(vy+1.5) > 1e-9 {
		t.Errorf("VY = %v, want -1.5", vy)
	}
}

func TestDeactivateStopsIntegration(t *testing.T) {
	ctx := context.Background()
	pc := newContext(t)
	p := New()
	if err := p.Initialize(ctx, pc); err != nil {
		t.Fatal(err)
	}
	if err := p.OnActivate(ctx); err != nil {
		t.Fatal(err)
	}
	if err := p.OnDeactivate(ctx); err != nil {
		t.Fatal(err)
	}

	e := pc.World.CreateEntity()
	pc.World.AddComponent(e, "position", &Position{})
	pc.World.AddComponent(e, "velocity", &Velocity{VX: 1})
	pc.World.Update(time.Second)

	posAny, _ := pc.World.GetComponent(e, "position")
	if x := posAny.(*Position).X; x != 0 {
		t.Errorf("X = %v after deactivate, want 0", x)
	}
}
