package sim

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/event"
	"github.com/reeflab/reef/internal/plugin"
)

type fakeBroadcaster struct {
	params []string
	states []plugin.SimulationState
}

func (f *fakeBroadcaster) BroadcastParameterChanged(ctx context.Context, name string, value float64) {
	f.params = append(f.params, name)
}

func (f *fakeBroadcaster) BroadcastSimulationState(ctx context.Context, state plugin.SimulationState) {
	f.states = append(f.states, state)
}

func TestManagerTransitions(t *testing.T) {
	ctx := context.Background()
	m := NewManager(event.NewBus(zap.NewNop()), zap.NewNop())
	bc := &fakeBroadcaster{}
	m.Bind(bc)

	if err := m.Pause(ctx); err == nil {
		t.Error("Pause from Stopped succeeded, want error")
	}
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start = %v", err)
	}
	if !m.Running() {
		t.Error("Running() = false after Start")
	}
	if err := m.Start(ctx); err == nil {
		t.Error("second Start succeeded, want error")
	}
	if err := m.Pause(ctx); err != nil {
		t.Fatalf("Pause = %v", err)
	}
	if err := m.Resume(ctx); err != nil {
		t.Fatalf("Resume = %v", err)
	}
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("Stop = %v", err)
	}
	// Stop is idempotent.
	if err := m.Stop(ctx); err != nil {
		t.Fatalf("repeat Stop = %v", err)
	}

	want := []plugin.SimulationState{
		plugin.SimRunning, plugin.SimPaused, plugin.SimRunning, plugin.SimStopped,
	}
	if len(bc.states) != len(want) {
		t.Fatalf("broadcast states = %v, want %v", bc.states, want)
	}
	for i := range want {
		if bc.states[i] != want[i] {
			t.Fatalf("broadcast states = %v, want %v", bc.states, want)
		}
	}
}

func TestParameterStore(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus(zap.NewNop())
	s := NewParameterStore(bus, zap.NewNop())
	bc := &fakeBroadcaster{}
	s.Bind(bc)

	if err := s.Define("gravity", 9.8, 0, 100); err != nil {
		t.Fatalf("Define = %v", err)
	}
	if v, ok := s.Get("gravity"); !ok || v != 9.8 {
		t.Errorf("Get = %v %v, want 9.8 true", v, ok)
	}

	if err := s.Set(ctx, "gravity", 1.6); err != nil {
		t.Fatalf("Set = %v", err)
	}
	if v, _ := s.Get("gravity"); v != 1.6 {
		t.Errorf("value after Set = %v, want 1.6", v)
	}
	if len(bc.params) != 1 || bc.params[0] != "gravity" {
		t.Errorf("broadcasts = %v, want [gravity]", bc.params)
	}

	if err := s.Set(ctx, "gravity", 500); err == nil {
		t.Error("out-of-range Set succeeded")
	}
	if err := s.Set(ctx, "unknown", 1); err == nil {
		t.Error("Set on undefined parameter succeeded")
	}

	if err := s.Reset(ctx, "gravity"); err != nil {
		t.Fatalf("Reset = %v", err)
	}
	if v, _ := s.Get("gravity"); v != 9.8 {
		t.Errorf("value after Reset = %v, want 9.8", v)
	}

	// Events go through the double-buffered bus.
	var events []event.ParameterChanged
	event.Subscribe(bus, func(ev event.ParameterChanged) { events = append(events, ev) })
	bus.SwapBuffers()
	bus.DispatchAll()
	if len(events) != 2 { // Set + Reset
		t.Errorf("bus delivered %d ParameterChanged events, want 2", len(events))
	}
}

func TestDefineValidation(t *testing.T) {
	s := NewParameterStore(event.NewBus(zap.NewNop()), zap.NewNop())
	if err := s.Define("", 0, 0, 1); err == nil {
		t.Error("empty name accepted")
	}
	if err := s.Define("x", 0, 5, 1); err == nil {
		t.Error("min > max accepted")
	}
	if err := s.Define("x", 9, 0, 5); err == nil {
		t.Error("default outside range accepted")
	}

	// Redefinition keeps the current value, clamped to new bounds.
	if err := s.Define("y", 10, 0, 100); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(context.Background(), "y", 80); err != nil {
		t.Fatal(err)
	}
	if err := s.Define("y", 10, 0, 50); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Get("y"); v != 50 {
		t.Errorf("value after clamping redefine = %v, want 50", v)
	}
}
