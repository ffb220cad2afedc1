package plugin

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/ecs"
	"github.com/reeflab/reef/internal/core/event"
)

// Plugin is the capability contract every behavioral unit implements.
// Optional hooks are separate interfaces discovered by type assertion; the
// registry never probes method names at runtime.
type Plugin interface {
	Metadata() Metadata
	Initialize(ctx context.Context, pc *Context) error
	Algorithms() []Algorithm
	Cleanup(ctx context.Context) error
}

// Optional lifecycle hooks.
type (
	LoadHook       interface{ OnLoad(ctx context.Context) error }
	UnloadHook     interface{ OnUnload(ctx context.Context) error }
	ActivateHook   interface{ OnActivate(ctx context.Context) error }
	DeactivateHook interface{ OnDeactivate(ctx context.Context) error }

	// ParameterObserver receives host parameter changes while the plugin is
	// active.
	ParameterObserver interface {
		OnParameterChanged(ctx context.Context, name string, value float64) error
	}

	// SimulationObserver receives run-state changes while the plugin is
	// active.
	SimulationObserver interface {
		OnSimulationStateChanged(ctx context.Context, state SimulationState) error
	}
)

// Algorithm describes one capability a plugin contributes, for discovery and
// tooling.
type Algorithm struct {
	Name        string
	Description string
}

// SimulationState is the host run state broadcast to SimulationObservers.
type SimulationState int

const (
	SimStopped SimulationState = iota
	SimRunning
	SimPaused
)

func (s SimulationState) String() string {
	switch s {
	case SimStopped:
		return "Stopped"
	case SimRunning:
		return "Running"
	case SimPaused:
		return "Paused"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// SimulationManager is the run-state collaborator handed to plugins. The
// concrete implementation lives outside this package; plugins only ever see
// the interface.
type SimulationManager interface {
	State() SimulationState
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ParameterManager exposes named host tunables to plugins.
type ParameterManager interface {
	Define(name string, def, min, max float64) error
	Get(name string) (float64, bool)
	Set(ctx context.Context, name string, value float64) error
	Names() []string
}

// Context is what a plugin receives at Initialize. Render is an opaque handle
// into the rendering collaborator, passed through unmodified.
type Context struct {
	World  *ecs.World
	Events *event.Bus
	Sim    SimulationManager
	Params ParameterManager
	Render any
	Log    *zap.Logger
}
