// Package sim holds the run-state machine and parameter store plugins see
// through their context. Both notify the plugin registry (as a Broadcaster)
// and the event bus on every change.
package sim

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/event"
	"github.com/reeflab/reef/internal/plugin"
)

// Broadcaster fans a change out to active plugins. Implemented by
// *plugin.Registry; declared here so sim never depends on the registry's
// concrete type at construction time.
type Broadcaster interface {
	BroadcastParameterChanged(ctx context.Context, name string, value float64)
	BroadcastSimulationState(ctx context.Context, state plugin.SimulationState)
}

// Manager is the host run-state machine: Stopped → Running ⇄ Paused → Stopped.
// Single-goroutine access only (host loop).
type Manager struct {
	state plugin.SimulationState
	bc    Broadcaster
	bus   *event.Bus
	log   *zap.Logger
}

func NewManager(bus *event.Bus, log *zap.Logger) *Manager {
	return &Manager{state: plugin.SimStopped, bus: bus, log: log}
}

// Bind attaches the broadcaster. Called once after the registry exists; the
// registry needs the manager first, so this cannot happen in the constructor.
func (m *Manager) Bind(bc Broadcaster) { m.bc = bc }

func (m *Manager) State() plugin.SimulationState { return m.state }

// Running reports whether the world should tick.
func (m *Manager) Running() bool { return m.state == plugin.SimRunning }

func (m *Manager) Start(ctx context.Context) error {
	if m.state != plugin.SimStopped {
		return fmt.Errorf("cannot start from %s", m.state)
	}
	m.transition(ctx, plugin.SimRunning)
	return nil
}

func (m *Manager) Pause(ctx context.Context) error {
	if m.state != plugin.SimRunning {
		return fmt.Errorf("cannot pause from %s", m.state)
	}
	m.transition(ctx, plugin.SimPaused)
	return nil
}

func (m *Manager) Resume(ctx context.Context) error {
	if m.state != plugin.SimPaused {
		return fmt.Errorf("cannot resume from %s", m.state)
	}
	m.transition(ctx, plugin.SimRunning)
	return nil
}

func (m *Manager) Stop(ctx context.Context) error {
	if m.state == plugin.SimStopped {
		return nil
	}
	m.transition(ctx, plugin.SimStopped)
	return nil
}

func (m *Manager) transition(ctx context.Context, to plugin.SimulationState) {
	from := m.state
	m.state = to
	m.log.Info("simulation state changed",
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	if m.bc != nil {
		m.bc.BroadcastSimulationState(ctx, to)
	}
	event.Emit(m.bus, event.SimulationStateChanged{State: to.String()})
}
