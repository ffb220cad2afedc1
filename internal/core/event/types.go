package event

import "github.com/reeflab/reef/internal/core/ecs"

// Host-emitted event types. Plugin lifecycle states and simulation states
// cross the bus as strings so this package stays below the plugin layer.

type EntityDestroyed struct {
	Entity ecs.Entity
}

type PluginStateChanged struct {
	Name string
	From string
	To   string
}

type ParameterChanged struct {
	Name  string
	Value float64
}

type SimulationStateChanged struct {
	State string
}
