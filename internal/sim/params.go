package sim

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/event"
)

type paramDef struct {
	value float64
	def   float64
	min   float64
	max   float64
}

// ParameterStore holds named float64 tunables. Plugins define parameters at
// initialize/activate time and the host (or other plugins) set them; every
// set fans out to active ParameterObservers and onto the bus.
type ParameterStore struct {
	params map[string]*paramDef
	bc     Broadcaster
	bus    *event.Bus
	log    *zap.Logger
}

func NewParameterStore(bus *event.Bus, log *zap.Logger) *ParameterStore {
	return &ParameterStore{
		params: make(map[string]*paramDef, 16),
		bus:    bus,
		log:    log,
	}
}

// Bind attaches the broadcaster, same deal as Manager.Bind.
func (s *ParameterStore) Bind(bc Broadcaster) { s.bc = bc }

// Define declares a parameter with its default and allowed range.
// Redefining an existing parameter keeps its current value but adopts the
// new bounds, clamping if needed.
func (s *ParameterStore) Define(name string, def, min, max float64) error {
	if name == "" {
		return fmt.Errorf("parameter name is empty")
	}
	if min > max {
		return fmt.Errorf("parameter %q: min %v > max %v", name, min, max)
	}
	if def < min || def > max {
		return fmt.Errorf("parameter %q: default %v outside [%v, %v]", name, def, min, max)
	}
	if p, ok := s.params[name]; ok {
		p.def, p.min, p.max = def, min, max
		if p.value < min {
			p.value = min
		}
		if p.value > max {
			p.value = max
		}
		return nil
	}
	s.params[name] = &paramDef{value: def, def: def, min: min, max: max}
	s.log.Debug("parameter defined",
		zap.String("name", name),
		zap.Float64("default", def),
	)
	return nil
}

func (s *ParameterStore) Get(name string) (float64, bool) {
	p, ok := s.params[name]
	if !ok {
		return 0, false
	}
	return p.value, true
}

// Set changes a parameter, range-checked, and notifies observers.
func (s *ParameterStore) Set(ctx context.Context, name string, value float64) error {
	p, ok := s.params[name]
	if !ok {
		return fmt.Errorf("parameter %q is not defined", name)
	}
	if value < p.min || value > p.max {
		return fmt.Errorf("parameter %q: %v outside [%v, %v]", name, value, p.min, p.max)
	}
	p.value = value
	if s.bc != nil {
		s.bc.BroadcastParameterChanged(ctx, name, value)
	}
	event.Emit(s.bus, event.ParameterChanged{Name: name, Value: value})
	return nil
}

// Reset returns a parameter to its default.
func (s *ParameterStore) Reset(ctx context.Context, name string) error {
	p, ok := s.params[name]
	if !ok {
		return fmt.Errorf("parameter %q is not defined", name)
	}
	return s.Set(ctx, name, p.def)
}

func (s *ParameterStore) Names() []string {
	out := make([]string, 0, len(s.params))
	for name := range s.params {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
