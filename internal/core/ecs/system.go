package ecs

import (
	"time"

	"go.uber.org/zap"
)

// System is a per-tick behavior unit with full world access. Registration
// order is execution order; the core scheduler has no priority field.
type System interface {
	Update(w *World, dt time.Duration)
}

// EntityRemovalObserver is an optional capability a System may implement to
// hear about entity destruction, e.g. to dispose per-entity resources held
// outside the component stores.
type EntityRemovalObserver interface {
	EntityRemoved(e Entity, w *World)
}

// SystemManager holds the ordered system list and fans entity-removal
// notifications out to the systems that want them.
type SystemManager struct {
	systems []System
	log     *zap.Logger
}

func NewSystemManager(log *zap.Logger) *SystemManager {
	return &SystemManager{
		systems: make([]System, 0, 16),
		log:     log,
	}
}

func (m *SystemManager) Register(s System) {
	m.systems = append(m.systems, s)
}

// Unregister removes a system by identity. Returns false if it was not
// registered. Deactivating plugins use this to stop their tick systems.
func (m *SystemManager) Unregister(s System) bool {
	for i, have := range m.systems {
		if have == s {
			m.systems = append(m.systems[:i], m.systems[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateAll runs every system once, in registration order.
func (m *SystemManager) UpdateAll(w *World, dt time.Duration) {
	for _, s := range m.systems {
		m.safeUpdate(s, w, dt)
	}
}

func (m *SystemManager) safeUpdate(s System, w *World, dt time.Duration) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error("system panic recovered", zap.Any("panic", rec))
		}
	}()
	s.Update(w, dt)
}

// Systems returns a snapshot copy of the registered list.
func (m *SystemManager) Systems() []System {
	out := make([]System, len(m.systems))
	copy(out, m.systems)
	return out
}

// NotifyEntityRemoved invokes EntityRemoved on every system implementing the
// observer capability. Each call is recovered so one bad system cannot stop
// delivery to the rest.
func (m *SystemManager) NotifyEntityRemoved(e Entity, w *World) {
	for _, s := range m.systems {
		obs, ok := s.(EntityRemovalObserver)
		if !ok {
			continue
		}
		m.safeNotify(obs, e, w)
	}
}

func (m *SystemManager) safeNotify(obs EntityRemovalObserver, e Entity, w *World) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.Error("removal observer panic recovered",
				zap.Uint32("entity", uint32(e)),
				zap.Any("panic", rec),
			)
		}
	}()
	obs.EntityRemoved(e, w)
}
