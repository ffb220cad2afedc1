package ecs

import (
	"time"

	"go.uber.org/zap"
)

// World is the composition root wiring the three managers together. It owns
// destroy propagation: when an entity dies, removal observers run first (they
// may still read the dying entity's components), then its component data is
// stripped so a recycled id never inherits stale state.
type World struct {
	entities   *EntityManager
	components *ComponentManager
	systems    *SystemManager
}

func NewWorld(log *zap.Logger) *World {
	w := &World{
		entities:   NewEntityManager(log.Named("entity")),
		components: NewComponentManager(log.Named("component")),
		systems:    NewSystemManager(log.Named("system")),
	}
	w.entities.OnDestroy(func(e Entity) {
		w.systems.NotifyEntityRemoved(e, w)
		w.components.RemoveAllForEntity(e)
	})
	return w
}

func (w *World) Entities() *EntityManager     { return w.entities }
func (w *World) Components() *ComponentManager { return w.components }
func (w *World) Systems() *SystemManager       { return w.systems }

// The methods below are the whole surface plugins and external collaborators
// are allowed to touch.

func (w *World) CreateEntity() Entity             { return w.entities.Create() }
func (w *World) CreateEntityWithID(id Entity) Entity { return w.entities.CreateWithID(id) }
func (w *World) DestroyEntity(id Entity) bool     { return w.entities.Destroy(id) }
func (w *World) HasEntity(id Entity) bool         { return w.entities.Has(id) }
func (w *World) AllEntities() []Entity            { return w.entities.All() }

func (w *World) RegisterComponent(name string) { w.components.Register(name) }

func (w *World) RegisterComponentWithFactory(name string, fn Factory) {
	w.components.RegisterWithFactory(name, fn)
}

func (w *World) AddComponent(e Entity, name string, c any) { w.components.Add(e, name, c) }

func (w *World) GetComponent(e Entity, name string) (any, bool) {
	return w.components.Get(e, name)
}

func (w *World) UpdateComponent(e Entity, name string, c any) bool {
	return w.components.Update(e, name, c)
}

func (w *World) RemoveComponent(e Entity, name string) { w.components.Remove(e, name) }

func (w *World) EntitiesWith(names ...string) []Entity {
	return w.components.EntitiesWith(names...)
}

func (w *World) ComponentsFor(e Entity) map[string]any {
	return w.components.ComponentsFor(e)
}

func (w *World) RegisterSystem(s System)        { w.systems.Register(s) }
func (w *World) UnregisterSystem(s System) bool { return w.systems.Unregister(s) }

// Update advances the world by one tick.
func (w *World) Update(dt time.Duration) { w.systems.UpdateAll(w, dt) }

// Revision is the component mutation counter, for change detection.
func (w *World) Revision() uint64 { return w.components.Revision() }

// Clear resets entities and empties component stores. Type registrations and
// registered systems survive.
func (w *World) Clear() {
	w.entities.Clear()
	w.components.Clear()
}
