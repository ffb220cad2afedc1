package ecs

import (
	"sort"

	"go.uber.org/zap"
)

// Factory produces a zero-value component instance. Stores registered with a
// factory can rebuild typed instances when a snapshot is decoded; stores
// without one fall back to generic maps.
type Factory func() any

type store struct {
	data    map[Entity]any
	factory Factory
}

// ComponentManager owns one sparse store per registered component type.
// Component identity is the string type tag; there is no second query API
// keyed by anything else. Single-goroutine access only (host loop).
type ComponentManager struct {
	stores map[string]*store
	rev    uint64 // bumped on every mutation; snapshot dirty check
	log    *zap.Logger
}

func NewComponentManager(log *zap.Logger) *ComponentManager {
	return &ComponentManager{
		stores: make(map[string]*store, 16),
		log:    log,
	}
}

// Register creates an empty store for the type. Re-registering replaces the
// store; any data in the old store is lost and that loss is the caller's
// responsibility.
func (m *ComponentManager) Register(name string) {
	m.RegisterWithFactory(name, nil)
}

// RegisterWithFactory is Register plus a factory used for typed snapshot
// restore.
func (m *ComponentManager) RegisterWithFactory(name string, fn Factory) {
	if old, ok := m.stores[name]; ok && len(old.data) > 0 {
		m.log.Warn("component type re-registered, dropping store",
			zap.String("type", name),
			zap.Int("dropped", len(old.data)),
		)
	}
	m.stores[name] = &store{
		data:    make(map[Entity]any, 256),
		factory: fn,
	}
	m.rev++
}

func (m *ComponentManager) Registered(name string) bool {
	_, ok := m.stores[name]
	return ok
}

// Factory returns the restore factory registered for the type, if any.
func (m *ComponentManager) Factory(name string) Factory {
	s, ok := m.stores[name]
	if !ok {
		return nil
	}
	return s.factory
}

// Add attaches a component to an entity, overwriting any prior value without
// warning (last writer wins). A missing store is created on the fly so the
// add path never fails.
func (m *ComponentManager) Add(e Entity, name string, c any) {
	s, ok := m.stores[name]
	if !ok {
		m.log.Debug("auto-registering component store on add", zap.String("type", name))
		s = &store{data: make(map[Entity]any, 256)}
		m.stores[name] = s
	}
	s.data[e] = c
	m.rev++
}

func (m *ComponentManager) Get(e Entity, name string) (any, bool) {
	s, ok := m.stores[name]
	if !ok {
		return nil, false
	}
	c, ok := s.data[e]
	return c, ok
}

// Update replaces the component only if the store already exists. Returns
// false when it does not; the legacy design failed silently here.
func (m *ComponentManager) Update(e Entity, name string, c any) bool {
	s, ok := m.stores[name]
	if !ok {
		m.log.Debug("update on unregistered component type", zap.String("type", name))
		return false
	}
	s.data[e] = c
	m.rev++
	return true
}

func (m *ComponentManager) Remove(e Entity, name string) {
	if s, ok := m.stores[name]; ok {
		delete(s.data, e)
		m.rev++
	}
}

// RemoveAllForEntity strips the entity from every store. Called by the World
// after destroy observers have run.
func (m *ComponentManager) RemoveAllForEntity(e Entity) {
	for _, s := range m.stores {
		delete(s.data, e)
	}
	m.rev++
}

// EntitiesWith returns, in ascending id order, every entity present in all of
// the named stores. The result set is independent of argument order; the cost
// is not: the first name's store is the one iterated, so callers should put
// the sparsest type first.
func (m *ComponentManager) EntitiesWith(names ...string) []Entity {
	if len(names) == 0 {
		return nil
	}
	first, ok := m.stores[names[0]]
	if !ok {
		return nil
	}
	rest := make([]*store, 0, len(names)-1)
	for _, n := range names[1:] {
		s, ok := m.stores[n]
		if !ok {
			return nil
		}
		rest = append(rest, s)
	}
	out := make([]Entity, 0, len(first.data))
candidates:
	for e := range first.data {
		for _, s := range rest {
			if _, ok := s.data[e]; !ok {
				continue candidates
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ComponentsFor builds a type→instance map for inspection and serialization.
func (m *ComponentManager) ComponentsFor(e Entity) map[string]any {
	out := make(map[string]any)
	for name, s := range m.stores {
		if c, ok := s.data[e]; ok {
			out[name] = c
		}
	}
	return out
}

// Types returns the registered type names, sorted.
func (m *ComponentManager) Types() []string {
	out := make([]string, 0, len(m.stores))
	for name := range m.stores {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Count returns the population of one type's store.
func (m *ComponentManager) Count(name string) int {
	s, ok := m.stores[name]
	if !ok {
		return 0
	}
	return len(s.data)
}

// Revision increases on every mutation. Consumers compare revisions to skip
// work when nothing changed.
func (m *ComponentManager) Revision() uint64 {
	return m.rev
}

// Clear empties every store but keeps the registrations and factories, so a
// plugin activated on the same world after a reset does not need to
// re-declare its types.
func (m *ComponentManager) Clear() {
	for _, s := range m.stores {
		clear(s.data)
	}
	m.rev++
}
