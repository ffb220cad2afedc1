package ecs

import (
	"sort"

	"go.uber.org/zap"
)

// Entity is an opaque identifier. It carries no data; everything an entity
// "is" lives in component stores keyed by its id.
type Entity uint32

// EntityManager allocates and recycles entity ids and tracks the active set.
// Single-goroutine access only (host loop); no locks.
type EntityManager struct {
	next      Entity
	free      []Entity // LIFO: most recently destroyed id is reused first
	active    map[Entity]struct{}
	observers []func(Entity)
	log       *zap.Logger
}

func NewEntityManager(log *zap.Logger) *EntityManager {
	return &EntityManager{
		free:   make([]Entity, 0, 256),
		active: make(map[Entity]struct{}, 1024),
		log:    log,
	}
}

// Create allocates a fresh entity id, preferring the most recently freed id
// over advancing the counter.
func (m *EntityManager) Create() Entity {
	var id Entity
	if n := len(m.free); n > 0 {
		id = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		id = m.next
		m.next++
	}
	m.active[id] = struct{}{}
	return id
}

// CreateWithID activates the requested id. If the id is already active the
// request is refused and a fresh id is allocated instead; callers that care
// must compare the return value against what they asked for.
func (m *EntityManager) CreateWithID(id Entity) Entity {
	if _, taken := m.active[id]; taken {
		fresh := m.Create()
		m.log.Warn("entity id collision, allocated fresh id",
			zap.Uint32("requested", uint32(id)),
			zap.Uint32("allocated", uint32(fresh)),
		)
		return fresh
	}
	// The id may sit on the free list from an earlier destroy; splice it out
	// so a later Create cannot hand it out a second time.
	for i, f := range m.free {
		if f == id {
			m.free = append(m.free[:i], m.free[i+1:]...)
			break
		}
	}
	if id >= m.next {
		m.next = id + 1
	}
	m.active[id] = struct{}{}
	return id
}

// Destroy frees the id for reuse and notifies every destroy observer in
// registration order. Returns false if the id was not active.
func (m *EntityManager) Destroy(id Entity) bool {
	if _, ok := m.active[id]; !ok {
		return false
	}
	delete(m.active, id)
	m.free = append(m.free, id)
	for _, fn := range m.observers {
		fn(id)
	}
	return true
}

// OnDestroy registers an observer invoked synchronously after an entity is
// removed from the active set. The World wires system fan-out and component
// cleanup through this seam; nothing here knows what a System is.
func (m *EntityManager) OnDestroy(fn func(Entity)) {
	m.observers = append(m.observers, fn)
}

func (m *EntityManager) Has(id Entity) bool {
	_, ok := m.active[id]
	return ok
}

// All returns the active ids in ascending order.
func (m *EntityManager) All() []Entity {
	out := make([]Entity, 0, len(m.active))
	for id := range m.active {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *EntityManager) Count() int {
	return len(m.active)
}

// Clear resets the manager to its initial state: counter at zero, empty free
// list, no active entities. Destroy observers are not notified; this is a
// bulk reset, not per-entity destruction.
func (m *EntityManager) Clear() {
	m.next = 0
	m.free = m.free[:0]
	m.active = make(map[Entity]struct{}, 1024)
}
