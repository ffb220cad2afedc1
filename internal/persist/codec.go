package persist

import (
	"encoding/json"
	"fmt"

	"github.com/reeflab/reef/internal/core/ecs"
)

// EncodeEntity serializes one live entity into a record.
func EncodeEntity(w *ecs.World, e ecs.Entity) (EntityRecord, error) {
	comps := w.ComponentsFor(e)
	rec := EntityRecord{
		Entity:     uint32(e),
		Components: make(map[string]json.RawMessage, len(comps)),
	}
	for name, c := range comps {
		blob, err := json.Marshal(c)
		if err != nil {
			return EntityRecord{}, fmt.Errorf("encode %s of entity %d: %w", name, e, err)
		}
		rec.Components[name] = blob
	}
	return rec, nil
}

// EncodeWorld serializes every live entity.
func EncodeWorld(w *ecs.World) ([]EntityRecord, error) {
	entities := w.AllEntities()
	records := make([]EntityRecord, 0, len(entities))
	for _, e := range entities {
		rec, err := EncodeEntity(w, e)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// DecodeInto recreates a record's entity in the world under its original id.
// Component types registered with a factory come back as typed instances;
// the rest decode as generic maps.
func DecodeInto(w *ecs.World, rec EntityRecord) error {
	if w.HasEntity(ecs.Entity(rec.Entity)) {
		return fmt.Errorf("entity %d already active, refusing to restore over it", rec.Entity)
	}
	id := w.CreateEntityWithID(ecs.Entity(rec.Entity))
	for name, blob := range rec.Components {
		var inst any
		if fn := w.Components().Factory(name); fn != nil {
			inst = fn()
			if err := json.Unmarshal(blob, inst); err != nil {
				return fmt.Errorf("decode %s of entity %d: %w", name, rec.Entity, err)
			}
		} else {
			m := make(map[string]any)
			if err := json.Unmarshal(blob, &m); err != nil {
				return fmt.Errorf("decode %s of entity %d: %w", name, rec.Entity, err)
			}
			inst = m
		}
		w.AddComponent(id, name, inst)
	}
	return nil
}

// RestoreWorld decodes all records, stopping at the first failure.
func RestoreWorld(w *ecs.World, records []EntityRecord) error {
	for _, rec := range records {
		if err := DecodeInto(w, rec); err != nil {
			return err
		}
	}
	return nil
}
