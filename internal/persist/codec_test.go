package persist

import (
	"testing"

	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/ecs"
)

type position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	log := zap.NewNop()
	src := ecs.NewWorld(log)
	src.RegisterComponentWithFactory("position", func() any { return &position{} })

	e := src.CreateEntityWithID(7)
	src.AddComponent(e, "position", &position{X: 1.5, Y: -2})
	src.AddComponent(e, "tag", map[string]any{"kind": "probe"})

	records, err := EncodeWorld(src)
	if err != nil {
		t.Fatalf("EncodeWorld = %v", err)
	}
	if len(records) != 1 || records[0].Entity != 7 {
		t.Fatalf("records = %+v, want one for entity 7", records)
	}

	dst := ecs.NewWorld(log)
	dst.RegisterComponentWithFactory("position", func() any { return &position{} })
	if err := RestoreWorld(dst, records); err != nil {
		t.Fatalf("RestoreWorld = %v", err)
	}

	if !dst.HasEntity(7) {
		t.Fatal("entity 7 not restored")
	}
	c, ok := dst.GetComponent(7, "position")
	if !ok {
		t.Fatal("position not restored")
	}
	pos, ok := c.(*position)
	if !ok {
		t.Fatalf("position = %T, want *position via factory", c)
	}
	if pos.X != 1.5 || pos.Y != -2 {
		t.Errorf("position = %+v, want {1.5 -2}", pos)
	}

	// No factory for "tag": generic map decode.
	c, ok = dst.GetComponent(7, "tag")
	if !ok {
		t.Fatal("tag not restored")
	}
	m, ok := c.(map[string]any)
	if !ok || m["kind"] != "probe" {
		t.Errorf("tag = %#v, want map with kind=probe", c)
	}

	// The id counter moved past the restored id.
	if next := dst.CreateEntity(); next != 8 {
		t.Errorf("next created entity = %d, want 8", next)
	}
}

func TestDecodeIntoCollision(t *testing.T) {
	w := ecs.NewWorld(zap.NewNop())
	w.CreateEntityWithID(3)
	err := DecodeInto(w, EntityRecord{Entity: 3})
	if err == nil {
		t.Error("DecodeInto over an active id succeeded, want error")
	}
}
