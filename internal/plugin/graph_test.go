package plugin

import (
	"errors"
	"reflect"
	"testing"
)

func TestResolveDependenciesPrecedeDependents(t *testing.T) {
	r := newTestRegistry(t)
	mustRegister(t, r, newFake("p1"))
	mustRegister(t, r, newFake("p2", "p1"))

	got, err := r.Resolve([]string{"p2", "p1"})
	if err != nil {
		t.Fatalf("Resolve = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"p1", "p2"}) {
		t.Errorf("order = %v, want [p1 p2]", got)
	}
}

func TestResolveDiamond(t *testing.T) {
	r := newTestRegistry(t)
	mustRegister(t, r, newFake("base"))
	mustRegister(t, r, newFake("left", "base"))
	mustRegister(t, r, newFake("right", "base"))
	mustRegister(t, r, newFake("app", "left", "right"))

	got, err := r.Resolve([]string{"app", "left", "right", "base"})
	if err != nil {
		t.Fatalf("Resolve = %v", err)
	}
	pos := make(map[string]int, len(got))
	for i, n := range got {
		pos[n] = i
	}
	for _, pair := range [][2]string{{"base", "left"}, {"base", "right"}, {"left", "app"}, {"right", "app"}} {
		if pos[pair[0]] > pos[pair[1]] {
			t.Errorf("order %v: %s must precede %s", got, pair[0], pair[1])
		}
	}
	if len(got) != 4 {
		t.Errorf("order %v visits %d nodes, want 4", got, len(got))
	}
}

func TestResolveIgnoresDependenciesOutsideInputSet(t *testing.T) {
	r := newTestRegistry(t)
	mustRegister(t, r, newFake("p1"))
	mustRegister(t, r, newFake("p2", "p1"))

	got, err := r.Resolve([]string{"p2"})
	if err != nil {
		t.Fatalf("Resolve = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"p2"}) {
		t.Errorf("order = %v, want [p2]", got)
	}
}

func TestResolveCycle(t *testing.T) {
	r := newTestRegistry(t)
	mustRegister(t, r, newFake("p1", "p2"))
	mustRegister(t, r, newFake("p2", "p1"))

	_, err := r.Resolve([]string{"p1", "p2"})
	var cerr *CircularDependencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("Resolve = %v, want *CircularDependencyError", err)
	}
	if len(cerr.Members) < 2 {
		t.Errorf("cycle members = %v, want at least the two participants", cerr.Members)
	}
}

func TestResolveSelfCycleViaThree(t *testing.T) {
	r := newTestRegistry(t)
	mustRegister(t, r, newFake("a", "b"))
	mustRegister(t, r, newFake("b", "c"))
	mustRegister(t, r, newFake("c", "a"))

	_, err := r.Resolve([]string{"a", "b", "c"})
	var cerr *CircularDependencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("Resolve = %v, want *CircularDependencyError", err)
	}
}

func TestLoadOrderClosure(t *testing.T) {
	r := newTestRegistry(t)
	mustRegister(t, r, newFake("base"))
	mustRegister(t, r, newFake("mid", "base"))
	mustRegister(t, r, newFake("top", "mid"))
	mustRegister(t, r, newFake("unrelated"))

	got, err := r.LoadOrder("top")
	if err != nil {
		t.Fatalf("LoadOrder = %v", err)
	}
	if !reflect.DeepEqual(got, []string{"base", "mid", "top"}) {
		t.Errorf("order = %v, want [base mid top]", got)
	}
}

func TestLoadOrderPropagatesCycle(t *testing.T) {
	r := newTestRegistry(t)
	mustRegister(t, r, newFake("p1", "p2"))
	mustRegister(t, r, newFake("p2", "p1"))

	order, err := r.LoadOrder("p1")
	var cerr *CircularDependencyError
	if !errors.As(err, &cerr) {
		t.Fatalf("LoadOrder = %v, want *CircularDependencyError", err)
	}
	if order != nil {
		t.Errorf("order = %v, want nil on cycle (no silent empty order)", order)
	}
}

func TestValidateDependencies(t *testing.T) {
	r := newTestRegistry(t)
	mustRegister(t, r, newFake("p1"))
	mustRegister(t, r, newFake("p2", "p1", "p3", "p4"))

	err := r.ValidateDependencies("p2")
	var derr *DependencyError
	if !errors.As(err, &derr) {
		t.Fatalf("ValidateDependencies = %v, want *DependencyError", err)
	}
	if !reflect.DeepEqual(derr.Missing, []string{"p3", "p4"}) {
		t.Errorf("Missing = %v, want [p3 p4]", derr.Missing)
	}

	if err := r.ValidateDependencies("p1"); err != nil {
		t.Errorf("ValidateDependencies(p1) = %v, want nil", err)
	}
	if err := r.ValidateDependencies("ghost"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("ValidateDependencies(ghost) = %v, want ErrNotRegistered", err)
	}
}
