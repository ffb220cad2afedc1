package plugin

import "fmt"

// Dependency resolution over the implicit graph formed by each plugin's
// declared dependency names.

// Resolve topologically sorts the given names, restricted to that set: a
// declared dependency outside the input is ignored, one inside it is visited
// first. Dependencies always precede dependents. A back-edge raises
// CircularDependencyError; there is no partial-order fallback. Traversal is
// deterministic in input order.
func (r *Registry) Resolve(names []string) ([]string, error) {
	inSet := make(map[string]bool, len(names))
	for _, n := range names {
		inSet[n] = true
	}

	const (
		unvisited = iota
		visiting
		done
	)
	mark := make(map[string]int, len(names))
	stack := make([]string, 0, len(names))
	out := make([]string, 0, len(names))

	var visit func(name string) error
	visit = func(name string) error {
		switch mark[name] {
		case done:
			return nil
		case visiting:
			return &CircularDependencyError{Name: name, Members: cycleFrom(stack, name)}
		}
		mark[name] = visiting
		stack = append(stack, name)
		if e, ok := r.entries[name]; ok {
			for _, dep := range e.Metadata.Dependencies {
				if !inSet[dep] {
					continue
				}
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		mark[name] = done
		out = append(out, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// cycleFrom slices the visitation stack from the first occurrence of name,
// yielding the cycle's membership.
func cycleFrom(stack []string, name string) []string {
	for i, n := range stack {
		if n == name {
			members := make([]string, len(stack)-i, len(stack)-i+1)
			copy(members, stack[i:])
			return append(members, name)
		}
	}
	return []string{name}
}

// LoadOrder computes the activation order for one plugin: the closure of its
// registered dependencies, topologically sorted. A cycle anywhere in the
// closure propagates as CircularDependencyError — never an empty order.
func (r *Registry) LoadOrder(name string) ([]string, error) {
	closure := make([]string, 0, 8)
	seen := make(map[string]bool, 8)

	var collect func(n string)
	collect = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		closure = append(closure, n)
		if e, ok := r.entries[n]; ok {
			for _, dep := range e.Metadata.Dependencies {
				if _, registered := r.entries[dep]; registered {
					collect(dep)
				}
			}
		}
	}
	collect(name)

	return r.Resolve(closure)
}

// ValidateDependencies checks that every declared dependency of name has some
// registry entry. Existence only; ordering is LoadOrder's concern.
func (r *Registry) ValidateDependencies(name string) error {
	e, ok := r.entries[name]
	if !ok {
		return fmt.Errorf("plugin %q: %w", name, ErrNotRegistered)
	}
	var missing []string
	for _, dep := range e.Metadata.Dependencies {
		if _, registered := r.entries[dep]; !registered {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Name: name, Missing: missing}
	}
	return nil
}
