package plugin

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotRegistered is returned by name-taking registry operations when no
	// entry exists for the name.
	ErrNotRegistered = errors.New("plugin not registered")

	// ErrOperationInFlight rejects a reentrant lifecycle call for a name whose
	// previous call is still suspended in a plugin hook.
	ErrOperationInFlight = errors.New("lifecycle operation already in flight")

	// ErrPluginInError fences load/activate/unload off an entry stuck at
	// StateError; recovery is an explicit unregister + register.
	ErrPluginInError = errors.New("plugin is in error state")
)

// ValidationError reports malformed plugin metadata. Raised before any
// registry mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid metadata: field %q %s", e.Field, e.Reason)
}

// DuplicateRegistrationError reports a name collision on register. Raised
// before any registry mutation.
type DuplicateRegistrationError struct {
	Name string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("plugin %q is already registered", e.Name)
}

// DependencyError reports declared dependencies with no registry entry.
// Raised before any hook runs.
type DependencyError struct {
	Name    string
	Missing []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("plugin %q has missing dependencies: %s",
		e.Name, strings.Join(e.Missing, ", "))
}

// CircularDependencyError reports a dependency cycle. Name is the plugin at
// which the back-edge was detected; Members lists the cycle.
type CircularDependencyError struct {
	Name    string
	Members []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected at plugin %q: %s",
		e.Name, strings.Join(e.Members, " -> "))
}

// HookError wraps a failure from a plugin-supplied lifecycle hook.
type HookError struct {
	Plugin string
	Hook   string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("plugin %q: hook %s: %v", e.Plugin, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }
