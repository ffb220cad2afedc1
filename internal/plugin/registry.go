package plugin

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/core/ecs"
	"github.com/reeflab/reef/internal/core/event"
)

// State is a plugin's lifecycle position.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateActive
	StateError
	StateUnloading
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "Unloaded"
	case StateLoading:
		return "Loading"
	case StateLoaded:
		return "Loaded"
	case StateActive:
		return "Active"
	case StateError:
		return "Error"
	case StateUnloading:
		return "Unloading"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Entry is one plugin's registry record. Returned by value from queries;
// mutation happens only inside the registry.
type Entry struct {
	Plugin   Plugin
	Metadata Metadata
	LoadedAt time.Time
	Context  *Context
	State    State
	Err      error

	// inflight marks a lifecycle operation suspended in a plugin hook; other
	// operations on the same name are rejected until it clears.
	inflight bool
	// cleanupFailed marks a zombie whose Cleanup threw; the next Unregister
	// deletes it without calling Cleanup again.
	cleanupFailed bool
}

// StateChange describes one lifecycle transition, delivered synchronously to
// state observers.
type StateChange struct {
	Name string
	From State
	To   State
	Err  error
	At   time.Time
}

// Deps supplies the collaborators baked into every plugin's Context.
type Deps struct {
	World  *ecs.World
	Events *event.Bus
	Sim    SimulationManager
	Params ParameterManager
	Render any
}

// Registry is the six-state plugin lifecycle machine. Single-goroutine access
// only (host loop); it holds no locks. Hooks receive the caller's context and
// may block indefinitely — no deadline is applied here, so a hook that never
// returns wedges its entry at Loading/Unloading. Known limitation; bound the
// context if that matters to you.
type Registry struct {
	deps     Deps
	entries  map[string]*Entry
	order    []string // registration order, for deterministic iteration
	stateObs []func(StateChange)
	errorObs []func(name string, err error)
	log      *zap.Logger
}

func NewRegistry(deps Deps, log *zap.Logger) *Registry {
	return &Registry{
		deps:    deps,
		entries: make(map[string]*Entry, 16),
		log:     log,
	}
}

// OnStateChanged registers an observer for lifecycle transitions. Observers
// run synchronously, each recovered individually so one bad observer cannot
// block delivery or abort a transition.
func (r *Registry) OnStateChanged(fn func(StateChange)) {
	r.stateObs = append(r.stateObs, fn)
}

// OnError registers an observer for hook failures.
func (r *Registry) OnError(fn func(name string, err error)) {
	r.errorObs = append(r.errorObs, fn)
}

// Register validates the plugin's metadata, inserts an entry, and runs
// Initialize. A failed Initialize leaves the entry at StateError with the
// captured cause; diagnostic history is never silently deleted, and clearing
// the entry takes an explicit Unregister.
func (r *Registry) Register(ctx context.Context, p Plugin) error {
	meta := p.Metadata().Normalized()
	if existing, ok := r.entries[meta.Name]; ok {
		if existing.inflight {
			return fmt.Errorf("plugin %q: %w", meta.Name, ErrOperationInFlight)
		}
		return &DuplicateRegistrationError{Name: meta.Name}
	}
	if err := Validate(meta); err != nil {
		return err
	}

	pc := &Context{
		World:  r.deps.World,
		Events: r.deps.Events,
		Sim:    r.deps.Sim,
		Params: r.deps.Params,
		Render: r.deps.Render,
		Log:    r.log.Named(meta.Name),
	}
	e := &Entry{
		Plugin:   p,
		Metadata: meta,
		Context:  pc,
		State:    StateLoading,
		inflight: true,
	}
	r.entries[meta.Name] = e
	r.order = append(r.order, meta.Name)
	r.notifyState(StateChange{Name: meta.Name, From: StateUnloaded, To: StateLoading, At: time.Now()})

	err := r.callHook(meta.Name, "initialize", func() error {
		return p.Initialize(ctx, pc)
	})
	e.inflight = false
	if err != nil {
		r.fail(e, err)
		return err
	}
	e.State = StateLoaded
	e.LoadedAt = time.Now()
	r.notifyState(StateChange{Name: meta.Name, From: StateLoading, To: StateLoaded, At: e.LoadedAt})
	r.log.Info("plugin registered",
		zap.String("plugin", meta.Name),
		zap.String("version", meta.Version),
	)
	return nil
}

// Load transitions an unloaded plugin to Loaded, running its optional OnLoad
// hook. A no-op when already Loaded or Active.
func (r *Registry) Load(ctx context.Context, name string) error {
	e, err := r.entry(name)
	if err != nil {
		return err
	}
	switch e.State {
	case StateLoaded, StateActive:
		return nil
	case StateError:
		return fmt.Errorf("plugin %q: %w", name, ErrPluginInError)
	}

	from := e.State
	e.State = StateLoading
	e.inflight = true
	r.notifyState(StateChange{Name: name, From: from, To: StateLoading, At: time.Now()})

	var hookErr error
	if h, ok := e.Plugin.(LoadHook); ok {
		hookErr = r.callHook(name, "on_load", func() error { return h.OnLoad(ctx) })
	}
	e.inflight = false
	if hookErr != nil {
		r.fail(e, hookErr)
		return hookErr
	}
	e.State = StateLoaded
	e.LoadedAt = time.Now()
	r.notifyState(StateChange{Name: name, From: StateLoading, To: StateLoaded, At: e.LoadedAt})
	return nil
}

// Activate brings a plugin to Active. It loads first if needed, then checks
// that every declared dependency is registered and that the dependency
// closure is acyclic — both before any hook runs, so a failed check leaves
// the plugin at Loaded. A cycle is reported as a CircularDependencyError,
// never an empty order.
func (r *Registry) Activate(ctx context.Context, name string) error {
	e, err := r.entry(name)
	if err != nil {
		return err
	}
	switch e.State {
	case StateActive:
		return nil
	case StateError:
		return fmt.Errorf("plugin %q: %w", name, ErrPluginInError)
	case StateUnloaded:
		if err := r.Load(ctx, name); err != nil {
			return err
		}
	}

	if err := r.ValidateDependencies(name); err != nil {
		return err
	}
	if _, err := r.LoadOrder(name); err != nil {
		return err
	}

	e.inflight = true
	var hookErr error
	if h, ok := e.Plugin.(ActivateHook); ok {
		hookErr = r.callHook(name, "on_activate", func() error { return h.OnActivate(ctx) })
	}
	e.inflight = false
	if hookErr != nil {
		r.fail(e, hookErr)
		return hookErr
	}
	from := e.State
	e.State = StateActive
	r.notifyState(StateChange{Name: name, From: from, To: StateActive, At: time.Now()})
	r.log.Info("plugin activated", zap.String("plugin", name))
	return nil
}

// Deactivate returns an active plugin to Loaded. Idempotent: anything not
// Active is left alone.
func (r *Registry) Deactivate(ctx context.Context, name string) error {
	e, err := r.entry(name)
	if err != nil {
		return err
	}
	if e.State != StateActive {
		return nil
	}

	e.inflight = true
	var hookErr error
	if h, ok := e.Plugin.(DeactivateHook); ok {
		hookErr = r.callHook(name, "on_deactivate", func() error { return h.OnDeactivate(ctx) })
	}
	e.inflight = false
	if hookErr != nil {
		r.fail(e, hookErr)
		return hookErr
	}
	e.State = StateLoaded
	r.notifyState(StateChange{Name: name, From: StateActive, To: StateLoaded, At: time.Now()})
	return nil
}

// Unload takes a plugin back to Unloaded, cascading through Deactivate when
// it is Active.
func (r *Registry) Unload(ctx context.Context, name string) error {
	e, err := r.entry(name)
	if err != nil {
		return err
	}
	switch e.State {
	case StateUnloaded:
		return nil
	case StateError:
		return fmt.Errorf("plugin %q: %w", name, ErrPluginInError)
	case StateActive:
		if err := r.Deactivate(ctx, name); err != nil {
			return err
		}
	}

	from := e.State
	e.State = StateUnloading
	e.inflight = true
	r.notifyState(StateChange{Name: name, From: from, To: StateUnloading, At: time.Now()})

	var hookErr error
	if h, ok := e.Plugin.(UnloadHook); ok {
		hookErr = r.callHook(name, "on_unload", func() error { return h.OnUnload(ctx) })
	}
	e.inflight = false
	if hookErr != nil {
		r.fail(e, hookErr)
		return hookErr
	}
	e.State = StateUnloaded
	r.notifyState(StateChange{Name: name, From: StateUnloading, To: StateUnloaded, At: time.Now()})
	return nil
}

// Unregister runs Cleanup and deletes the entry. If Cleanup fails the entry
// is retained at StateError and the error returned; a second Unregister then
// deletes it outright without calling Cleanup again. This is the one recovery
// path that works from any state, including StateError.
func (r *Registry) Unregister(ctx context.Context, name string) error {
	e, err := r.entry(name)
	if err != nil {
		return err
	}
	if e.cleanupFailed {
		r.delete(name)
		r.log.Info("zombie plugin entry cleared", zap.String("plugin", name))
		return nil
	}
	if e.State == StateActive {
		// Best effort: let the plugin tear its systems down before Cleanup.
		// A failing OnDeactivate must not wedge the recovery path.
		if err := r.Deactivate(ctx, name); err != nil {
			r.log.Warn("deactivate during unregister failed, continuing to cleanup",
				zap.String("plugin", name), zap.Error(err))
		}
	}

	e.inflight = true
	hookErr := r.callHook(name, "cleanup", func() error { return e.Plugin.Cleanup(ctx) })
	e.inflight = false
	if hookErr != nil {
		e.cleanupFailed = true
		r.fail(e, hookErr)
		return hookErr
	}
	r.delete(name)
	r.notifyState(StateChange{Name: name, From: e.State, To: StateUnloaded, At: time.Now()})
	r.log.Info("plugin unregistered", zap.String("plugin", name))
	return nil
}

// DeactivateAll deactivates every active plugin in reverse dependency order,
// aggregating failures.
func (r *Registry) DeactivateAll(ctx context.Context) error {
	var errs error
	for _, name := range r.reverseOrder() {
		if e, ok := r.entries[name]; ok && e.State == StateActive {
			errs = multierr.Append(errs, r.Deactivate(ctx, name))
		}
	}
	return errs
}

// UnloadAll unloads every plugin in reverse dependency order, aggregating
// failures. Entries at StateError are skipped; they stay queryable until an
// explicit Unregister.
func (r *Registry) UnloadAll(ctx context.Context) error {
	var errs error
	for _, name := range r.reverseOrder() {
		e, ok := r.entries[name]
		if !ok || e.State == StateUnloaded || e.State == StateError {
			continue
		}
		errs = multierr.Append(errs, r.Unload(ctx, name))
	}
	return errs
}

// BroadcastParameterChanged delivers a parameter change to every active
// plugin implementing ParameterObserver. Hook errors are reported to error
// observers but never change lifecycle state.
func (r *Registry) BroadcastParameterChanged(ctx context.Context, param string, value float64) {
	for _, name := range r.order {
		e := r.entries[name]
		if e == nil || e.State != StateActive {
			continue
		}
		obs, ok := e.Plugin.(ParameterObserver)
		if !ok {
			continue
		}
		if err := r.callHook(name, "on_parameter_changed", func() error {
			return obs.OnParameterChanged(ctx, param, value)
		}); err != nil {
			r.log.Warn("parameter observer failed",
				zap.String("plugin", name), zap.String("parameter", param), zap.Error(err))
			r.notifyError(name, err)
		}
	}
}

// BroadcastSimulationState delivers a run-state change to every active plugin
// implementing SimulationObserver.
func (r *Registry) BroadcastSimulationState(ctx context.Context, state SimulationState) {
	for _, name := range r.order {
		e := r.entries[name]
		if e == nil || e.State != StateActive {
			continue
		}
		obs, ok := e.Plugin.(SimulationObserver)
		if !ok {
			continue
		}
		if err := r.callHook(name, "on_simulation_state_changed", func() error {
			return obs.OnSimulationStateChanged(ctx, state)
		}); err != nil {
			r.log.Warn("simulation observer failed",
				zap.String("plugin", name), zap.Stringer("state", state), zap.Error(err))
			r.notifyError(name, err)
		}
	}
}

// ─── queries ───

// State returns a plugin's lifecycle state.
func (r *Registry) State(name string) (State, error) {
	e, err := r.entry(name)
	if err != nil {
		return StateUnloaded, err
	}
	return e.State, nil
}

// States returns every plugin's state in one map.
func (r *Registry) States() map[string]State {
	out := make(map[string]State, len(r.entries))
	for name, e := range r.entries {
		out[name] = e.State
	}
	return out
}

// Entry returns a copy of the registry record for the name.
func (r *Registry) Entry(name string) (Entry, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Get returns the plugin instance for the name.
func (r *Registry) Get(name string) (Plugin, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.Plugin, true
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for name := range r.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ─── internals ───

func (r *Registry) entry(name string) (*Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrNotRegistered)
	}
	if e.inflight {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrOperationInFlight)
	}
	return e, nil
}

func (r *Registry) delete(name string) {
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// fail moves an entry to StateError with the captured cause and broadcasts
// the error once.
func (r *Registry) fail(e *Entry, err error) {
	from := e.State
	e.State = StateError
	e.Err = err
	r.notifyState(StateChange{Name: e.Metadata.Name, From: from, To: StateError, Err: err, At: time.Now()})
	r.notifyError(e.Metadata.Name, err)
	r.log.Error("plugin lifecycle failure",
		zap.String("plugin", e.Metadata.Name),
		zap.Stringer("from", from),
		zap.Error(err),
	)
}

// callHook runs one plugin hook, converting errors and panics into HookError.
func (r *Registry) callHook(name, hook string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("plugin hook panic recovered",
				zap.String("plugin", name),
				zap.String("hook", hook),
				zap.Any("panic", rec),
			)
			err = &HookError{Plugin: name, Hook: hook, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	if hookErr := fn(); hookErr != nil {
		return &HookError{Plugin: name, Hook: hook, Err: hookErr}
	}
	return nil
}

func (r *Registry) notifyState(sc StateChange) {
	for _, fn := range r.stateObs {
		r.safeObserve(func() { fn(sc) })
	}
}

func (r *Registry) notifyError(name string, err error) {
	for _, fn := range r.errorObs {
		r.safeObserve(func() { fn(name, err) })
	}
}

func (r *Registry) safeObserve(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("registry observer panic recovered", zap.Any("panic", rec))
		}
	}()
	fn()
}

// reverseOrder returns all names dependency-last → dependency-first. When the
// graph has a cycle there is no valid order; fall back to reverse
// registration order so bulk shutdown still terminates.
func (r *Registry) reverseOrder() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	ordered, err := r.Resolve(names)
	if err != nil {
		r.log.Warn("dependency order unavailable for bulk operation, using registration order", zap.Error(err))
		ordered = names
	}
	for i, j := 0, len(ordered)-1; i < j; i, j = i+1, j-1 {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	}
	return ordered
}
