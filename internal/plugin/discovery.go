package plugin

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

var (
	ErrFactoryExists = errors.New("plugin factory already registered")
	ErrNilFactory    = errors.New("plugin factory is nil")
)

// Factory builds a fresh plugin instance.
type Factory func(ctx context.Context) (Plugin, error)

// PluginLoadError normalizes every way a factory can fail — unknown name,
// returned error, nil result, panic — into one shape.
type PluginLoadError struct {
	Name string
	Err  error
}

func (e *PluginLoadError) Error() string {
	return fmt.Sprintf("load plugin %q: %v", e.Name, e.Err)
}

func (e *PluginLoadError) Unwrap() error { return e.Err }

// Discovery is a static name→factory registry. No filesystem or network
// probing happens here; whoever knows how to build a plugin registers a
// factory up front.
type Discovery struct {
	factories map[string]Factory
	log       *zap.Logger
}

func NewDiscovery(log *zap.Logger) *Discovery {
	return &Discovery{
		factories: make(map[string]Factory, 16),
		log:       log,
	}
}

func (d *Discovery) RegisterFactory(name string, fn Factory) error {
	if fn == nil {
		return fmt.Errorf("factory %q: %w", name, ErrNilFactory)
	}
	if _, ok := d.factories[name]; ok {
		return fmt.Errorf("factory %q: %w", name, ErrFactoryExists)
	}
	d.factories[name] = fn
	d.log.Debug("plugin factory registered", zap.String("plugin", name))
	return nil
}

// Available returns the known factory names, sorted.
func (d *Discovery) Available() []string {
	out := make([]string, 0, len(d.factories))
	for name := range d.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Discover enumerates loadable plugins. For a static registry this is exactly
// the factory list.
func (d *Discovery) Discover() []string {
	return d.Available()
}

// Load builds a plugin instance by name.
func (d *Discovery) Load(ctx context.Context, name string) (p Plugin, err error) {
	fn, ok := d.factories[name]
	if !ok {
		return nil, &PluginLoadError{Name: name, Err: errors.New("unknown plugin")}
	}
	defer func() {
		if rec := recover(); rec != nil {
			d.log.Error("plugin factory panic recovered",
				zap.String("plugin", name),
				zap.Any("panic", rec),
			)
			p, err = nil, &PluginLoadError{Name: name, Err: fmt.Errorf("factory panic: %v", rec)}
		}
	}()
	p, ferr := fn(ctx)
	if ferr != nil {
		return nil, &PluginLoadError{Name: name, Err: ferr}
	}
	if p == nil {
		return nil, &PluginLoadError{Name: name, Err: errors.New("factory returned nil plugin")}
	}
	return p, nil
}
