package plugin

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
)

func okFactory(name string) Factory {
	return func(ctx context.Context) (Plugin, error) {
		return &barePlugin{meta: Metadata{
			Name:         name,
			Version:      "1.0.0",
			Dependencies: []string{},
			CoreVersion:  "1.0.0",
		}}, nil
	}
}

func TestDiscoveryRegisterFactory(t *testing.T) {
	d := NewDiscovery(zap.NewNop())
	if err := d.RegisterFactory("kinematics", okFactory("kinematics")); err != nil {
		t.Fatalf("RegisterFactory = %v", err)
	}
	if err := d.RegisterFactory("kinematics", okFactory("kinematics")); !errors.Is(err, ErrFactoryExists) {
		t.Errorf("duplicate RegisterFactory = %v, want ErrFactoryExists", err)
	}
	if err := d.RegisterFactory("nil", nil); !errors.Is(err, ErrNilFactory) {
		t.Errorf("nil RegisterFactory = %v, want ErrNilFactory", err)
	}
}

func TestDiscoverListsSorted(t *testing.T) {
	d := NewDiscovery(zap.NewNop())
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := d.RegisterFactory(name, okFactory(name)); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"alpha", "mid", "zeta"}
	if got := d.Discover(); !reflect.DeepEqual(got, want) {
		t.Errorf("Discover() = %v, want %v", got, want)
	}
}

func TestLoadNormalizesFailures(t *testing.T) {
	d := NewDiscovery(zap.NewNop())
	_ = d.RegisterFactory("errs", func(ctx context.Context) (Plugin, error) {
		return nil, errors.New("nope")
	})
	_ = d.RegisterFactory("nilp", func(ctx context.Context) (Plugin, error) {
		return nil, nil
	})
	_ = d.RegisterFactory("panics", func(ctx context.Context) (Plugin, error) {
		panic("factory exploded")
	})

	for _, name := range []string{"unknown", "errs", "nilp", "panics"} {
		t.Run(name, func(t *testing.T) {
			p, err := d.Load(context.Background(), name)
			if p != nil {
				t.Errorf("Load(%s) returned a plugin alongside failure", name)
			}
			var lerr *PluginLoadError
			if !errors.As(err, &lerr) {
				t.Fatalf("Load(%s) = %v, want *PluginLoadError", name, err)
			}
			if lerr.Name != name {
				t.Errorf("error names %q, want %q", lerr.Name, name)
			}
		})
	}
}

func TestLoadSuccess(t *testing.T) {
	d := NewDiscovery(zap.NewNop())
	_ = d.RegisterFactory("ok", okFactory("ok"))
	p, err := d.Load(context.Background(), "ok")
	if err != nil {
		t.Fatalf("Load = %v", err)
	}
	if p.Metadata().Name != "ok" {
		t.Errorf("loaded plugin name = %q, want ok", p.Metadata().Name)
	}
}
