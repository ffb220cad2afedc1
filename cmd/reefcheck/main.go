// reefcheck lints a lua plugin directory offline: it validates every
// manifest, reports missing dependencies, and prints the activation order the
// host would use. Exits non-zero on any finding.
//
// Usage:
//
//	reefcheck [-dir plugins]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/reeflab/reef/internal/plugin"
	"github.com/reeflab/reef/internal/scripting"
)

// stubPlugin carries a manifest's metadata through the registry without any
// behavior; reefcheck never runs scripts.
type stubPlugin struct {
	meta plugin.Metadata
}

func (s *stubPlugin) Metadata() plugin.Metadata                         { return s.meta }
func (s *stubPlugin) Initialize(context.Context, *plugin.Context) error { return nil }
func (s *stubPlugin) Algorithms() []plugin.Algorithm                    { return nil }
func (s *stubPlugin) Cleanup(context.Context) error                     { return nil }

func main() {
	dir := flag.String("dir", "plugins", "plugin directory to check")
	flag.Parse()

	if err := run(*dir); err != nil {
		fmt.Fprintf(os.Stderr, "reefcheck: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string) error {
	found, err := scripting.Scan(dir)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return fmt.Errorf("no plugin manifests under %s", dir)
	}

	findings := 0
	registry := plugin.NewRegistry(plugin.Deps{}, zap.NewNop())
	names := make([]string, 0, len(found))

	for _, d := range found {
		meta := d.Manifest.Metadata().Normalized()
		fmt.Printf("%-24s %s (%s)\n", meta.Name, meta.Version, d.Digest[:12])
		if err := plugin.Validate(meta); err != nil {
			fmt.Printf("    INVALID: %v\n", err)
			findings++
			continue
		}
		if err := registry.Register(context.Background(), &stubPlugin{meta: meta}); err != nil {
			fmt.Printf("    REJECTED: %v\n", err)
			findings++
			continue
		}
		names = append(names, meta.Name)
	}

	for _, name := range names {
		if err := registry.ValidateDependencies(name); err != nil {
			var derr *plugin.DependencyError
			if errors.As(err, &derr) {
				fmt.Printf("%-24s MISSING DEPENDENCIES: %v\n", name, derr.Missing)
			} else {
				fmt.Printf("%-24s %v\n", name, err)
			}
			findings++
		}
	}

	order, err := registry.Resolve(names)
	if err != nil {
		var cerr *plugin.CircularDependencyError
		if errors.As(err, &cerr) {
			fmt.Printf("\nDEPENDENCY CYCLE: %v\n", cerr.Members)
		} else {
			fmt.Printf("\nRESOLUTION FAILED: %v\n", err)
		}
		findings++
	} else {
		fmt.Println("\nactivation order:")
		for i, name := range order {
			fmt.Printf("  %2d. %s\n", i+1, name)
		}
	}

	if findings > 0 {
		return fmt.Errorf("%d finding(s)", findings)
	}
	return nil
}
