// reef is the host daemon: it composes the world, the plugin registry, and
// the discovery service, then drives the tick loop until signalled.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/reeflab/reef/internal/config"
	"github.com/reeflab/reef/internal/core/ecs"
	"github.com/reeflab/reef/internal/core/event"
	"github.com/reeflab/reef/internal/data"
	"github.com/reeflab/reef/internal/persist"
	"github.com/reeflab/reef/internal/plugin"
	"github.com/reeflab/reef/internal/plugins/kinematics"
	"github.com/reeflab/reef/internal/plugins/lifetime"
	"github.com/reeflab/reef/internal/scripting"
	"github.com/reeflab/reef/internal/sim"
	hostsys "github.com/reeflab/reef/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              reef  v" + plugin.CoreVersion + "                  \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        plugin host · entity runtime       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mhost:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	fmt.Printf("  %-28s \033[32m%d\033[0m\n", label, count)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func run() error {
	// 1. Load config
	cfgPath := os.Getenv("REEF_CONFIG")
	if cfgPath == "" {
		cfgPath = "reef.toml"
	}
	cfg, err := config.LoadOrDefaults(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Host.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 3. Persistence (optional)
	var (
		db           *persist.DB
		snapshotRepo *persist.SnapshotRepo
		auditRepo    *persist.AuditRepo
	)
	if cfg.Snapshot.Enabled {
		printSection("database")
		db, err = persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()
		printOK("postgres connected")

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")
		snapshotRepo = persist.NewSnapshotRepo(db)
		auditRepo = persist.NewAuditRepo(db)
		fmt.Println()
	}

	// 4. Core: world, bus, simulation collaborators
	world := ecs.NewWorld(log.Named("ecs"))
	bus := event.NewBus(log.Named("event"))
	simMgr := sim.NewManager(bus, log.Named("sim"))
	params := sim.NewParameterStore(bus, log.Named("params"))
	for name, pc := range cfg.Parameters {
		if err := params.Define(name, pc.Default, pc.Min, pc.Max); err != nil {
			return fmt.Errorf("seed parameter %q: %w", name, err)
		}
	}

	// 5. Plugin registry and observers
	registry := plugin.NewRegistry(plugin.Deps{
		World:  world,
		Events: bus,
		Sim:    simMgr,
		Params: params,
		Render: nil, // rendering collaborator attaches here when present
	}, log.Named("registry"))
	simMgr.Bind(registry)
	params.Bind(registry)

	registry.OnStateChanged(func(sc plugin.StateChange) {
		log.Debug("plugin state changed",
			zap.String("plugin", sc.Name),
			zap.Stringer("from", sc.From),
			zap.Stringer("to", sc.To),
		)
		event.Emit(bus, event.PluginStateChanged{
			Name: sc.Name,
			From: sc.From.String(),
			To:   sc.To.String(),
		})
		if auditRepo != nil {
			if err := auditRepo.Record(context.Background(), sc); err != nil {
				log.Warn("audit record failed", zap.Error(err))
			}
		}
	})
	registry.OnError(func(name string, err error) {
		log.Error("plugin error", zap.String("plugin", name), zap.Error(err))
	})

	// 6. Discovery: built-ins plus lua plugin directory
	printSection("plugins")
	discovery := plugin.NewDiscovery(log.Named("discovery"))
	if err := discovery.RegisterFactory("kinematics", func(ctx context.Context) (plugin.Plugin, error) {
		return kinematics.New(), nil
	}); err != nil {
		return err
	}
	if err := discovery.RegisterFactory("lifetime", func(ctx context.Context) (plugin.Plugin, error) {
		return lifetime.New(), nil
	}); err != nil {
		return err
	}
	luaCount, err := scripting.Install(discovery, cfg.Host.PluginDir, log.Named("scripting"))
	if err != nil {
		return fmt.Errorf("scan plugin dir: %w", err)
	}
	printStat("lua plugins", luaCount)
	printStat("available", len(discovery.Available()))

	// 7. Register and activate the configured set, dependencies first
	registered := make([]string, 0, len(cfg.Host.Autoload))
	for _, name := range cfg.Host.Autoload {
		p, err := discovery.Load(ctx, name)
		if err != nil {
			return fmt.Errorf("autoload: %w", err)
		}
		if err := registry.Register(ctx, p); err != nil {
			return fmt.Errorf("register %q: %w", name, err)
		}
		registered = append(registered, p.Metadata().Name)
	}
	order, err := registry.Resolve(registered)
	if err != nil {
		return fmt.Errorf("resolve activation order: %w", err)
	}
	for _, name := range order {
		if err := registry.Activate(ctx, name); err != nil {
			return fmt.Errorf("activate %q: %w", name, err)
		}
	}
	printStat("active", len(order))
	fmt.Println()

	// 8. World content: snapshot restore or scene seed
	printSection("world")
	restored := false
	if snapshotRepo != nil && cfg.Snapshot.RestoreOnBoot {
		records, id, err := snapshotRepo.LoadLatest(ctx)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if records != nil {
			if err := persist.RestoreWorld(world, records); err != nil {
				return fmt.Errorf("restore snapshot %d: %w", id, err)
			}
			printStat("entities restored", len(records))
			restored = true
		}
	}
	if !restored && cfg.Host.ScenePath != "" {
		scene, err := data.LoadScene(cfg.Host.ScenePath)
		if err != nil {
			return fmt.Errorf("load scene: %w", err)
		}
		printStat("entities seeded", scene.Populate(world))
	}

	// 9. Host systems
	var snapshotSys *hostsys.SnapshotSystem
	if snapshotRepo != nil {
		snapshotSys = hostsys.NewSnapshotSystem(snapshotRepo, cfg.Snapshot.IntervalTicks, cfg.Snapshot.Keep, log.Named("snapshot"))
		world.RegisterSystem(snapshotSys)
	}
	world.RegisterSystem(hostsys.NewStatsSystem(registry, cfg.Stats.IntervalTicks, log.Named("stats")))

	if cfg.Host.Autostart {
		if err := simMgr.Start(ctx); err != nil {
			return fmt.Errorf("start simulation: %w", err)
		}
	}

	// 10. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Host.TickRate)
	defer ticker.Stop()

	printSection("ready")
	printOK(fmt.Sprintf("tick loop running (tick: %s)", cfg.Host.TickRate))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			bus.SwapBuffers()
			bus.DispatchAll()
			if simMgr.Running() {
				world.Update(cfg.Host.TickRate)
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return shutdown(registry, simMgr, snapshotSys, world, log)
		}
	}
}

// shutdown deactivates and unloads every plugin in reverse dependency order,
// then takes a final snapshot.
func shutdown(registry *plugin.Registry, simMgr *sim.Manager, snapshotSys *hostsys.SnapshotSystem, world *ecs.World, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, simMgr.Stop(ctx))
	errs = multierr.Append(errs, registry.DeactivateAll(ctx))
	errs = multierr.Append(errs, registry.UnloadAll(ctx))
	if snapshotSys != nil {
		errs = multierr.Append(errs, snapshotSys.SaveNow(ctx, world))
	}
	if errs != nil {
		log.Warn("shutdown finished with errors", zap.Error(errs))
	} else {
		log.Info("host stopped")
	}
	return errs
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
