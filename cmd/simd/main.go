package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/forgesim/server/internal/app"
	"github.com/forgesim/server/internal/config"
	"github.com/forgesim/server/internal/core/event"
	"github.com/forgesim/server/internal/persist"
	"github.com/forgesim/server/internal/sim"
	"github.com/forgesim/server/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
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
	fmt.Println("\033[36;1m  │\033[0m              forgesim  simd               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mSimulation:\033[0m %s\n\n", name)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Daemon ────────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path("config/simd.toml"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Simulation.Name)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tick journal
	var opts []sim.Option
	if cfg.Journal.Enabled {
		printSection("Journal")
		db, err := openJournal(ctx, cfg.Journal, log)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		defer db.Close()
		opts = append(opts, sim.WithRecorder(persist.NewJournalRepo(db)))
		printOK("PostgreSQL connected")
		printOK("journal schema migrated")
		fmt.Println()
	}

	// 4. Content, systems and engine
	printSection("Content")
	s, err := app.New(cfg, nil, log, opts...)
	if err != nil {
		return err
	}
	printStat("data kinds", s.Registry.Len())
	printStat("templates", s.Templates.Count())
	fmt.Println()

	engine := s.Engine
	event.Listen(engine.Events(), func(ev sim.EntityDestroyed) error {
		log.Debug("entity destroyed", zap.Uint64("tick", ev.Tick), zap.Uint64("entity", uint64(ev.Entity)))
		return nil
	})
	if err := engine.Start(); err != nil {
		return err
	}

	printSection("Ready")
	printStat("systems", len(s.Runner.Infos()))
	printStat("entities", s.Spawner.Spawned())
	printReady(fmt.Sprintf("run %s", engine.RunID()))
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Simulation.TickRate))
	fmt.Println()

	// 5. Tick loop and command stream
	queue := sim.NewInputQueue(cfg.Simulation.InputQueueSize)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tickLoop(gctx, engine, queue, cfg.Simulation, log)
	})
	g.Go(func() error {
		return readCommands(gctx, os.Stdin, queue, s.Spawner, log)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if snap := engine.Published(); snap != nil {
		log.Info("simulation stopped",
			zap.Uint64("tick", snap.Tick()),
			zap.Uint64("checksum", snap.Checksum()),
			zap.Uint64("dropped_inputs", queue.Dropped()),
		)
	}
	return nil
}

func openJournal(ctx context.Context, cfg config.JournalConfig, log *zap.Logger) (*persist.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db, err := persist.Open(ctx, cfg, log.Named("journal"))
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

// tickLoop runs Update then SynchronizeState on every tick until ctx ends.
// A tick in flight always finishes; only the wait between ticks is cut short.
func tickLoop(ctx context.Context, engine *sim.Engine, queue *sim.InputQueue, cfg config.SimulationConfig, log *zap.Logger) error {
	ticker := time.NewTicker(cfg.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown requested")
			return nil
		case <-ticker.C:
		}

		inputs := queue.Drain(cfg.MaxInputsPerTick)
		if err := <-engine.Update(inputs); err != nil {
			return fmt.Errorf("update: %w", err)
		}
		if err := <-engine.SynchronizeState(); err != nil {
			// Recorder failures leave the tick published.
			log.Warn("synchronize", zap.Error(err))
		}

		snap := engine.Published()
		if cfg.SnapshotEvery > 0 && snap.Tick()%cfg.SnapshotEvery == 0 {
			log.Info("tick",
				zap.Uint64("tick", snap.Tick()),
				zap.Int("active", len(snap.Active())),
				zap.Uint64("checksum", snap.Checksum()),
				zap.Int("queued", queue.Len()),
			)
		}
	}
}

// readCommands reads one JSON command per line from r and queues it.
// Malformed lines and spawns of unknown templates are logged and skipped.
func readCommands(ctx context.Context, r io.Reader, queue *sim.InputQueue, spawner *system.SpawnSystem, log *zap.Logger) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil && !errors.Is(err, os.ErrClosed) {
						log.Warn("command stream", zap.Error(err))
					}
				default:
				}
				return nil
			}
			if len(strings.TrimSpace(string(line))) == 0 {
				continue
			}
			in, err := system.DecodeCommand(line)
			if err != nil {
				log.Warn("bad command", zap.Error(err))
				continue
			}
			if req, ok := in.(system.SpawnInput); ok {
				if _, known := spawner.Lookup(req.Template); !known {
					log.Warn("unknown template", zap.String("template", req.Template))
					continue
				}
			}
			if !queue.Push(in) {
				log.Warn("input queue full", zap.String("kind", in.Kind()))
			}
		}
	}
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
