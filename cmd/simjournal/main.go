// simjournal inspects and replays tick journals written by simd.
//
// Usage:
//
//	go run ./cmd/simjournal <command> -run <uuid> [-config path]
//
// Commands: checksums, inputs, replay
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/forgesim/server/internal/app"
	"github.com/forgesim/server/internal/config"
	coresys "github.com/forgesim/server/internal/core/system"
	"github.com/forgesim/server/internal/persist"
	"github.com/forgesim/server/internal/system"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func printUsage() {
	fmt.Println("simjournal - inspect and replay simd tick journals")
	fmt.Println()
	fmt.Println("Usage: go run ./cmd/simjournal <command> -run <uuid> [-config path] [-tick n]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  checksums   print the journaled checksum of every tick")
	fmt.Println("  inputs      print the inputs journaled for one tick (-tick)")
	fmt.Println("  replay      rerun the journaled inputs and compare checksums")
}

type options struct {
	cfg  *config.Config
	run  uuid.UUID
	tick uint64
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	if cmd == "-h" || cmd == "--help" || cmd == "help" {
		printUsage()
		return
	}

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	cfgPath := fs.String("config", config.Path("config/simd.toml"), "simd config file")
	runID := fs.String("run", "", "run id printed by simd at startup")
	tick := fs.Uint64("tick", 1, "tick for the inputs command")
	_ = fs.Parse(os.Args[2:])

	commands := map[string]func(context.Context, *persist.JournalRepo, options) error{
		"checksums": printChecksums,
		"inputs":    printInputs,
		"replay":    replay,
	}
	fn, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err := runCommand(fn, *cfgPath, *runID, *tick); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR [%s]: %v\n", cmd, err)
		os.Exit(1)
	}
}

func runCommand(fn func(context.Context, *persist.JournalRepo, options) error, cfgPath, runID string, tick uint64) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	run, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("-run: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := persist.Open(ctx, cfg.Journal, zap.NewNop())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.CheckSchema(ctx); err != nil {
		return err
	}

	return fn(ctx, persist.NewJournalRepo(db), options{cfg: cfg, run: run, tick: tick})
}

func printChecksums(ctx context.Context, repo *persist.JournalRepo, opt options) error {
	sums, err := repo.Checksums(ctx, opt.run)
	if err != nil {
		return err
	}
	for _, s := range sums {
		fmt.Printf("%8d  %016x\n", s.Tick, s.Checksum)
	}
	fmt.Printf("%d ticks\n", len(sums))
	return nil
}

func printInputs(ctx context.Context, repo *persist.JournalRepo, opt options) error {
	ins, err := repo.Inputs(ctx, opt.run, opt.tick)
	if err != nil {
		return err
	}
	for _, in := range ins {
		fmt.Printf("%4d  %-8s %s\n", in.Seq, in.Kind, in.Payload)
	}
	return nil
}

// replay reruns a journaled run from the same content and reports the first
// tick whose checksum differs.
func replay(ctx context.Context, repo *persist.JournalRepo, opt options) error {
	sums, err := repo.Checksums(ctx, opt.run)
	if err != nil {
		return err
	}
	if len(sums) == 0 {
		return fmt.Errorf("run %s has no journaled ticks", opt.run)
	}

	s, err := app.New(opt.cfg, nil, zap.NewNop())
	if err != nil {
		return err
	}
	if err := s.Engine.Start(); err != nil {
		return err
	}

	for _, want := range sums {
		rows, err := repo.Inputs(ctx, opt.run, want.Tick)
		if err != nil {
			return err
		}
		inputs := make([]coresys.Input, 0, len(rows))
		for _, row := range rows {
			in, err := system.DecodeInput(row.Kind, row.Payload)
			if err != nil {
				return fmt.Errorf("tick %d input %d: %w", want.Tick, row.Seq, err)
			}
			inputs = append(inputs, in)
		}
		snap, err := s.Step(inputs)
		if err != nil {
			return fmt.Errorf("tick %d: %w", want.Tick, err)
		}
		if snap.Tick() != want.Tick {
			return fmt.Errorf("journal skips from tick %d to %d", snap.Tick(), want.Tick)
		}
		if got := snap.Checksum(); got != want.Checksum {
			return fmt.Errorf("tick %d diverged: journal %016x, replay %016x", want.Tick, want.Checksum, got)
		}
	}
	fmt.Printf("replayed %d ticks, all checksums match\n", len(sums))
	return nil
}
