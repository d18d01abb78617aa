package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/forgesim/server/internal/core/ecs"
	"github.com/forgesim/server/internal/core/event"
	"github.com/forgesim/server/internal/core/system"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is the position of the engine in its tick cycle.
type State int32

const (
	StateIdle          State = iota // no tick in flight; published view stable
	StateUpdating                   // a tick is being computed
	StateUpdated                    // tick computed, waiting for SynchronizeState
	StateSynchronizing              // publishing the computed tick
	StateFaulted                    // a tick aborted; the engine accepts no more work
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUpdating:
		return "updating"
	case StateUpdated:
		return "updated"
	case StateSynchronizing:
		return "synchronizing"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Usage errors reported on completion channels.
var (
	ErrNotStarted           = errors.New("engine not started")
	ErrAlreadyStarted       = errors.New("engine already started")
	ErrTickInFlight         = errors.New("tick in flight")
	ErrNotSynchronized      = errors.New("previous tick not synchronized")
	ErrNothingToSynchronize = errors.New("no tick to synchronize")
	ErrEngineFaulted        = errors.New("engine faulted")
)

const defaultRecordTimeout = 5 * time.Second

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder records every published tick.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithRecordTimeout bounds a single Recorder call.
func WithRecordTimeout(d time.Duration) Option {
	return func(e *Engine) { e.recordTimeout = d }
}

// WithRunID overrides the generated run id.
func WithRunID(id uuid.UUID) Option {
	return func(e *Engine) { e.runID = id }
}

// Engine is the tick pipeline. Update computes a tick on its own goroutine;
// SynchronizeState publishes it. Readers only ever see published snapshots.
type Engine struct {
	world         *ecs.World
	runner        *system.Runner
	log           *zap.Logger
	recorder      Recorder
	recordTimeout time.Duration
	runID         uuid.UUID
	events        *event.Notifier

	started atomic.Bool
	state   atomic.Int32
	// mu is held while a tick is computed and while callers mutate the
	// world, making the update goroutine the only writer at any time.
	mu sync.Mutex

	tick          uint64
	fault         error
	pending       *Snapshot
	pendingInputs []system.Input
	published     atomic.Pointer[Snapshot]

	templates map[ecs.TemplateID]*ecs.TemplateSnapshot
	tmplOrder []ecs.TemplateID
}

func New(world *ecs.World, runner *system.Runner, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		world:         world,
		runner:        runner,
		log:           log,
		recordTimeout: defaultRecordTimeout,
		runID:         uuid.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.events = event.NewNotifier(world.Events())
	e.log = e.log.With(zap.String("run", e.runID.String()))
	return e
}

// RunID identifies this engine instance in journals.
func (e *Engine) RunID() uuid.UUID { return e.runID }

// State returns the current pipeline state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Events returns the engine notifier carrying EntityCreated,
// EntityDestroyed and TickCompleted. Listeners run on the update goroutine.
func (e *Engine) Events() *event.Notifier { return e.events }

// Start freezes templates, schedules the systems and runs EngineLoaded
// hooks, then publishes the initial snapshot. A scheduling cycle is fatal.
func (e *Engine) Start() error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.world.Freeze()
	e.templates = make(map[ecs.TemplateID]*ecs.TemplateSnapshot, len(e.world.Templates()))
	for _, t := range e.world.Templates() {
		e.templates[t.ID()] = t.Capture()
		e.tmplOrder = append(e.tmplOrder, t.ID())
	}

	ctx := &system.Context{World: e.world, Tick: 0, Log: e.log}
	if err := e.runner.Load(ctx); err != nil {
		e.fail(err)
		return fmt.Errorf("start engine: %w", err)
	}
	e.published.Store(e.capture())
	e.state.Store(int32(StateIdle))
	e.log.Info("engine started",
		zap.Int("templates", len(e.tmplOrder)),
		zap.Int("entities", e.world.Len()),
	)
	return nil
}

func (e *Engine) fail(err error) {
	e.fault = err
	e.state.Store(int32(StateFaulted))
}

// usageError explains why the engine refused to move out of a state.
func (e *Engine) usageError(want State) error {
	if !e.started.Load() {
		return ErrNotStarted
	}
	switch cur := e.State(); cur {
	case StateFaulted:
		return fmt.Errorf("%w: %v", ErrEngineFaulted, e.fault)
	case StateUpdating, StateSynchronizing:
		return ErrTickInFlight
	case StateUpdated:
		return ErrNotSynchronized
	case StateIdle:
		return ErrNothingToSynchronize
	default:
		return fmt.Errorf("engine in state %s, want %s", cur, want)
	}
}

func failed(err error) <-chan error {
	ch := make(chan error, 1)
	ch <- err
	close(ch)
	return ch
}

// Update runs one tick over inputs on the update goroutine. The returned
// channel yields nil or the error that aborted the tick, then closes. The
// previous tick must have been synchronized.
func (e *Engine) Update(inputs []system.Input) <-chan error {
	if !e.started.Load() || !e.state.CompareAndSwap(int32(StateIdle), int32(StateUpdating)) {
		return failed(e.usageError(StateIdle))
	}
	e.mu.Lock()
	in := append([]system.Input(nil), inputs...)
	done := make(chan error, 1)
	go func() {
		defer close(done)
		next := e.tick + 1
		start := time.Now()
		err := e.runTick(next, in)
		e.mu.Unlock()
		if err != nil {
			e.log.Error("tick aborted", zap.Uint64("tick", next), zap.Error(err))
			e.fail(err)
			done <- fmt.Errorf("tick %d aborted: %w", next, err)
			return
		}
		e.log.Debug("tick computed",
			zap.Uint64("tick", next),
			zap.Int("inputs", len(in)),
			zap.Duration("took", time.Since(start)),
		)
		e.state.Store(int32(StateUpdated))
		done <- nil
	}()
	return done
}

func (e *Engine) runTick(next uint64, inputs []system.Input) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	ch, err := e.world.Commit()
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	ctx := &system.Context{World: e.world, Tick: next, Log: e.log}
	if err := e.runner.Dispatch(ctx, ch, inputs); err != nil {
		return err
	}
	if err := e.world.ResolveConcurrent(); err != nil {
		return err
	}

	for _, ent := range ch.Added {
		e.events.Submit(EntityCreated{Tick: next, Entity: ent.ID()})
	}
	for _, ent := range ch.Removed {
		e.events.Submit(EntityDestroyed{Tick: next, Entity: ent.ID()})
	}
	e.events.Submit(TickCompleted{
		Tick:    next,
		Inputs:  len(inputs),
		Active:  len(e.world.Active()),
		Added:   len(ch.Added),
		Removed: len(ch.Removed),
	})
	if err := e.world.Events().DispatchAll(); err != nil {
		return fmt.Errorf("events: %w", err)
	}

	e.tick = next
	e.pending = e.capture()
	e.pendingInputs = inputs
	return nil
}

// SynchronizeState publishes the computed tick with a single pointer swap,
// then hands it to the recorder. A recorder failure is reported but the
// tick stays published.
func (e *Engine) SynchronizeState() <-chan error {
	if !e.started.Load() || !e.state.CompareAndSwap(int32(StateUpdated), int32(StateSynchronizing)) {
		return failed(e.usageError(StateUpdated))
	}
	done := make(chan error, 1)
	go func() {
		defer close(done)
		snap, inputs := e.pending, e.pendingInputs
		e.pending, e.pendingInputs = nil, nil
		e.published.Store(snap)

		var err error
		if e.recorder != nil {
			ctx, cancel := context.WithTimeout(context.Background(), e.recordTimeout)
			err = e.recorder.Record(ctx, TickRecord{
				RunID:    e.runID,
				Tick:     snap.Tick(),
				Inputs:   inputs,
				Checksum: snap.Checksum(),
				Active:   len(snap.Active()),
			})
			cancel()
			if err != nil {
				e.log.Warn("record tick", zap.Uint64("tick", snap.Tick()), zap.Error(err))
				err = fmt.Errorf("record tick %d: %w", snap.Tick(), err)
			}
		}
		e.state.Store(int32(StateIdle))
		done <- err
	}()
	return done
}

// Published returns the last published snapshot without blocking. It is nil
// before Start.
func (e *Engine) Published() *Snapshot { return e.published.Load() }

// GetSnapshot waits until no tick is being computed and returns a deep copy
// of the published snapshot. It is expensive and not meant for every tick.
func (e *Engine) GetSnapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s := e.published.Load(); s != nil {
		return s.Clone()
	}
	return nil
}

// Mutate runs fn against the world while no tick is being computed. Changes
// become visible to systems at the next Update. It is the only safe way to
// touch the world from outside a hook once the engine runs.
func (e *Engine) Mutate(fn func(w *ecs.World) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.State() == StateFaulted {
		return fmt.Errorf("%w: %v", ErrEngineFaulted, e.fault)
	}
	return fn(e.world)
}

func (e *Engine) capture() *Snapshot {
	active := e.world.Active()
	removed := e.world.Removed()
	s := &Snapshot{
		tick:      e.tick,
		accessors: e.world.Accessors(),
		entities:  make(map[ecs.EntityID]*ecs.EntitySnapshot, len(active)+len(removed)),
		active:    make([]ecs.EntityID, 0, len(active)),
		removed:   make([]ecs.EntityID, 0, len(removed)),
		global:    e.world.Global().ID(),
		templates: e.templates,
		tmplOrder: e.tmplOrder,
		systems:   e.runner.Infos(),
	}
	for _, ent := range active {
		s.entities[ent.ID()] = ent.Capture()
		s.active = append(s.active, ent.ID())
	}
	for _, ent := range removed {
		s.entities[ent.ID()] = ent.Capture()
		s.removed = append(s.removed, ent.ID())
	}
	for _, ent := range e.world.Added() {
		s.added = append(s.added, ent.ID())
	}
	return s
}

// Await waits for a completion channel or ctx.
func Await(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
