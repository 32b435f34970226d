// Package sim wires the simulation core together: one Loop owns the entity
// manager, the event bus, the determinism providers, and the recorder, and
// drives registered systems one cooperative tick at a time.
//
// The Loop contains no algorithmic complexity of its own; it exists to
// enforce the calling discipline the core components assume: systems run in
// registration order, the bus processes exactly once per tick, and the
// recorder captures or replaces tick input at fixed points of the tick.
//
// Thread-safety: none. One goroutine calls Tick; nothing here locks.
package sim

import (
	"log/slog"
	"time"

	"github.com/calder-games/simcore/internal/entity"
	"github.com/calder-games/simcore/internal/eventbus"
	"github.com/calder-games/simcore/internal/replay"
)

// TickContext is what a system may touch during one tick.
//
// Rand and Now come from the loop's providers, so a system that stays inside
// the TickContext is automatically covered by the determinism guarantee.
// Reading time.Now or package-level rand directly steps outside it.
type TickContext struct {
	Frame    int64
	Now      time.Time
	Input    map[string]any
	Entities *entity.Manager
	Bus      *eventbus.Bus
	Rand     replay.Rand
}

// System is one simulation subsystem, run once per tick in registration
// order.
type System interface {
	Name() string
	Update(tc *TickContext)
}

// Loop is the single-writer tick driver.
type Loop struct {
	entities  *entity.Manager
	bus       *eventbus.Bus
	providers *replay.Providers
	recorder  *replay.Recorder
	systems   []System
	frame     int64
	logger    *slog.Logger
}

// Option configures a Loop.
type Option func(*config)

type config struct {
	entityCapacity int
	busOpts        []eventbus.Option
	recorderOpts   []replay.Option
	logger         *slog.Logger
}

// WithEntityCapacity sets the entity slot capacity.
// Default: entity.DefaultCapacity.
func WithEntityCapacity(n int) Option {
	return func(c *config) {
		c.entityCapacity = n
	}
}

// WithBusOptions forwards options to the event bus.
func WithBusOptions(opts ...eventbus.Option) Option {
	return func(c *config) {
		c.busOpts = append(c.busOpts, opts...)
	}
}

// WithRecorderOptions forwards options to the recorder.
func WithRecorderOptions(opts ...replay.Option) Option {
	return func(c *config) {
		c.recorderOpts = append(c.recorderOpts, opts...)
	}
}

// WithLogger sets the logger shared by the loop and its components.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// New creates a Loop with fresh components. The bus is clocked by the
// loop's providers, so event timestamps follow the recorder's virtual time
// during recording and playback.
func New(opts ...Option) *Loop {
	cfg := &config{
		entityCapacity: entity.DefaultCapacity,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	providers := replay.NewProviders()
	busOpts := append([]eventbus.Option{
		eventbus.WithClock(providers),
		eventbus.WithLogger(cfg.logger),
	}, cfg.busOpts...)
	recOpts := append([]replay.Option{
		replay.WithLogger(cfg.logger),
	}, cfg.recorderOpts...)

	return &Loop{
		entities:  entity.NewManager(cfg.entityCapacity),
		bus:       eventbus.New(busOpts...),
		providers: providers,
		recorder:  replay.NewRecorder(providers, recOpts...),
		logger:    cfg.logger,
	}
}

// Entities returns the entity manager.
func (l *Loop) Entities() *entity.Manager {
	return l.entities
}

// Bus returns the event bus.
func (l *Loop) Bus() *eventbus.Bus {
	return l.bus
}

// Recorder returns the deterministic recorder.
func (l *Loop) Recorder() *replay.Recorder {
	return l.recorder
}

// Providers returns the loop's time and randomness providers.
func (l *Loop) Providers() *replay.Providers {
	return l.providers
}

// Frame returns the number of completed ticks.
func (l *Loop) Frame() int64 {
	return l.frame
}

// AddSystem registers a system. Systems run in registration order.
func (l *Loop) AddSystem(s System) {
	l.systems = append(l.systems, s)
}

// Tick runs one simulation frame: systems in registration order, then one
// bus Process, then the recorder's capture or consume step.
//
// During recording, input is appended to the session as this frame's data.
// During playback, input is ignored and replaced by the recorded frame's
// data, so a replayed run sees the captured inputs instead of live ones.
func (l *Loop) Tick(input map[string]any) {
	if f, ok := l.recorder.PendingFrame(); ok {
		input = f.Data
	}

	tc := &TickContext{
		Frame:    l.frame,
		Now:      l.providers.Now(),
		Input:    input,
		Entities: l.entities,
		Bus:      l.bus,
		Rand:     l.providers.Rand,
	}
	for _, s := range l.systems {
		s.Update(tc)
	}

	l.bus.Process()

	switch {
	case l.recorder.Recording():
		l.recorder.RecordFrame(input)
	case l.recorder.Playing():
		l.recorder.PlayNextFrame()
	}

	l.frame++
}
