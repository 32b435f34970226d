package harness

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/calder-games/simcore/internal/entity"
	"github.com/calder-games/simcore/internal/eventbus"
	"github.com/calder-games/simcore/internal/replay"
	"github.com/calder-games/simcore/internal/sim"
	"github.com/calder-games/simcore/internal/trace"
)

// harnessEpoch is the fixed virtual start time of every scenario run.
// Pinning it (instead of reading the wall clock) makes the full session
// content, fingerprint included, reproducible across machines.
var harnessEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// TraceEvent is one observed operation in a scenario run.
type TraceEvent struct {
	Tick   int64
	Kind   string
	Detail map[string]any
}

// Trace event kinds.
const (
	TraceCreate  = "create"
	TraceDestroy = "destroy"
	TraceSend    = "send"
	TraceDeliver = "deliver"
	TraceDraw    = "draw"
)

// Result is the outcome of running a scenario.
type Result struct {
	ScenarioName string
	SessionID    string
	Fingerprint  string
	Session      *replay.Session
	Trace        []TraceEvent
	BusStats     eventbus.Stats
}

// Run executes a scenario on a fresh simulation loop under recording and
// returns the observed trace and the session fingerprint.
//
// Everything entropy-shaped is pinned: the PRNG by the scenario seed, the
// start time by harnessEpoch, the session id by a fixed generator. Two runs
// of the same scenario are therefore byte-identical.
func Run(scenario *Scenario) (*Result, error) {
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []sim.Option{
		sim.WithLogger(logger),
		sim.WithRecorderOptions(
			replay.WithIDGenerator(replay.NewFixedIDGenerator("session-" + scenario.Name)),
		),
	}
	if c := scenario.Config; c != nil {
		if c.EntityCapacity > 0 {
			opts = append(opts, sim.WithEntityCapacity(c.EntityCapacity))
		}
		if c.EventCap > 0 {
			opts = append(opts, sim.WithBusOptions(eventbus.WithPerTypeCap(c.EventCap)))
		}
		if c.MaxFanout > 0 {
			opts = append(opts, sim.WithBusOptions(eventbus.WithMaxFanout(c.MaxFanout)))
		}
		if c.PoolCapacity > 0 {
			opts = append(opts, sim.WithBusOptions(eventbus.WithPoolCapacity(c.PoolCapacity)))
		}
		if c.MaxFrames > 0 {
			opts = append(opts, sim.WithRecorderOptions(replay.WithMaxFrames(c.MaxFrames)))
		}
	}
	loop := sim.New(opts...)

	runner := &runner{scenario: scenario, loop: loop}
	if err := runner.setup(); err != nil {
		return nil, err
	}
	loop.AddSystem(runner)

	// Pin the recording's start time before the recorder samples it.
	loop.Providers().Clock = replay.NewFixedStepClock(harnessEpoch, 0)
	if !loop.Recorder().StartRecording(scenario.Seed) {
		return nil, fmt.Errorf("harness: recorder not idle for scenario %s", scenario.Name)
	}
	defer loop.Recorder().Close()

	for i := 0; i < scenario.Ticks; i++ {
		loop.Tick(map[string]any{"tick": int64(i)})
	}

	session := loop.Recorder().StopRecording()
	if session == nil {
		return nil, fmt.Errorf("harness: recording ended early for scenario %s", scenario.Name)
	}

	fingerprint, err := trace.SessionFingerprint(session)
	if err != nil {
		return nil, fmt.Errorf("harness: fingerprint scenario %s: %w", scenario.Name, err)
	}

	return &Result{
		ScenarioName: scenario.Name,
		SessionID:    session.ID,
		Fingerprint:  fingerprint,
		Session:      session,
		Trace:        runner.trace,
		BusStats:     loop.Bus().Stats(),
	}, nil
}

// runner is the scripted system driving a scenario, and the trace sink for
// everything it observes.
type runner struct {
	scenario *Scenario
	loop     *sim.Loop

	typeIDs map[string]eventbus.TypeID
	byTick  map[int][]Step
	created []entity.ID
	tick    int64
	trace   []TraceEvent
}

func (r *runner) Name() string { return "scenario" }

// setup registers event types and delivery tracers before the run starts.
func (r *runner) setup() error {
	r.typeIDs = make(map[string]eventbus.TypeID, len(r.scenario.EventTypes))
	for _, name := range r.scenario.EventTypes {
		id, err := r.loop.Bus().RegisterType(name)
		if err != nil {
			return fmt.Errorf("harness: register %q: %w", name, err)
		}
		r.typeIDs[name] = id

		name := name
		if _, err := r.loop.Bus().Subscribe(id, func(e eventbus.Event) {
			detail := map[string]any{
				"type":   name,
				"sender": int64(e.Sender),
			}
			if e.Payload != nil {
				detail["payload"] = e.Payload
			}
			r.record(TraceDeliver, detail)
		}); err != nil {
			return fmt.Errorf("harness: subscribe %q: %w", name, err)
		}
	}

	r.byTick = make(map[int][]Step)
	for _, step := range r.scenario.Steps {
		r.byTick[step.Tick] = append(r.byTick[step.Tick], step)
	}
	return nil
}

// Update executes this tick's scripted steps in declaration order.
func (r *runner) Update(tc *sim.TickContext) {
	r.tick = tc.Frame

	for _, step := range r.byTick[int(tc.Frame)] {
		count := step.Count
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			r.apply(tc, step)
		}
	}
}

func (r *runner) apply(tc *sim.TickContext, step Step) {
	switch step.Op {
	case OpCreate:
		id, err := tc.Entities.Create()
		if err != nil {
			r.record(TraceCreate, map[string]any{"error": err.Error()})
			return
		}
		r.created = append(r.created, id)
		r.record(TraceCreate, map[string]any{
			"index":      int64(id.Index()),
			"generation": int64(id.Generation()),
		})

	case OpDestroy:
		if step.Entity >= len(r.created) {
			r.record(TraceDestroy, map[string]any{"error": "no such entity ordinal"})
			return
		}
		id := r.created[step.Entity]
		ok := tc.Entities.Destroy(id)
		r.record(TraceDestroy, map[string]any{
			"index": int64(id.Index()),
			"ok":    ok,
		})

	case OpSend:
		sender := entity.Zero
		if len(r.created) > 0 {
			sender = r.created[len(r.created)-1]
		}
		accepted := tc.Bus.Send(r.typeIDs[step.Event], step.Payload, sender)
		r.record(TraceSend, map[string]any{
			"type":     step.Event,
			"accepted": accepted,
		})

	case OpDraw:
		r.record(TraceDraw, map[string]any{"value": tc.Rand.Uint64()})
	}
}

func (r *runner) record(kind string, detail map[string]any) {
	r.trace = append(r.trace, TraceEvent{Tick: r.tick, Kind: kind, Detail: detail})
}
