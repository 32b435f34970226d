package replay

import (
	"log/slog"
	"time"
)

// State is the recorder's lifecycle state.
type State int

const (
	// StateIdle means neither recording nor playback is active.
	StateIdle State = iota
	// StateRecording means a session is being captured.
	StateRecording
	// StatePlaying means a captured session is being replayed.
	StatePlaying
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// DefaultMaxFrames caps a recording at ten minutes of 60 Hz frames.
// Reaching the cap stops the recording gracefully; it is not an error.
const DefaultMaxFrames = 36000

// DefaultFrameStep is the fixed per-frame duration of the virtual clock.
const DefaultFrameStep = time.Second / 60

// Recorder captures and replays deterministic simulation runs.
//
// States: Idle → Recording → Idle and Idle → Playing → Idle. Recording and
// playing are mutually exclusive; starting either while the recorder is not
// idle fails non-fatally (returns false, logged as a warning).
//
// While active, the Recorder swaps the owned Providers' clock and PRNG for
// deterministic implementations: a FixedStepClock and a seeded LCG. The
// originals are restored through a single restore path on every exit:
// explicit stop, auto-stop at the frame cap, end of playback, and Close.
//
// Thread-safety: single-writer, one call per tick, like the rest of the core.
type Recorder struct {
	providers *Providers
	saved     Providers // Original clock/rand, restored on every exit path

	state   State
	session *Session
	cursor  int // Next frame to deliver during playback

	clock     *FixedStepClock
	idGen     IDGenerator
	logger    *slog.Logger
	maxFrames int
	frameStep time.Duration
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithMaxFrames sets the recording frame cap.
// Default: DefaultMaxFrames.
func WithMaxFrames(n int) Option {
	return func(r *Recorder) {
		r.maxFrames = n
	}
}

// WithFrameStep sets the virtual clock's per-frame duration.
// Default: DefaultFrameStep.
func WithFrameStep(step time.Duration) Option {
	return func(r *Recorder) {
		r.frameStep = step
	}
}

// WithIDGenerator sets the session id generator.
// Default: UUIDv7Generator. Tests use NewFixedIDGenerator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Recorder) {
		r.idGen = g
	}
}

// WithLogger sets the logger for state-transition warnings.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// NewRecorder creates a Recorder operating on the given Providers.
//
// The Recorder must be the only writer of the Providers' fields; simulation
// code reads entropy through them and never reassigns them.
func NewRecorder(providers *Providers, opts ...Option) *Recorder {
	r := &Recorder{
		providers: providers,
		state:     StateIdle,
		idGen:     UUIDv7Generator{},
		logger:    slog.Default(),
		maxFrames: DefaultMaxFrames,
		frameStep: DefaultFrameStep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	return r.state
}

// Recording reports whether a recording is in progress.
func (r *Recorder) Recording() bool {
	return r.state == StateRecording
}

// Playing reports whether playback is in progress.
func (r *Recorder) Playing() bool {
	return r.state == StatePlaying
}

// StartRecording opens a new session keyed by seed and installs the
// deterministic providers: the PRNG becomes a seeded LCG and "now" becomes
// startTime + frame*frameStep.
//
// Returns false (logged, non-fatal) if the recorder is not idle.
func (r *Recorder) StartRecording(seed uint64) bool {
	if r.state != StateIdle {
		r.logger.Warn("cannot start recording", "state", r.state.String())
		return false
	}

	start := r.providers.Clock.Now()
	r.saved = *r.providers
	r.clock = NewFixedStepClock(start, r.frameStep)
	r.providers.Clock = r.clock
	r.providers.Rand = NewLCG(seed)

	r.session = &Session{
		ID:        r.idGen.Generate(),
		Seed:      seed,
		StartTime: start,
		Metadata:  map[string]string{},
	}
	r.state = StateRecording

	r.logger.Info("recording started", "session", r.session.ID, "seed", seed)
	return true
}

// RecordFrame appends a timestamped frame to the open session and advances
// the virtual clock. Once maxFrames is reached the recording auto-stops:
// graceful truncation, not an error.
//
// A call while not recording is ignored.
func (r *Recorder) RecordFrame(data map[string]any) {
	if r.state != StateRecording {
		return
	}

	r.session.Frames = append(r.session.Frames, Frame{
		Number:    r.clock.Frame(),
		Timestamp: r.clock.Now(),
		Data:      data,
	})
	r.clock.Advance()

	if len(r.session.Frames) >= r.maxFrames {
		r.logger.Info("frame cap reached, stopping recording",
			"session", r.session.ID, "frames", len(r.session.Frames))
		r.StopRecording()
	}
}

// StopRecording finalizes the session duration, restores the original
// providers, and returns the completed session. Returns nil (logged) if no
// recording is active.
func (r *Recorder) StopRecording() *Session {
	if r.state != StateRecording {
		r.logger.Warn("cannot stop recording", "state", r.state.String())
		return nil
	}

	s := r.session
	s.Duration = time.Duration(len(s.Frames)) * r.frameStep
	r.session = nil
	r.restore()

	r.logger.Info("recording stopped", "session", s.ID, "frames", len(s.Frames))
	return s
}

// StartPlayback re-seeds the deterministic providers exactly as the original
// recording run did and prepares frame-by-frame delivery via PlayNextFrame.
//
// Returns false (logged, non-fatal) if the recorder is not idle or the
// session is unusable.
func (r *Recorder) StartPlayback(s *Session) bool {
	if r.state != StateIdle {
		r.logger.Warn("cannot start playback", "state", r.state.String())
		return false
	}
	if s == nil || len(s.Frames) == 0 {
		r.logger.Warn("cannot start playback of empty session")
		return false
	}

	r.saved = *r.providers
	r.clock = NewFixedStepClock(s.StartTime, r.frameStep)
	r.providers.Clock = r.clock
	r.providers.Rand = NewLCG(s.Seed)

	r.session = s
	r.cursor = 0
	r.state = StatePlaying

	r.logger.Info("playback started", "session", s.ID, "frames", len(s.Frames))
	return true
}

// PendingFrame returns the frame PlayNextFrame will deliver next, without
// consuming it or advancing the clock. The tick driver reads the frame's
// input at the start of a tick and consumes it at the end, so the virtual
// clock advances at the same point of the tick as it does while recording.
func (r *Recorder) PendingFrame() (Frame, bool) {
	if r.state != StatePlaying {
		return Frame{}, false
	}
	return r.session.Frames[r.cursor], true
}

// PlayNextFrame returns the next recorded frame and advances the virtual
// clock. Reaching the end of the frame sequence auto-stops playback and
// restores the original providers; the final frame is still returned with
// ok=true. Returns ok=false when playback is not active.
func (r *Recorder) PlayNextFrame() (Frame, bool) {
	if r.state != StatePlaying {
		return Frame{}, false
	}

	f := r.session.Frames[r.cursor]
	r.cursor++
	r.clock.Advance()

	if r.cursor >= len(r.session.Frames) {
		r.StopPlayback()
	}
	return f, true
}

// StopPlayback ends playback and restores the original providers. Safe to
// call at any time; a call while not playing is a no-op.
func (r *Recorder) StopPlayback() {
	if r.state != StatePlaying {
		return
	}

	id := r.session.ID
	r.session = nil
	r.cursor = 0
	r.restore()

	r.logger.Info("playback stopped", "session", id)
}

// Close stops whatever is active and restores the original providers.
// Implements io.Closer so callers can defer restoration across abnormal
// exit paths:
//
//	rec.StartRecording(seed)
//	defer rec.Close()
func (r *Recorder) Close() error {
	switch r.state {
	case StateRecording:
		r.StopRecording()
	case StatePlaying:
		r.StopPlayback()
	}
	return nil
}

// restore is the single point that returns the Providers to their original
// clock and PRNG. Every exit from Recording or Playing funnels through here.
func (r *Recorder) restore() {
	r.providers.Clock = r.saved.Clock
	r.providers.Rand = r.saved.Rand
	r.clock = nil
	r.state = StateIdle
}
