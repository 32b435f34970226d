package replay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecorder(t *testing.T, opts ...Option) (*replayFixture, *Recorder) {
	t.Helper()

	providers := NewProviders()
	fixture := &replayFixture{
		providers: providers,
		origClock: providers.Clock,
		origRand:  providers.Rand,
	}
	base := []Option{
		WithIDGenerator(NewFixedIDGenerator("session-1", "session-2", "session-3")),
		WithFrameStep(time.Second / 60),
	}
	return fixture, NewRecorder(providers, append(base, opts...)...)
}

type replayFixture struct {
	providers *Providers
	origClock Clock
	origRand  Rand
}

func (f *replayFixture) assertRestored(t *testing.T) {
	t.Helper()
	assert.Equal(t, f.origClock, f.providers.Clock, "original clock should be restored")
	assert.Equal(t, f.origRand, f.providers.Rand, "original rand should be restored")
}

func TestLCG_Deterministic(t *testing.T) {
	a := NewLCG(42)
	b := NewLCG(42)
	for i := 0; i < 1000; i++ {
		require.Equal(t, a.Uint64(), b.Uint64(), "draw %d diverged", i)
	}

	c := NewLCG(43)
	d := NewLCG(42)
	assert.NotEqual(t, c.Uint64(), d.Uint64(), "different seeds should diverge")
}

func TestLCG_Float64Range(t *testing.T) {
	g := NewLCG(7)
	for i := 0; i < 1000; i++ {
		v := g.Float64()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestLCG_IntNRange(t *testing.T) {
	g := NewLCG(7)
	for i := 0; i < 1000; i++ {
		v := g.IntN(10)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 10)
	}

	assert.Panics(t, func() { g.IntN(0) })
}

func TestFixedStepClock(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	step := 50 * time.Millisecond
	c := NewFixedStepClock(start, step)

	assert.Equal(t, start, c.Now())
	c.Advance()
	assert.Equal(t, start.Add(step), c.Now())
	c.Advance()
	assert.Equal(t, start.Add(2*step), c.Now())
	assert.Equal(t, int64(2), c.Frame())
}

func TestRecorder_StartRecordingSwapsProviders(t *testing.T) {
	fixture, rec := newTestRecorder(t)

	require.True(t, rec.StartRecording(42))
	assert.Equal(t, StateRecording, rec.State())

	_, isLCG := fixture.providers.Rand.(*LCG)
	assert.True(t, isLCG, "recording should install the seeded LCG")
	_, isFixed := fixture.providers.Clock.(*FixedStepClock)
	assert.True(t, isFixed, "recording should install the fixed-step clock")

	s := rec.StopRecording()
	require.NotNil(t, s)
	assert.Equal(t, "session-1", s.ID)
	assert.Equal(t, uint64(42), s.Seed)
	fixture.assertRestored(t)
}

func TestRecorder_MutuallyExclusiveStates(t *testing.T) {
	_, rec := newTestRecorder(t)

	require.True(t, rec.StartRecording(1))
	assert.False(t, rec.StartRecording(2), "recording while recording must fail")
	rec.RecordFrame(nil)
	s := rec.StopRecording()
	require.NotNil(t, s)

	require.True(t, rec.StartPlayback(s))
	assert.False(t, rec.StartPlayback(s), "playback while playing must fail")
	assert.False(t, rec.StartRecording(3), "recording while playing must fail")
	rec.StopPlayback()
	assert.Equal(t, StateIdle, rec.State())
}

func TestRecorder_InvalidStopsAreNonFatal(t *testing.T) {
	fixture, rec := newTestRecorder(t)

	assert.Nil(t, rec.StopRecording(), "stop without start returns nil")
	rec.StopPlayback() // No-op.
	assert.Equal(t, StateIdle, rec.State())
	fixture.assertRestored(t)
}

func TestRecorder_RecordFrameTimestamps(t *testing.T) {
	_, rec := newTestRecorder(t, WithFrameStep(10*time.Millisecond))

	require.True(t, rec.StartRecording(9))
	rec.RecordFrame(map[string]any{"tick": int64(0)})
	rec.RecordFrame(map[string]any{"tick": int64(1)})
	rec.RecordFrame(nil)
	s := rec.StopRecording()
	require.NotNil(t, s)

	require.Equal(t, 3, s.FrameCount())
	assert.Equal(t, int64(0), s.Frames[0].Number)
	assert.Equal(t, int64(2), s.Frames[2].Number)
	assert.Equal(t, s.StartTime, s.Frames[0].Timestamp)
	assert.Equal(t, s.StartTime.Add(20*time.Millisecond), s.Frames[2].Timestamp)
	assert.Equal(t, 30*time.Millisecond, s.Duration)
}

func TestRecorder_AutoStopAtFrameCap(t *testing.T) {
	fixture, rec := newTestRecorder(t, WithMaxFrames(5))

	require.True(t, rec.StartRecording(1))
	for i := 0; i < 10; i++ {
		rec.RecordFrame(nil) // Calls past the cap are ignored.
	}

	assert.Equal(t, StateIdle, rec.State(), "recording auto-stops at the frame cap")
	fixture.assertRestored(t)
}

func TestRecorder_PlaybackDeliversFramesInOrder(t *testing.T) {
	fixture, rec := newTestRecorder(t)

	require.True(t, rec.StartRecording(5))
	for i := 0; i < 4; i++ {
		rec.RecordFrame(map[string]any{"i": int64(i)})
	}
	s := rec.StopRecording()
	require.NotNil(t, s)

	require.True(t, rec.StartPlayback(s))
	for i := 0; i < 4; i++ {
		f, ok := rec.PlayNextFrame()
		require.True(t, ok, "frame %d should be delivered", i)
		assert.Equal(t, int64(i), f.Number)
		assert.Equal(t, map[string]any{"i": int64(i)}, f.Data)
	}

	assert.Equal(t, StateIdle, rec.State(), "playback auto-stops after the last frame")
	fixture.assertRestored(t)

	_, ok := rec.PlayNextFrame()
	assert.False(t, ok, "no frames after auto-stop")
}

func TestRecorder_PlaybackRejectsEmptySession(t *testing.T) {
	_, rec := newTestRecorder(t)

	assert.False(t, rec.StartPlayback(nil))
	assert.False(t, rec.StartPlayback(&Session{ID: "empty"}))
}

func TestRecorder_DeterministicReplay(t *testing.T) {
	fixture, rec := newTestRecorder(t)

	// Record a run that consumes N virtualized random values.
	const draws = 64
	require.True(t, rec.StartRecording(1234))
	recorded := make([]uint64, 0, draws)
	for i := 0; i < draws; i++ {
		recorded = append(recorded, fixture.providers.Rand.Uint64())
		rec.RecordFrame(nil)
	}
	s := rec.StopRecording()
	require.NotNil(t, s)

	// Replaying with the same seed yields the identical value sequence.
	require.True(t, rec.StartPlayback(s))
	for i := 0; i < draws; i++ {
		assert.Equal(t, recorded[i], fixture.providers.Rand.Uint64(), "draw %d diverged on replay", i)
		_, ok := rec.PlayNextFrame()
		require.True(t, ok)
	}
	assert.Equal(t, StateIdle, rec.State())
}

func TestRecorder_CloseRestoresProviders(t *testing.T) {
	fixture, rec := newTestRecorder(t)

	require.True(t, rec.StartRecording(1))
	rec.RecordFrame(nil)
	require.NoError(t, rec.Close())
	assert.Equal(t, StateIdle, rec.State())
	fixture.assertRestored(t)

	require.NoError(t, rec.Close(), "Close when idle is a no-op")
}
