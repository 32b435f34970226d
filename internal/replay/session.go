package replay

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Frame is one captured simulation tick.
//
// Timestamp comes from the deterministic clock active while recording, so it
// is identical across a record/replay pair. Data is whatever the caller
// passed to RecordFrame: plain values only, since sessions are handed to an
// external persistence collaborator as-is.
type Frame struct {
	Number    int64          `json:"number"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Session is a completed recording: the seed, the virtual start time, and
// the ordered frame sequence.
//
// A Session is extended only while its recording is active; after
// StopRecording it is immutable and safe to share with playback or a
// persistence collaborator.
type Session struct {
	ID        string            `json:"id"`
	Seed      uint64            `json:"seed"`
	StartTime time.Time         `json:"start_time"`
	Duration  time.Duration     `json:"duration"`
	Frames    []Frame           `json:"frames"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// FrameCount returns the number of captured frames.
func (s *Session) FrameCount() int {
	return len(s.Frames)
}

// IDGenerator produces session identifiers.
// Implemented by UUIDv7Generator (production) and FixedIDGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 session identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so stored sessions
// sort by creation time.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedIDGenerator returns predetermined session identifiers for tests.
// Enables deterministic golden trace comparison.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDGenerator creates a generator that returns ids in order.
// Generate panics once all ids are consumed: fail-fast for test
// misconfiguration.
func NewFixedIDGenerator(ids ...string) *FixedIDGenerator {
	return &FixedIDGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
