// Package eventbus implements the messaging half of the simulation core: a
// double-buffered publish/subscribe bus with pooled event records, per-type
// backpressure, and bounded subscriber fan-out.
//
// Events sent during tick K are delivered during the Process call that ends
// tick K, and never earlier: writers fill one buffer while Process drains
// the other, and the two swap roles every cycle. The one-tick latency is by
// design; it removes same-tick produce/consume ordering hazards.
//
// Thread-safety: single-writer. Send, Subscribe, and Process must all run
// on the one goroutine driving the simulation tick.
package eventbus

import (
	"log/slog"
	"time"

	"github.com/calder-games/simcore/internal/entity"
	"github.com/calder-games/simcore/internal/replay"
)

// Defaults for the bus's bounds. All three exist to cap worst-case work per
// tick: a runaway producer hits the per-type cap, a pathological subscriber
// list hits the fan-out cap, and a burst tick cannot grow the pool past its
// retention capacity.
const (
	DefaultPerTypeCap   = 256
	DefaultMaxFanout    = 16
	DefaultPoolCapacity = 1024
)

// emaAlpha is the smoothing factor for the average processing time.
const emaAlpha = 0.1

// Handler is a subscriber callback. A panic in a Handler is recovered and
// logged; it never aborts delivery to other subscribers or types.
type Handler func(Event)

// Stats is a snapshot of bus counters.
type Stats struct {
	Sent        uint64        // Events accepted by Send
	Processed   uint64        // Events drained by Process
	Dropped     uint64        // Sends rejected by the per-type cap
	UnknownType uint64        // Sends rejected for an unregistered type id
	AvgProcess  time.Duration // EMA of Process duration
	Types       int           // Registered event types
	PoolFree    int           // Pooled records currently free
	PoolCap     int           // Pool retention capacity
}

// Bus is the double-buffered event bus.
type Bus struct {
	registry *registry
	buffers  map[bufferRole]*frameBuffer
	pool     *eventPool

	subscribers map[TypeID][]*subscriber
	nextSubID   uint64
	scratch     []*subscriber // Per-type delivery snapshot, reused across Process calls

	perTypeCap int
	maxFanout  int

	clock  replay.Clock
	logger *slog.Logger

	sent        uint64
	processed   uint64
	dropped     uint64
	unknownType uint64
	avgProcess  float64 // Nanoseconds, exponentially smoothed
}

type subscriber struct {
	id uint64
	fn Handler
}

// Option configures a Bus.
type Option func(*Bus)

// WithPerTypeCap sets the per-type per-tick queue cap.
// Default: DefaultPerTypeCap.
func WithPerTypeCap(n int) Option {
	return func(b *Bus) {
		b.perTypeCap = n
	}
}

// WithMaxFanout caps subscriber deliveries per event.
// Default: DefaultMaxFanout.
func WithMaxFanout(n int) Option {
	return func(b *Bus) {
		b.maxFanout = n
	}
}

// WithPoolCapacity sets the event record pool's retention capacity.
// Default: DefaultPoolCapacity.
func WithPoolCapacity(n int) Option {
	return func(b *Bus) {
		b.pool = newEventPool(n)
	}
}

// WithClock sets the clock used to stamp events. Inject the simulation's
// provider clock so stamps are deterministic under recording/playback.
// Default: the wall clock.
func WithClock(c replay.Clock) Option {
	return func(b *Bus) {
		b.clock = c
	}
}

// WithLogger sets the logger for subscriber failures.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New creates a Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		registry: newRegistry(),
		buffers: map[bufferRole]*frameBuffer{
			roleWrite: newFrameBuffer(),
			roleRead:  newFrameBuffer(),
		},
		subscribers: make(map[TypeID][]*subscriber),
		perTypeCap:  DefaultPerTypeCap,
		maxFanout:   DefaultMaxFanout,
		clock:       replay.WallClock{},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.pool == nil {
		b.pool = newEventPool(DefaultPoolCapacity)
	}
	return b
}

// RegisterType registers an event type name and returns its id. Idempotent
// for an already-registered name. Registration is mandatory: ids are the
// only currency Send and Subscribe accept, so a typo'd name fails fast here
// instead of silently aliasing another type.
func (b *Bus) RegisterType(name string) (TypeID, error) {
	return b.registry.register(name)
}

// TypeID returns the id registered for name.
func (b *Bus) TypeID(name string) (TypeID, bool) {
	return b.registry.lookup(name)
}

// TypeName returns the name registered for id, or "" if id is invalid.
func (b *Bus) TypeName(id TypeID) string {
	return b.registry.name(id)
}

// Send enqueues an event into the current write buffer's queue for t.
// Delivery happens during the Process call that ends the current tick.
//
// Fire-and-forget: returns false, never blocks and never errors, when the
// type's per-tick queue is at capacity (counted as dropped) or t is not a
// registered id (counted separately). Callers needing guaranteed delivery
// must size the cap generously and watch Stats.Dropped.
//
// Use entity.Zero as sender for events with no sending entity.
func (b *Bus) Send(t TypeID, payload map[string]any, sender entity.ID) bool {
	if !b.registry.valid(t) {
		b.unknownType++
		return false
	}

	write := b.buffers[roleWrite]
	if write.depth(t) >= b.perTypeCap {
		b.dropped++
		return false
	}

	e := b.pool.acquire()
	e.Type = t
	e.Sender = sender
	e.Timestamp = b.clock.Now()
	e.Payload = sanitizePayload(payload)
	write.push(e)

	b.sent++
	return true
}

// Subscribe registers a callback for events of type t and returns the
// capability that removes the registration. Subscribers are invoked in
// registration order, clamped to the fan-out cap per event.
func (b *Bus) Subscribe(t TypeID, fn Handler) (*Subscription, error) {
	if !b.registry.valid(t) {
		return nil, &UnknownTypeError{ID: t}
	}

	b.nextSubID++
	sub := &subscriber{id: b.nextSubID, fn: fn}
	b.subscribers[t] = append(b.subscribers[t], sub)
	return &Subscription{bus: b, eventType: t, id: sub.id}, nil
}

// Process flips the buffer roles, clears the new write buffer, and drains
// the previous tick's events to subscribers. Must be called exactly once per
// tick, after every system has finished sending.
//
// Delivery order is deterministic: ascending type id, FIFO within a type.
// Each event reaches at most the fan-out cap of subscribers. A panicking
// subscriber is logged and skipped; remaining subscribers and types still
// receive their events. Drained records return to the pool.
func (b *Bus) Process() {
	start := time.Now()

	// Role swap, not a data copy.
	b.buffers[roleWrite], b.buffers[roleRead] = b.buffers[roleRead], b.buffers[roleWrite]
	b.buffers[roleWrite].reset()

	read := b.buffers[roleRead]
	for t := TypeID(1); int(t) < len(b.registry.names); t++ {
		queue := read.queues[t]
		if len(queue) == 0 {
			continue
		}

		subs := b.subscribers[t]
		fanout := len(subs)
		if fanout > b.maxFanout {
			fanout = b.maxFanout
		}

		// Deliver over a snapshot: a callback may call Unsubscribe, which
		// compacts the live slice, and that must not skip or repeat anyone
		// mid-drain.
		b.scratch = append(b.scratch[:0], subs[:fanout]...)

		for _, e := range queue {
			for _, sub := range b.scratch {
				b.deliver(sub, *e)
			}
			b.processed++
			b.pool.release(e)
		}
	}
	read.reset()

	b.observeProcessTime(time.Since(start))
}

// deliver invokes one subscriber with panic isolation.
func (b *Bus) deliver(s *subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				"type", b.registry.name(e.Type),
				"subscriber", s.id,
				"panic", r)
		}
	}()
	s.fn(e)
}

func (b *Bus) observeProcessTime(d time.Duration) {
	ns := float64(d.Nanoseconds())
	if b.avgProcess == 0 {
		b.avgProcess = ns
		return
	}
	b.avgProcess = emaAlpha*ns + (1-emaAlpha)*b.avgProcess
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	free, capacity := b.pool.occupancy()
	return Stats{
		Sent:        b.sent,
		Processed:   b.processed,
		Dropped:     b.dropped,
		UnknownType: b.unknownType,
		AvgProcess:  time.Duration(b.avgProcess),
		Types:       b.registry.count(),
		PoolFree:    free,
		PoolCap:     capacity,
	}
}

// Subscription is the unsubscribe capability returned by Subscribe.
type Subscription struct {
	bus       *Bus
	eventType TypeID
	id        uint64
}

// Unsubscribe removes the registration. Idempotent.
func (s *Subscription) Unsubscribe() {
	subs := s.bus.subscribers[s.eventType]
	for i, sub := range subs {
		if sub.id == s.id {
			s.bus.subscribers[s.eventType] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
