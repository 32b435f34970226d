package eventbus

import (
	"time"

	"github.com/calder-games/simcore/internal/entity"
)

// Event is one published message: the type key, the sending entity (or
// entity.Zero for anonymous sends), the send timestamp from the bus clock,
// and a plain-data payload.
//
// Subscribers receive Events by value and must not retain the Payload map
// past the callback: the backing record returns to the pool when delivery
// for the event completes.
type Event struct {
	Type      TypeID
	Sender    entity.ID
	Timestamp time.Time
	Payload   map[string]any
}

// eventPool is a slab of reusable event records owned by the Bus.
//
// Records cycle acquire → write buffer → delivery → release every two ticks.
// The pool has a fixed retention capacity: acquire falls back to allocation
// when empty, and release drops records beyond capacity, so a burst tick
// cannot permanently grow the slab.
//
// Single-writer, like the Bus that owns it.
type eventPool struct {
	free []*Event
	cap  int
}

func newEventPool(capacity int) *eventPool {
	p := &eventPool{
		free: make([]*Event, 0, capacity),
		cap:  capacity,
	}
	// Warm the slab so steady-state ticks never allocate.
	for i := 0; i < capacity; i++ {
		p.free = append(p.free, &Event{})
	}
	return p
}

func (p *eventPool) acquire() *Event {
	if n := len(p.free); n > 0 {
		e := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return e
	}
	return &Event{}
}

func (p *eventPool) release(e *Event) {
	*e = Event{} // Drop payload reference for GC
	if len(p.free) < p.cap {
		p.free = append(p.free, e)
	}
}

// occupancy returns free records and retention capacity.
func (p *eventPool) occupancy() (free, capacity int) {
	return len(p.free), p.cap
}
