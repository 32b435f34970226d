package eventbus

// bufferRole names the two sides of the double buffer. Senders only ever
// touch the write side; Process only ever drains the read side.
type bufferRole int

const (
	roleWrite bufferRole = iota
	roleRead
)

// frameBuffer holds one tick's worth of per-type FIFO queues, indexed
// densely by TypeID.
type frameBuffer struct {
	queues [][]*Event
}

func newFrameBuffer() *frameBuffer {
	return &frameBuffer{
		queues: make([][]*Event, MaxTypes),
	}
}

// push appends an event to the type's queue.
func (b *frameBuffer) push(e *Event) {
	b.queues[e.Type] = append(b.queues[e.Type], e)
}

// depth returns the queue length for a type.
func (b *frameBuffer) depth(t TypeID) int {
	return len(b.queues[t])
}

// reset empties every queue, retaining capacity and dropping record
// references so released events are not pinned.
func (b *frameBuffer) reset() {
	for t, q := range b.queues {
		for i := range q {
			q[i] = nil
		}
		b.queues[t] = q[:0]
	}
}
