// Package entity implements the identity half of the simulation core:
// allocation and reuse of generational entity identifiers.
//
// A Manager owns a fixed-capacity slot table. Each slot carries a generation
// counter; destroying an entity bumps its slot's counter, so every ID handed
// out for a slot is distinguishable from the slot's previous occupants. The
// embedded generation is the sole liveness test: Alive compares it against
// the slot's current counter.
//
// Thread-safety: a Manager is a single-writer structure. All mutations must
// happen from the one goroutine driving the simulation tick; there is no
// internal locking.
package entity

// DefaultCapacity is the default number of entity slots.
const DefaultCapacity = 4096

// Manager allocates and recycles entity identifiers.
//
// INVARIANTS:
//   - A slot index appears at most once in the free list.
//   - A slot is either live (present in the alive set) or free, never both.
//   - generations[i] changes only in Destroy, and only for a live slot.
type Manager struct {
	generations []uint8
	freeList    []uint32 // LIFO stack of reusable slot indices
	alive       map[uint32]ID
	nextFresh   uint32 // First never-used slot index
}

// NewManager creates a Manager with the given slot capacity.
// Capacities below 1 or above MaxIndex+1 are clamped.
func NewManager(capacity int) *Manager {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > MaxIndex+1 {
		capacity = MaxIndex + 1
	}

	return &Manager{
		generations: make([]uint8, capacity),
		freeList:    make([]uint32, 0, 64),
		alive:       make(map[uint32]ID, capacity/4),
	}
}

// Capacity returns the configured slot capacity.
func (m *Manager) Capacity() int {
	return len(m.generations)
}

// Count returns the number of live entities.
func (m *Manager) Count() int {
	return len(m.alive)
}

// Create allocates an entity and returns its identifier.
//
// Slots are reused from the free list in LIFO order for locality; fresh
// indices are consumed only when the free list is empty. Returns a
// CapacityError when no slot remains.
//
// The generation rule: a slot's counter is bumped on Destroy only. Create
// adopts the counter as-is, so a reused slot yields the generation one past
// its previous occupant's. A fresh slot's first ID carries generation 1;
// generation 0 never names a live entity, keeping the zero ID invalid.
func (m *Manager) Create() (ID, error) {
	var index uint32
	switch {
	case len(m.freeList) > 0:
		index = m.freeList[len(m.freeList)-1]
		m.freeList = m.freeList[:len(m.freeList)-1]
	case m.nextFresh < uint32(len(m.generations)):
		index = m.nextFresh
		m.nextFresh++
		m.generations[index] = 1
	default:
		return Zero, &CapacityError{Capacity: len(m.generations), Live: len(m.alive)}
	}

	id := NewID(index, m.generations[index])
	m.alive[index] = id
	return id, nil
}

// Destroy invalidates an entity identifier.
//
// Returns false without side effects if id is not currently alive: destroying
// a dead or unknown id is idempotent, not an error. On a live id it removes
// the entity from the alive set, bumps the slot's generation, and pushes the
// slot onto the free list for reuse.
func (m *Manager) Destroy(id ID) bool {
	if !m.Alive(id) {
		return false
	}

	index := id.Index()
	delete(m.alive, index)

	// Bump, skipping 0 on wrap so the zero ID stays invalid.
	m.generations[index]++
	if m.generations[index] == 0 {
		m.generations[index] = 1
	}

	m.freeList = append(m.freeList, index)
	return true
}

// Alive reports whether id names a currently-live entity.
//
// True iff the slot is present in the alive set and the id's embedded
// generation equals the slot's stored generation. A stale id for a reused
// slot fails the generation comparison (until the 8-bit counter wraps).
func (m *Manager) Alive(id ID) bool {
	current, ok := m.alive[id.Index()]
	return ok && current == id
}

// Each calls fn for every live entity. Iteration order is unspecified.
// fn must not create or destroy entities during iteration.
func (m *Manager) Each(fn func(ID)) {
	for _, id := range m.alive {
		fn(id)
	}
}
