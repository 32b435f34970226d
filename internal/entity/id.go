package entity

// ID is a packed entity identifier: slot index in the high bits, an 8-bit
// generation in the low bits.
//
// An ID is a value, not an owning handle. It carries no lifetime guarantee by
// itself: any collaborator that retains an ID across ticks must call
// Manager.Alive before dereferencing data associated with it.
type ID uint32

// generationBits is the width of the generation field.
//
// Eight bits wrap after 256 destroy cycles on the same slot, at which point a
// stale ID can alias a new occupant. This is an accepted property of the
// scheme (verified at the wrap boundary in tests), chosen over a wider
// counter to keep IDs compact.
const (
	generationBits = 8
	generationMask = (1 << generationBits) - 1

	// MaxIndex is the largest slot index representable in an ID.
	MaxIndex = (1 << (32 - generationBits)) - 1
)

// Zero is the invalid ID. Manager never returns it from Create, so it is
// safe to use as a "no sender" marker in event records.
const Zero ID = 0

// NewID packs an index and generation into an ID.
func NewID(index uint32, generation uint8) ID {
	return ID(index<<generationBits | uint32(generation))
}

// Index returns the slot index encoded in the ID.
func (id ID) Index() uint32 {
	return uint32(id) >> generationBits
}

// Generation returns the generation encoded in the ID.
func (id ID) Generation() uint8 {
	return uint8(id & generationMask)
}
