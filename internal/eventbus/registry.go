package eventbus

import (
	"errors"
	"fmt"
)

// TypeID is the small integer key for an event type. The zero value is
// reserved and never names a registered type, so an unregistered name can
// never alias a real one.
type TypeID uint16

// MaxTypes is the maximum number of distinct event types a Bus supports.
const MaxTypes = 256

// ErrTooManyTypes is returned when the registry is full.
var ErrTooManyTypes = errors.New("eventbus: too many event types")

// ErrEmptyTypeName is returned for a registration with an empty name.
var ErrEmptyTypeName = errors.New("eventbus: empty event type name")

// registry maps event type names to dense TypeIDs.
//
// Registration is explicit and mandatory: Send and Subscribe reject ids that
// were never handed out, rather than defaulting unknown names to a shared
// id. names[0] is the reserved invalid slot.
type registry struct {
	ids   map[string]TypeID
	names []string
}

func newRegistry() *registry {
	return &registry{
		ids:   make(map[string]TypeID),
		names: make([]string, 1, 16), // Slot 0 reserved
	}
}

// register returns the id for name, assigning the next dense id on first
// registration. Registering an existing name is idempotent.
func (r *registry) register(name string) (TypeID, error) {
	if name == "" {
		return 0, ErrEmptyTypeName
	}
	if id, ok := r.ids[name]; ok {
		return id, nil
	}
	if len(r.names) >= MaxTypes {
		return 0, fmt.Errorf("%w: limit %d", ErrTooManyTypes, MaxTypes)
	}

	id := TypeID(len(r.names))
	r.ids[name] = id
	r.names = append(r.names, name)
	return id, nil
}

// lookup returns the id registered for name.
func (r *registry) lookup(name string) (TypeID, bool) {
	id, ok := r.ids[name]
	return id, ok
}

// valid reports whether id was handed out by this registry.
func (r *registry) valid(id TypeID) bool {
	return id != 0 && int(id) < len(r.names)
}

// name returns the name registered for id, or "" for an invalid id.
func (r *registry) name(id TypeID) string {
	if !r.valid(id) {
		return ""
	}
	return r.names[id]
}

// count returns the number of registered types.
func (r *registry) count() int {
	return len(r.names) - 1
}
