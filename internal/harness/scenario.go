// Package harness provides a conformance testing framework for the
// simulation core.
//
// A Scenario scripts a short run: which event types exist, which entity and
// bus operations happen at which tick, and how many random draws each tick
// makes. The harness executes the scenario on a fresh simulation loop under
// recording with fixed seed, start time, and session id, so every run of the
// same scenario produces the identical trace and fingerprint. Traces are
// compared against golden files; fingerprints back the replay-verification
// CLI path.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a deterministic conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario; it keys the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Seed seeds the deterministic PRNG for the recorded run.
	Seed uint64 `yaml:"seed"`

	// Ticks is the number of simulation frames to run.
	Ticks int `yaml:"ticks"`

	// Config overrides the loop's tuning defaults for this run.
	Config *RunConfig `yaml:"config,omitempty"`

	// EventTypes are registered on the bus before the run, in order.
	// Step event names must come from this list.
	EventTypes []string `yaml:"event_types,omitempty"`

	// Steps are the scripted operations, applied at their tick in
	// declaration order.
	Steps []Step `yaml:"steps,omitempty"`
}

// Step is one scripted operation.
type Step struct {
	// Tick is the frame at which the step runs (0-based).
	Tick int `yaml:"tick"`

	// Op is the operation: "create", "destroy", "send", or "draw".
	Op string `yaml:"op"`

	// Count is how many times the operation repeats. Zero means one.
	Count int `yaml:"count,omitempty"`

	// Entity selects the target of a destroy: the ordinal of the entity in
	// creation order (0 is the first entity the scenario created).
	Entity int `yaml:"entity,omitempty"`

	// Event is the event type name for a send.
	Event string `yaml:"event,omitempty"`

	// Payload is the event payload for a send. Integral plain data only.
	Payload map[string]any `yaml:"payload,omitempty"`
}

// RunConfig carries the loop tuning knobs a scenario may override.
// Zero fields keep the defaults.
type RunConfig struct {
	EntityCapacity int `yaml:"entity_capacity,omitempty"`
	EventCap       int `yaml:"event_cap,omitempty"`
	MaxFanout      int `yaml:"max_fanout,omitempty"`
	PoolCapacity   int `yaml:"pool_capacity,omitempty"`
	MaxFrames      int `yaml:"max_frames,omitempty"`
}

// Step operation constants.
const (
	OpCreate  = "create"
	OpDestroy = "destroy"
	OpSend    = "send"
	OpDraw    = "draw"
)

// Validate checks scenario well-formedness before execution.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scenario: name is required")
	}
	if s.Ticks <= 0 {
		return fmt.Errorf("scenario %s: ticks must be positive", s.Name)
	}

	if c := s.Config; c != nil {
		for name, v := range map[string]int{
			"entity_capacity": c.EntityCapacity,
			"event_cap":       c.EventCap,
			"max_fanout":      c.MaxFanout,
			"pool_capacity":   c.PoolCapacity,
			"max_frames":      c.MaxFrames,
		} {
			if v < 0 {
				return fmt.Errorf("scenario %s: config %s must not be negative", s.Name, name)
			}
		}
	}

	types := make(map[string]bool, len(s.EventTypes))
	for _, name := range s.EventTypes {
		if name == "" {
			return fmt.Errorf("scenario %s: empty event type name", s.Name)
		}
		if types[name] {
			return fmt.Errorf("scenario %s: duplicate event type %q", s.Name, name)
		}
		types[name] = true
	}

	for i, step := range s.Steps {
		if step.Tick < 0 || step.Tick >= s.Ticks {
			return fmt.Errorf("scenario %s: step %d tick %d out of range [0,%d)",
				s.Name, i, step.Tick, s.Ticks)
		}
		switch step.Op {
		case OpCreate, OpDraw:
		case OpDestroy:
			if step.Entity < 0 {
				return fmt.Errorf("scenario %s: step %d negative entity ordinal", s.Name, i)
			}
		case OpSend:
			if !types[step.Event] {
				return fmt.Errorf("scenario %s: step %d sends unregistered event %q",
					s.Name, i, step.Event)
			}
		default:
			return fmt.Errorf("scenario %s: step %d unknown op %q", s.Name, i, step.Op)
		}
		if step.Count < 0 {
			return fmt.Errorf("scenario %s: step %d negative count", s.Name, i)
		}
	}
	return nil
}

// LoadScenario reads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
