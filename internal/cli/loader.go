package cli

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/calder-games/simcore/internal/harness"
)

//go:embed schema.cue
var scenarioSchemaCUE string

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Scenario file not found
	ErrCodeParseFailed = "E003" // YAML parse failed
	ErrCodeSchema      = "E004" // CUE schema violation
	ErrCodeSemantic    = "E005" // Semantic validation failed (tick range, unknown op, ...)
)

// LoadError is one error produced while loading a scenario file.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// scenarioSchema compiles the embedded schema and returns the #Scenario
// definition.
func scenarioSchema() (cue.Value, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(scenarioSchemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile scenario schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Scenario"))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("lookup #Scenario: %w", err)
	}
	return def, nil
}

// ValidateScenarioBytes checks raw scenario YAML against the embedded CUE
// schema and the scenario's semantic rules. Returns one LoadError per
// problem found; an empty slice means the scenario is valid.
func ValidateScenarioBytes(data []byte) []*LoadError {
	var decoded any
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return []*LoadError{{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parse YAML: %v", err)}}
	}

	schema, err := scenarioSchema()
	if err != nil {
		return []*LoadError{{Code: ErrCodeGeneric, Message: err.Error()}}
	}

	val := schema.Context().Encode(decoded)
	if err := val.Err(); err != nil {
		return []*LoadError{{Code: ErrCodeSchema, Message: fmt.Sprintf("encode scenario: %v", err)}}
	}

	var errs []*LoadError
	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			errs = append(errs, &LoadError{Code: ErrCodeSchema, Message: e.Error()})
		}
		return errs
	}

	// Schema passed; run the semantic checks the schema cannot express.
	if _, err := harness.ParseScenario(data); err != nil {
		errs = append(errs, &LoadError{Code: ErrCodeSemantic, Message: err.Error()})
	}
	return errs
}

// LoadScenarioFile reads, schema-validates, and decodes a scenario file.
func LoadScenarioFile(path string) (*harness.Scenario, []*LoadError) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, []*LoadError{{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenario file not found: %s", path)}}
		}
		return nil, []*LoadError{{Code: ErrCodeNotFound, Message: fmt.Sprintf("read scenario file: %v", err)}}
	}

	if errs := ValidateScenarioBytes(data); len(errs) > 0 {
		return nil, errs
	}

	s, err := harness.ParseScenario(data)
	if err != nil {
		return nil, []*LoadError{{Code: ErrCodeSemantic, Message: err.Error()}}
	}
	return s, nil
}
