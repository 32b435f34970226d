package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results for one scenario file.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError is one schema or semantic problem in a scenario file.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Validate a scenario file without running it",
		Long: `Validate a scenario file against the scenario schema and semantic rules.

Checks YAML syntax, the CUE schema (field names, types, op values), and
semantic constraints (step ticks in range, send targets registered event
types) without executing the scenario.

Exit codes:
  0 - Scenario is valid
  1 - Validation failed
  2 - Command error (file not found, unreadable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	scenario, loadErrs := LoadScenarioFile(path)
	if len(loadErrs) > 0 {
		if loadErrs[0].Code == ErrCodeNotFound {
			_ = formatter.Error(loadErrs[0].Code, loadErrs[0].Message, nil)
			return NewExitError(ExitCommandError, loadErrs[0].Message)
		}
		return outputValidationErrors(formatter, loadErrs)
	}

	formatter.VerboseLog("Scenario %s: %d tick(s), %d step(s)",
		scenario.Name, scenario.Ticks, len(scenario.Steps))

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: ValidationResult{Valid: true}})
	}
	fmt.Fprintf(formatter.Writer, "✓ Scenario %q valid\n", scenario.Name)
	return nil
}

// outputValidationErrors reports validation failures and maps them to exit
// code 1.
func outputValidationErrors(formatter *OutputFormatter, loadErrs []*LoadError) error {
	errs := make([]ValidationError, len(loadErrs))
	for i, e := range loadErrs {
		errs[i] = ValidationError{Code: e.Code, Message: e.Message}
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
