package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder-games/simcore/internal/harness"
)

// RunResult holds the output of a scenario run.
type RunResult struct {
	Scenario    string     `json:"scenario"`
	SessionID   string     `json:"session_id"`
	Fingerprint string     `json:"fingerprint"`
	Frames      int        `json:"frames"`
	EventsSent  uint64     `json:"events_sent"`
	Dropped     uint64     `json:"events_dropped"`
	Trace       []RunTrace `json:"trace,omitempty"`
}

// RunTrace is one trace event in JSON output.
type RunTrace struct {
	Tick   int64          `json:"tick"`
	Kind   string         `json:"kind"`
	Detail map[string]any `json:"detail,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and print its fingerprint",
		Long: `Run a scenario under recording and print the session fingerprint.

The run is fully deterministic: the PRNG is seeded by the scenario, the
virtual clock starts at a fixed epoch, and the session id is derived from
the scenario name. Running the same file twice prints the same fingerprint.

Examples:
  simcore run scenario.yaml
  simcore run scenario.yaml --format json
  simcore run scenario.yaml -v`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runRun(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result, err := loadAndRun(path)
	if err != nil {
		return err
	}

	out := RunResult{
		Scenario:    result.ScenarioName,
		SessionID:   result.SessionID,
		Fingerprint: result.Fingerprint,
		Frames:      result.Session.FrameCount(),
		EventsSent:  result.BusStats.Sent,
		Dropped:     result.BusStats.Dropped,
	}
	if opts.Verbose {
		for _, ev := range result.Trace {
			out.Trace = append(out.Trace, RunTrace{Tick: ev.Tick, Kind: ev.Kind, Detail: ev.Detail})
		}
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: out})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Scenario: %s\n", out.Scenario)
	fmt.Fprintf(w, "Session: %s (%d frames)\n", out.SessionID, out.Frames)
	fmt.Fprintf(w, "Events: %d sent, %d dropped\n", out.EventsSent, out.Dropped)
	fmt.Fprintf(w, "Fingerprint: %s\n", out.Fingerprint)
	if opts.Verbose {
		fmt.Fprintln(w)
		for _, ev := range result.Trace {
			fmt.Fprintf(w, "  tick %d  %-8s %v\n", ev.Tick, ev.Kind, ev.Detail)
		}
	}
	return nil
}

// loadAndRun loads a scenario file and executes it, mapping load errors to
// exit codes.
func loadAndRun(path string) (*harness.Result, error) {
	scenario, loadErrs := LoadScenarioFile(path)
	if len(loadErrs) > 0 {
		code := ExitFailure
		if loadErrs[0].Code == ErrCodeNotFound {
			code = ExitCommandError
		}
		return nil, NewExitError(code, loadErrs[0].Error())
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "scenario run failed", err)
	}
	return result, nil
}
