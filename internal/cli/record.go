package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder-games/simcore/internal/store"
)

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	Database string
}

// RecordResult holds the output of a record run.
type RecordResult struct {
	Scenario    string `json:"scenario"`
	SessionID   string `json:"session_id"`
	Fingerprint string `json:"fingerprint"`
	Frames      int    `json:"frames"`
	Database    string `json:"database"`
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record <scenario.yaml>",
		Short: "Run a scenario and store the session",
		Long: `Run a scenario under recording and persist the session to a database.

The stored session carries its content fingerprint; 'simcore replay' later
re-runs the scenario and compares fingerprints to verify determinism.
Recording the same scenario into the same database twice is a no-op, since
the session id is derived from the scenario name.

Examples:
  simcore record scenario.yaml --db ./sessions.db
  simcore record scenario.yaml --db ./sessions.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runRecord(opts *RecordOptions, path string, cmd *cobra.Command) error {
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

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	result.Session.Metadata["scenario"] = result.ScenarioName
	if err := st.SaveSession(context.Background(), result.Session); err != nil {
		return WrapExitError(ExitCommandError, "failed to save session", err)
	}

	formatter.VerboseLog("Saved session %s (%d frames)", result.SessionID, result.Session.FrameCount())

	out := RecordResult{
		Scenario:    result.ScenarioName,
		SessionID:   result.SessionID,
		Fingerprint: result.Fingerprint,
		Frames:      result.Session.FrameCount(),
		Database:    opts.Database,
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: out})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Recorded %s -> %s\n", out.Scenario, out.Database)
	fmt.Fprintf(w, "Session: %s (%d frames)\n", out.SessionID, out.Frames)
	fmt.Fprintf(w, "Fingerprint: %s\n", out.Fingerprint)
	return nil
}
