package cli

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/calder-games/simcore/internal/store"
	"github.com/calder-games/simcore/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
}

// ReplayResult holds the replay verification outcome.
type ReplayResult struct {
	Scenario          string `json:"scenario"`
	SessionID         string `json:"session_id"`
	StoredFingerprint string `json:"stored_fingerprint"`
	RerunFingerprint  string `json:"rerun_fingerprint"`
	FramesMatch       bool   `json:"frames_match"`
	Deterministic     bool   `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Re-run a scenario and verify it against its stored session",
		Long: `Re-run a scenario and verify determinism against its stored session.

The scenario is executed again from scratch and the resulting session is
compared, frame by frame and by content fingerprint, with the session
previously stored by 'simcore record'. Any divergence means the run was
not deterministic (or the scenario file changed since recording).

Exit codes:
  0 - Replay matches the stored session
  1 - Verification failed (fingerprint or frame mismatch)
  2 - Command error (database or session not found)

Examples:
  simcore replay scenario.yaml --db ./sessions.db
  simcore replay scenario.yaml --db ./sessions.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
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

	stored, err := st.LoadSession(context.Background(), result.SessionID)
	if err != nil {
		if store.IsNotFound(err) {
			return WrapExitError(ExitCommandError,
				fmt.Sprintf("no stored session for scenario %s; run 'simcore record' first", result.ScenarioName), err)
		}
		return WrapExitError(ExitCommandError, "failed to load stored session", err)
	}

	storedFingerprint, err := trace.SessionFingerprint(stored)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to fingerprint stored session", err)
	}

	out := ReplayResult{
		Scenario:          result.ScenarioName,
		SessionID:         result.SessionID,
		StoredFingerprint: storedFingerprint,
		RerunFingerprint:  result.Fingerprint,
		FramesMatch:       reflect.DeepEqual(stored.Frames, result.Session.Frames),
	}
	out.Deterministic = out.FramesMatch && out.StoredFingerprint == out.RerunFingerprint

	formatter.VerboseLog("Compared %d stored frame(s) against re-run", len(stored.Frames))

	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: out}
		if !out.Deterministic {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_DETERMINISM",
				Message: "replay verification failed",
			}
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}
		if !out.Deterministic {
			return NewExitError(ExitFailure, "replay verification failed")
		}
		return nil
	}

	w := formatter.Writer
	if out.Deterministic {
		fmt.Fprintf(w, "✓ Scenario %s replayed deterministically\n", out.Scenario)
		fmt.Fprintf(w, "Fingerprint: %s\n", out.RerunFingerprint)
		return nil
	}

	fmt.Fprintf(w, "✗ Replay verification failed for %s\n", out.Scenario)
	fmt.Fprintf(w, "  stored: %s\n", out.StoredFingerprint)
	fmt.Fprintf(w, "  re-run: %s\n", out.RerunFingerprint)
	if !out.FramesMatch {
		fmt.Fprintln(w, "  frame sequences differ")
	}
	return NewExitError(ExitFailure, "replay verification failed")
}
