package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/calder-games/simcore/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
	Delete   string
}

// SessionRow is one stored session in JSON output.
type SessionRow struct {
	ID          string `json:"id"`
	Seed        uint64 `json:"seed"`
	Frames      int    `json:"frames"`
	Duration    string `json:"duration"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"created_at"`
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List or delete stored sessions",
		Long: `List the sessions stored in a database, oldest first.

Examples:
  simcore sessions --db ./sessions.db
  simcore sessions --db ./sessions.db --format json
  simcore sessions --db ./sessions.db --delete session-combat-demo`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "delete the session with this id")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := context.Background()

	if opts.Delete != "" {
		deleted, err := st.DeleteSession(ctx, opts.Delete)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to delete session", err)
		}
		if !deleted {
			return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Delete))
		}
		return formatter.Success(fmt.Sprintf("Deleted session %s", opts.Delete))
	}

	infos, err := st.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	if formatter.Format == "json" {
		rows := make([]SessionRow, len(infos))
		for i, info := range infos {
			rows[i] = SessionRow{
				ID:          info.ID,
				Seed:        info.Seed,
				Frames:      info.FrameCount,
				Duration:    info.Duration.String(),
				Fingerprint: info.Fingerprint,
				CreatedAt:   info.CreatedAt.Format(time.RFC3339),
			}
		}
		return formatter.JSON(CLIResponse{Status: "ok", Data: rows})
	}

	w := formatter.Writer
	if len(infos) == 0 {
		fmt.Fprintln(w, "No sessions stored.")
		return nil
	}

	fmt.Fprintf(w, "%d session(s)\n\n", len(infos))
	for _, info := range infos {
		fmt.Fprintf(w, "%s\n", info.ID)
		fmt.Fprintf(w, "  seed %d, %d frames, %s\n", info.Seed, info.FrameCount, info.Duration)
		if opts.Verbose {
			fmt.Fprintf(w, "  fingerprint %s\n", info.Fingerprint)
			fmt.Fprintf(w, "  created %s\n", info.CreatedAt.Format(time.RFC3339))
		} else {
			fmt.Fprintf(w, "  fingerprint %.16s…\n", info.Fingerprint)
		}
		fmt.Fprintln(w)
	}
	return nil
}
