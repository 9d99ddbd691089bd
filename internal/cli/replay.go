package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qube/internal/driver"
	"github.com/roach88/qube/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Journal string
	Session string // optional - specific session only
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions      []driver.Report `json:"sessions"`
	TotalSessions int             `json:"total_sessions"`
	AllVerified   bool            `json:"all_verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled sessions and verify their anchors",
		Long: `Replay every journaled kernel call into two fresh kernels and check that
both reproduce the recorded outcomes and anchors.

Exit codes:
  0 - All sessions verified
  1 - Verification failed (mismatches detected)
  2 - Command error (journal not found, unknown session, etc.)

Examples:
  qube replay --journal ./qube.db
  qube replay --journal ./qube.db --session 0192...
  qube replay --journal ./qube.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal path (default $QUBE_JOURNAL)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !cmd.Flags().Changed("journal") {
		opts.Journal = opts.Config.Journal
	}
	if opts.Journal == "" {
		return NewExitError(ExitCommandError, "--journal is required")
	}
	f := opts.formatter(cmd)

	st, err := store.Open(opts.Journal, store.MustExist())
	if errors.Is(err, store.ErrJournalNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", opts.Journal))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	var ids []string
	if opts.Session != "" {
		ids = []string{opts.Session}
	} else {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
	}

	result := ReplayResult{Sessions: []driver.Report{}, AllVerified: true}
	for _, id := range ids {
		if opts.Verbose {
			state, err := st.GetSessionState(ctx, id)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read session %s", id), err)
			}
			f.VerboseLog("replaying session %s: seed=%s accepted=%d rejected=%d docks=%d",
				id, state.Session.Seed, state.Accepted, state.Rejected, state.Docks)
		}
		report, err := driver.VerifySession(ctx, st, id)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", id), err)
		}
		result.Sessions = append(result.Sessions, report)
		result.TotalSessions++
		if !report.OK() {
			result.AllVerified = false
		}
	}

	if opts.Format == "json" {
		var err error
		if result.AllVerified {
			err = f.JSON("ok", result)
		} else {
			err = f.Error(CodeReplayMismatch, "replay verification failed", result)
		}
		if err != nil {
			return err
		}
	} else {
		outputReplayText(f, result)
	}

	if !result.AllVerified {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

func outputReplayText(f *OutputFormatter, result ReplayResult) {
	w := f.Writer
	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return
	}

	for _, r := range result.Sessions {
		if r.OK() {
			fmt.Fprintf(w, "✓ %s (%d records, anchor %s)\n", r.SessionID, r.Records, r.FinalAnchor)
			continue
		}
		fmt.Fprintf(w, "✗ %s (%d records, %d mismatches)\n", r.SessionID, r.Records, len(r.Mismatches))
		for _, m := range r.Mismatches {
			fmt.Fprintf(w, "  record %d %s: want %s, got %s\n", m.Seq, m.Field, m.Want, m.Got)
		}
	}

	fmt.Fprintln(w)
	if result.AllVerified {
		fmt.Fprintf(w, "All %d sessions verified.\n", result.TotalSessions)
	} else {
		fmt.Fprintln(w, "Verification FAILED.")
	}
}
