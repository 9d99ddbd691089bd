package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qube/internal/driver"
	"github.com/roach88/qube/internal/store"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Seed            string
	Journal         string
	SynthesizeEvery int
	MaxLineBytes    int
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Drive a kernel from NDJSON records on stdin",
		Long: `Read transition units and dock records from stdin, one JSON object per
line, and apply them to a fresh kernel in arrival order.

One JSON event is written to stdout per record: ack, nack, dock, synth or
skip. Malformed lines are skipped and reported, never fatal. With --journal
every kernel call is recorded in a SQLite session that "qube replay" can
verify.

Flags override the QUBE_SEED, QUBE_JOURNAL, QUBE_SYNTHESIZE_EVERY and
QUBE_MAX_LINE_BYTES environment variables.

Exit codes:
  0 - Input consumed
  2 - Command error (journal not writable, output closed, etc.)

Examples:
  qube ingest < units.ndjson
  qube ingest --seed G --journal ./qube.db < units.ndjson
  qube ingest --synthesize-every 10 < units.ndjson`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Seed, "seed", "", "initial anchor (default $QUBE_SEED or "+driver.DefaultSeed+")")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal path (default $QUBE_JOURNAL, empty disables)")
	cmd.Flags().IntVar(&opts.SynthesizeEvery, "synthesize-every", 0, "emit structures after every N accepted units")
	cmd.Flags().IntVar(&opts.MaxLineBytes, "max-line-bytes", 0, "longest accepted input line")

	return cmd
}

// resolve fills unset flags from the loaded configuration.
func (o *IngestOptions) resolve(cmd *cobra.Command) {
	if !cmd.Flags().Changed("seed") {
		o.Seed = o.Config.Seed
	}
	if !cmd.Flags().Changed("journal") {
		o.Journal = o.Config.Journal
	}
	if !cmd.Flags().Changed("synthesize-every") {
		o.SynthesizeEvery = o.Config.SynthesizeEvery
	}
	if !cmd.Flags().Changed("max-line-bytes") {
		o.MaxLineBytes = o.Config.MaxLineBytes
	}
}

func runIngest(ctx context.Context, opts *IngestOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts.resolve(cmd)
	f := opts.formatter(cmd)

	if opts.SynthesizeEvery < 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--synthesize-every must not be negative, got %d", opts.SynthesizeEvery))
	}

	driverOpts := []driver.Option{driver.WithSynthesizeEvery(opts.SynthesizeEvery)}
	if opts.MaxLineBytes > 0 {
		driverOpts = append(driverOpts, driver.WithMaxLineBytes(opts.MaxLineBytes))
	}

	if opts.Journal != "" {
		st, err := store.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer st.Close()
		driverOpts = append(driverOpts, driver.WithJournal(st, nil))
	}

	stats, err := driver.New(opts.Seed, cmd.OutOrStdout(), driverOpts...).Run(ctx, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "ingest failed", err)
	}

	f.VerboseLog("accepted=%d rejected=%d docked=%d skipped=%d synthesized=%d",
		stats.Accepted, stats.Rejected, stats.Docked, stats.Skipped, stats.Synthesized)
	f.VerboseLog("final anchor: %s", stats.FinalAnchor)
	if stats.SessionID != "" {
		f.VerboseLog("session: %s", stats.SessionID)
	}
	return nil
}
