package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/qube/internal/driver"
	"github.com/roach88/qube/internal/ir"
	"github.com/roach88/qube/internal/kernel"
)

// SynthOptions holds flags for the synth command.
type SynthOptions struct {
	*RootOptions
	Seed string
}

// SynthOutput is the result of the synth command.
type SynthOutput struct {
	Anchor     string                  `json:"anchor"`
	Structures []ir.SyntheticStructure `json:"structures"`
}

// NewSynthCommand creates the synth command.
func NewSynthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SynthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Print the structures synthesized from an anchor",
		Long: `Initialize a kernel with --seed and print the structures it synthesizes
before any unit is executed. The output depends only on the seed.

Examples:
  qube synth --seed G
  qube synth --seed G --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Seed, "seed", "", "initial anchor (default $QUBE_SEED)")

	return cmd
}

func runSynth(opts *SynthOptions, cmd *cobra.Command) error {
	if !cmd.Flags().Changed("seed") && opts.Config.Seed != "" {
		opts.Seed = opts.Config.Seed
	}
	if opts.Seed == "" {
		opts.Seed = driver.DefaultSeed
	}

	k := kernel.New()
	if err := k.Initialize(opts.Seed); err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize kernel", err)
	}
	out := SynthOutput{Anchor: k.GetStateHash(), Structures: k.ReorganizeAndSynthesize()}
	k.Shutdown()

	f := opts.formatter(cmd)
	if opts.Format == "json" {
		return f.JSON("ok", out)
	}

	fmt.Fprintf(f.Writer, "anchor %s\n", out.Anchor)
	for i, s := range out.Structures {
		fmt.Fprintf(f.Writer, "[%d] %s x=%g y=%g w=%g h=%g\n", i, s.Type, s.X, s.Y, s.W, s.H)
	}
	return nil
}
