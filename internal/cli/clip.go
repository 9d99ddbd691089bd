package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/qube/internal/envelope"
)

// ClipOptions holds flags for the clip command.
type ClipOptions struct {
	*RootOptions
	Profile string
	Action  string // comma-separated values
}

// ClipDimension is the JSON view of one clipped dimension.
type ClipDimension struct {
	Name          string `json:"name"`
	Violation     string `json:"violation"`
	OriginalValue Float  `json:"original_value"`
	ClippedValue  Float  `json:"clipped_value"`
	WasModified   bool   `json:"was_modified"`
	Message       string `json:"message,omitempty"`
}

// ClipOutput is the result of the clip command.
type ClipOutput struct {
	Profile    string          `json:"profile"`
	Clamped    []Float         `json:"clamped"`
	Dimensions []ClipDimension `json:"dimensions"`
	Safe       bool            `json:"safe"`
	Breach     string          `json:"breach,omitempty"`
}

// NewClipCommand creates the clip command.
func NewClipCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClipOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "clip",
		Short: "Clip a proposed action against an envelope profile",
		Long: `Clamp a proposed action into the safety envelope described by a CUE
profile and report what happened to each dimension.

Values are comma-separated; NaN, Inf and -Inf are accepted.

Exit codes:
  0 - Action is safe (possibly clamped)
  1 - Invariant breach (non-finite value or dimension mismatch)
  2 - Command error (profile invalid, action unparsable, etc.)

Examples:
  qube clip --profile arm.cue --action 12,-2
  qube clip --profile arm.cue --action NaN,0 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClip(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Profile, "profile", "", "path to CUE envelope profile (required)")
	_ = cmd.MarkFlagRequired("profile")
	cmd.Flags().StringVar(&opts.Action, "action", "", "comma-separated proposed action (required)")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

func runClip(opts *ClipOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	profile, err := envelope.LoadProfile(opts.Profile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load profile", err)
	}

	action, err := parseAction(opts.Action)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid action", err)
	}

	f.VerboseLog("profile %s: %d dimensions", profile.Name, len(profile.Dimensions))
	result := profile.Clip(action)
	out := clipOutput(profile, result)

	if opts.Format == "json" {
		var err error
		if result.Safe {
			err = f.JSON("ok", out)
		} else {
			err = f.Error(CodeUnsafeAction, out.Breach, out)
		}
		if err != nil {
			return err
		}
	} else {
		outputClipText(f, out)
	}

	if err := result.Err(); err != nil {
		return WrapExitError(ExitFailure, "unsafe action", err)
	}
	return nil
}

// parseAction parses "1.5,-2,NaN" into an action. An empty string is an
// empty action.
func parseAction(s string) (envelope.Action, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return envelope.Action{}, nil
	}
	parts := strings.Split(s, ",")
	action := make(envelope.Action, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		action[i] = v
	}
	return action, nil
}

func clipOutput(profile *envelope.Profile, result envelope.Result) ClipOutput {
	out := ClipOutput{
		Profile:    profile.Name,
		Clamped:    make([]Float, len(result.Clamped)),
		Dimensions: make([]ClipDimension, len(result.Stats)),
		Safe:       result.Safe,
	}
	for i, v := range result.Clamped {
		out.Clamped[i] = Float(v)
	}
	for i, s := range result.Stats {
		name := ""
		if len(result.Stats) == len(profile.Dimensions) {
			name = profile.Dimensions[i].Name
		}
		out.Dimensions[i] = ClipDimension{
			Name:          name,
			Violation:     s.Violation.String(),
			OriginalValue: Float(s.OriginalValue),
			ClippedValue:  Float(s.ClippedValue),
			WasModified:   s.WasModified,
			Message:       s.Message,
		}
	}
	if err := result.Err(); err != nil {
		out.Breach = err.Error()
	}
	return out
}

func outputClipText(f *OutputFormatter, out ClipOutput) {
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIMENSION\tORIGINAL\tCLIPPED\tVIOLATION\tMESSAGE")
	for _, d := range out.Dimensions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.OriginalValue, d.ClippedValue, d.Violation, d.Message)
	}
	tw.Flush()

	if out.Safe {
		fmt.Fprintf(f.Writer, "\nSafe. Clamped action: %v\n", out.Clamped)
	} else {
		fmt.Fprintf(f.Writer, "\nUNSAFE: %s\n", out.Breach)
	}
}
