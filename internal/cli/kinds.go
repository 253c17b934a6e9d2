package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/stampede/internal/kinds"
)

// KindInfo describes one registered kind.
type KindInfo struct {
	Name   string   `json:"name"`
	States []string `json:"states"`
}

// KindsResult holds the kind listing.
type KindsResult struct {
	Kinds []KindInfo `json:"kinds"`
	Total int        `json:"total"`
}

// NewKindsCommand creates the kinds command.
func NewKindsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "List registered kinds",
		Long: `List every kind registered with the dispatch runtime.

For each kind, shows the state names in declared segment order. These are
the names accepted by "stampede run" and by scenario files.

Examples:
  stampede kinds
  stampede kinds --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKinds(rootOpts, cmd)
		},
	}

	return cmd
}

func runKinds(opts *RootOptions, cmd *cobra.Command) error {
	names := kinds.Names()

	result := KindsResult{
		Kinds: make([]KindInfo, 0, len(names)),
		Total: len(names),
	}
	for _, name := range names {
		runner, err := kinds.New(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build runner", err)
		}
		result.Kinds = append(result.Kinds, KindInfo{
			Name:   name,
			States: runner.States(),
		})
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		return formatter.Success(result)
	}

	return outputKindsText(cmd, result)
}

// outputKindsText outputs the kind listing as text.
func outputKindsText(cmd *cobra.Command, result KindsResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Registered kinds: %d\n", result.Total)
	fmt.Fprintln(w)

	width := 0
	for _, k := range result.Kinds {
		if len(k.Name) > width {
			width = len(k.Name)
		}
	}

	for _, k := range result.Kinds {
		fmt.Fprintf(w, "  %-*s  states:", width, k.Name)
		for _, s := range k.States {
			fmt.Fprintf(w, " %s", s)
		}
		fmt.Fprintln(w)
	}

	return nil
}
