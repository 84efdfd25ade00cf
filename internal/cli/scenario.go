package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/driftsync/driftsync/internal/harness"
)

// NewScenarioCommand creates the "scenario" subcommand: runs a scenario
// file against a throwaway engine and prints the trace.
func NewScenarioCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario <file>",
		Short: "Run a scenario file and print its trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

			sc, err := harness.LoadScenario(args[0])
			if err != nil {
				out.Error("SCENARIO", err.Error())
				return NewExitError(ExitCommandError, "scenario rejected")
			}

			out.VerboseLog("running scenario %s (%d steps)", sc.Name, len(sc.Steps))
			result, err := harness.Run(sc, filepath.Dir(args[0]))
			if err != nil {
				out.Error("SCENARIO", err.Error())
				return NewExitError(ExitFailure, "scenario failed")
			}

			if opts.Format == "json" {
				return out.Success(result)
			}
			trace, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(trace))
			return nil
		},
	}
	return cmd
}
