package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftsync/driftsync/internal/keyhive"
)

// NewPolicyCommand creates the "policy" subcommand: validates a CUE policy
// file and reports the effective settings.
func NewPolicyCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy <file>",
		Short: "Validate an access-control policy file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

			policy, err := keyhive.LoadPolicy(args[0])
			if err != nil {
				out.Error("POLICY", err.Error())
				return NewExitError(ExitFailure, "policy rejected")
			}

			return out.Success(policySummary{
				DefaultAccess:   policy.DefaultAccess.String(),
				AllowPublicPull: policy.AllowPublicPull,
				SealDocuments:   policy.SealDocuments,
			})
		},
	}
	return cmd
}

type policySummary struct {
	DefaultAccess   string `json:"default_access"`
	AllowPublicPull bool   `json:"allow_public_pull"`
	SealDocuments   bool   `json:"seal_documents"`
}

func (s policySummary) String() string {
	return fmt.Sprintf("default_access=%s allow_public_pull=%t seal_documents=%t",
		s.DefaultAccess, s.AllowPublicPull, s.SealDocuments)
}
