package cli

import (
	"github.com/spf13/cobra"

	"github.com/skifflog/skiff/internal/devcodec"
	"github.com/skifflog/skiff/internal/rpc"
	"github.com/skifflog/skiff/internal/session"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <schema-id>",
		Short: "Fetch and materialize a schema's documents",
		Long: `Fetch all entries for a schema from the node, decode them with the
development codec, and fold them into current document state.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			client := rpc.NewClient(rootOpts.NodeURL)
			sess := session.New(client, devcodec.New())

			formatter.VerboseLog("querying %s at %s", args[0], rootOpts.NodeURL)
			docs, err := sess.QueryDocuments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return formatter.PrintDocuments(docs)
		},
	}
	return cmd
}
