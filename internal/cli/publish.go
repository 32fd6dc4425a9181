package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skifflog/skiff/internal/devcodec"
	"github.com/skifflog/skiff/internal/rpc"
	"github.com/skifflog/skiff/internal/schema"
	"github.com/skifflog/skiff/internal/session"
)

// publishOptions holds flags shared by create/update/delete.
type publishOptions struct {
	keySeed    string
	schemasDir string
	previous   []string
}

func addPublishFlags(cmd *cobra.Command, opts *publishOptions) {
	cmd.Flags().StringVar(&opts.keySeed, "key", "", "secret seed for the dev signing key (required)")
	cmd.Flags().StringVar(&opts.schemasDir, "schemas", "", "directory of CUE schemas to validate against before publishing")
	cmd.MarkFlagRequired("key")
}

// buildSession wires up the session for publish commands.
func buildSession(rootOpts *RootOptions, opts *publishOptions) (*session.Session, devcodec.KeyPair, error) {
	var sessOpts []session.Option
	if opts.schemasDir != "" {
		reg, err := schema.LoadDir(opts.schemasDir)
		if err != nil {
			return nil, devcodec.KeyPair{}, err
		}
		sessOpts = append(sessOpts, session.WithSchemas(reg))
	}
	client := rpc.NewClient(rootOpts.NodeURL)
	return session.New(client, devcodec.New(), sessOpts...), devcodec.NewKeyPair(opts.keySeed), nil
}

// parseFieldArgs parses k=v arguments into a raw field map. Integers,
// floats, and booleans are recognized; everything else stays a string.
func parseFieldArgs(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("field %q: expected name=value", arg)
		}
		fields[name] = parseFieldValue(value)
	}
	return fields, nil
}

func parseFieldValue(value string) any {
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if value == "true" || value == "false" {
		return value == "true"
	}
	return value
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "create <schema-id> [field=value...]",
		Short: "Create a new document",
		Long: `Sign and publish a create operation with the development codec. The
printed entry hash is the new document's id.`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, kp, err := buildSession(rootOpts, opts)
			if err != nil {
				return err
			}
			fields, err := parseFieldArgs(args[1:])
			if err != nil {
				return err
			}
			entryBytes, err := sess.CreateDocument(cmd.Context(), args[0], fields, kp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), devcodec.EntryHash(entryBytes))
			return nil
		},
	}
	addPublishFlags(cmd, opts)
	return cmd
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "update <schema-id> <document-id> [field=value...]",
		Short: "Update an existing document",
		Args:          cobra.MinimumNArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, kp, err := buildSession(rootOpts, opts)
			if err != nil {
				return err
			}
			fields, err := parseFieldArgs(args[2:])
			if err != nil {
				return err
			}
			entryBytes, err := sess.UpdateDocument(cmd.Context(), args[0], args[1], opts.previous, fields, kp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), devcodec.EntryHash(entryBytes))
			return nil
		},
	}
	addPublishFlags(cmd, opts)
	cmd.Flags().StringSliceVar(&opts.previous, "previous", nil, "operation ids this update follows (required)")
	cmd.MarkFlagRequired("previous")
	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &publishOptions{}
	cmd := &cobra.Command{
		Use:   "delete <schema-id> <document-id>",
		Short: "Delete a document (permanent tombstone)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, kp, err := buildSession(rootOpts, opts)
			if err != nil {
				return err
			}
			entryBytes, err := sess.DeleteDocument(cmd.Context(), args[0], args[1], opts.previous, kp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), devcodec.EntryHash(entryBytes))
			return nil
		},
	}
	addPublishFlags(cmd, opts)
	cmd.Flags().StringSliceVar(&opts.previous, "previous", nil, "operation ids this delete follows (required)")
	cmd.MarkFlagRequired("previous")
	return cmd
}
