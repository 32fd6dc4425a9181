package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skifflog/skiff/internal/archive"
	"github.com/skifflog/skiff/internal/devcodec"
	"github.com/skifflog/skiff/internal/entry"
	"github.com/skifflog/skiff/internal/materialize"
)

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "replay <schema-id>",
		Short: "Materialize documents from locally archived entries",
		Long: `Read every archived entry for a schema from the local archive, decode
it with the development codec, and fold the entries into documents
without contacting a node.`,
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

			arc, err := archive.Open(dbPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open archive", err)
			}
			defer arc.Close()

			encoded, err := arc.EntriesForSchema(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			formatter.VerboseLog("replaying %d archived entries for %s", len(encoded), args[0])

			codec := devcodec.New()
			records := make([]entry.EntryRecord, 0, len(encoded))
			for _, enc := range encoded {
				entryBytes, err := hex.DecodeString(enc.EntryBytes)
				if err != nil {
					return fmt.Errorf("archived entry %s: bad entry bytes: %w", enc.EntryHash, err)
				}
				payloadBytes, err := hex.DecodeString(enc.PayloadBytes)
				if err != nil {
					return fmt.Errorf("archived entry %s: bad payload bytes: %w", enc.EntryHash, err)
				}
				dec, err := codec.DecodeEntry(entryBytes, payloadBytes)
				if err != nil {
					return fmt.Errorf("archived entry %s: %w", enc.EntryHash, err)
				}
				records = append(records, entry.EntryRecord{
					Author:    dec.Author,
					EntryHash: enc.EntryHash,
					LogID:     dec.LogID,
					SeqNum:    dec.SeqNum,
					Backlink:  dec.Backlink,
					Skiplink:  dec.Skiplink,
					Operation: dec.Operation,
				})
			}

			set, err := materialize.Materialize(records)
			if err != nil {
				return err
			}
			return formatter.PrintDocuments(set.Documents())
		},
	}

	cmd.Flags().StringVar(&dbPath, "archive", "skiff.db", "path to the local entry archive")
	return cmd
}
