package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/skifflog/skiff/internal/schema"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schemas-dir>",
		Short: "Compile and check a directory of CUE schemas",
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

			reg, err := schema.LoadDir(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "schema check failed", err)
			}

			type schemaView struct {
				ID     string            `json:"id"`
				Name   string            `json:"name"`
				Fields map[string]string `json:"fields"`
			}
			views := make([]schemaView, 0, len(reg.IDs()))
			for _, id := range reg.IDs() {
				def, _ := reg.Get(id)
				fields := make(map[string]string, len(def.Fields))
				for name, ft := range def.Fields {
					fields[name] = string(ft)
				}
				views = append(views, schemaView{ID: id, Name: def.Name, Fields: fields})
			}

			if rootOpts.Format == "json" {
				return formatter.PrintJSON(views)
			}
			for _, v := range views {
				fmt.Fprintf(formatter.Writer, "%s (%s)\n", v.ID, v.Name)
				names := make([]string, 0, len(v.Fields))
				for name := range v.Fields {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(formatter.Writer, "  %s: %s\n", name, v.Fields[name])
				}
			}
			fmt.Fprintf(formatter.Writer, "%d schema(s) ok\n", len(views))
			return nil
		},
	}
	return cmd
}
