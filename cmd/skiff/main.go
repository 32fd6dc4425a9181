// Command skiff is a client for nodes hosting append-only, per-author
// logs of signed document operations.
package main

import (
	"fmt"
	"os"

	"github.com/skifflog/skiff/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
