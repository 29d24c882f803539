// Command rifasctl is the operator CLI: it generates JWT signing keys, mints
// tokens for local testing and applies database migrations.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "rifasctl",
		Short:         "Operator tooling for the raffle and auction backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(newKeysCmd(), newTokenCmd(), newMigrateCmd())
	return root
}
