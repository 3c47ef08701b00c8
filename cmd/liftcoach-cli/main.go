package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "liftcoach-cli",
		Short:         "LiftCoach command line tools",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSuggestCmd())
	root.AddCommand(newLadderCmd())
	root.AddCommand(newRecommendCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newImportCmd())
	return root
}
