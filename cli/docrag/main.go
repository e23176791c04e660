package main

import (
	"os"

	"github.com/spf13/cobra"

	docragcmder "github.com/papercomputeco/docrag/cmd/docrag"
)

func main() {
	// Subcommand pre-run hooks load config; the root hook loads .env first.
	cobra.EnableTraverseRunHooks = true

	cmd := docragcmder.NewDocragCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
