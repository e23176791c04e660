// Package docragcmder
package docragcmder

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/docrag/cmd/docrag/ask"
	chatcmder "github.com/papercomputeco/docrag/cmd/docrag/chat"
	configcmder "github.com/papercomputeco/docrag/cmd/docrag/config"
	documentscmder "github.com/papercomputeco/docrag/cmd/docrag/documents"
	ingestcmder "github.com/papercomputeco/docrag/cmd/docrag/ingest"
	initcmder "github.com/papercomputeco/docrag/cmd/docrag/init"
	searchcmder "github.com/papercomputeco/docrag/cmd/docrag/search"
	servecmder "github.com/papercomputeco/docrag/cmd/docrag/serve"
	watchcmder "github.com/papercomputeco/docrag/cmd/docrag/watch"
	versioncmder "github.com/papercomputeco/docrag/cmd/version"
)

const docragLongDesc string = `docrag answers questions about your documents.

Upload PDF, Word, Excel, Markdown and text files, then ask questions in
natural language. Answers are grounded in the retrieved passages and cite
the files they came from.

Run the server and index documents using:
  docrag serve                 Run the API server
  docrag ingest <paths...>     Index files and directories
  docrag watch <dir>           Keep a directory indexed as it changes
  docrag ask "<question>"      Ask a question against a running server
  docrag chat                  Interactive question and answer session`

const docragShortDesc string = "docrag - Document Q&A"

func NewDocragCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docrag",
		Short:         docragShortDesc,
		Long:          docragLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadDotEnv(".env")
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to the .docrag/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(watchcmder.NewWatchCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(documentscmder.NewDocumentsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}

// loadDotEnv exports variables from path without overriding the ones
// already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
