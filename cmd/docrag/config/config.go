// Package configcmder provides the config command for managing persistent
// docrag configuration stored in the .docrag/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent docrag configuration.

Configuration is stored as config.toml in the .docrag/ directory and provides
default values for command flags. CLI flags and DOCRAG_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  storage.provider, storage.sqlite_path,
  vector_store.provider, vector_store.target,
  embedding.provider, embedding.model, embedding.dimensions,
  llm.provider, llm.model,
  chunking.window_size, chunking.overlap,
  retrieval.top_k, retrieval.min_score,
  api.listen, client.api_target

Use subcommands to get, set, or list configuration values:
  docrag config set <key> <value>    Set a configuration value
  docrag config get <key>            Get a configuration value
  docrag config list                 List all configuration values

Examples:
  docrag config set llm.provider openai
  docrag config set chunking.window_size 800
  docrag config get retrieval.min_score
  docrag config list`

const configShortDesc string = "Manage persistent docrag configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
