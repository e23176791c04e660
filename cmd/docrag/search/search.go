// Package searchcmder provides the search command for raw similarity search
// over indexed chunks.
package searchcmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/api/client"
	apisearch "github.com/papercomputeco/docrag/api/search"
	"github.com/papercomputeco/docrag/cmd/docrag/stack"
	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	fileStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type searchCommander struct {
	query     string
	topK      int
	quiet     bool
	apiTarget string
}

const searchLongDesc string = `Search indexed chunks via the docrag API.

Returns the chunks most similar to the query text, best first, without
generating an answer. Requires a running docrag API server.

Use --quiet to output only document IDs, one per line.

Examples:
  docrag search "refund policy"
  docrag search "deployment checklist" --top-k 10
  docrag search "billing" --quiet`

const searchShortDesc string = "Search indexed document chunks"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, []string{config.FlagAPITarget})
			if err != nil {
				return err
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx, cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	config.AddIntFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only document IDs, one per line (for piping)")

	return cmd
}

func (c *searchCommander) run(ctx context.Context, w io.Writer) error {
	cl, err := client.New(c.apiTarget)
	if err != nil {
		return err
	}

	output, err := cl.Search(ctx, c.query, c.topK)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Fprintln(w, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Fprintln(w, result.DocumentID)
		}
		return nil
	}

	fmt.Fprintf(w, "\n%s %s\n\n",
		headerStyle.Render("Search Results for:"),
		fileStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		printResult(w, i+1, result)
	}

	return nil
}

func printResult(w io.Writer, rank int, result apisearch.SearchResult) {
	fmt.Fprintf(w, "  %s  %s  %s %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		fileStyle.Render(result.Filename),
		dimStyle.Render(fmt.Sprintf("chunk %d", result.ChunkIndex)),
	)

	preview := strings.ReplaceAll(result.Text, "\n", " ")
	fmt.Fprintf(w, "  %s\n", previewStyle.Render(utils.Truncate(preview, 80)))
	fmt.Fprintf(w, "  %s\n\n", dimStyle.Render(result.DocumentID))
}
