// Package askcmder provides the ask command that sends one question to a
// running docrag server.
package askcmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/docrag/api"
	"github.com/papercomputeco/docrag/api/client"
	"github.com/papercomputeco/docrag/cmd/docrag/stack"
	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
)

type askCommander struct {
	apiTarget string
	raw       bool
}

const askLongDesc string = `Ask a question about the indexed documents.

Sends the question to a running docrag API server and prints the answer
followed by the files it was drawn from.

Examples:
  docrag ask "What is the refund policy?"
  docrag ask "Summarize the onboarding guide" --raw
  docrag ask "Who owns the billing service?" --api-target http://localhost:9000`

const askShortDesc string = "Ask a question about your documents"

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, []string{config.FlagAPITarget})
			if err != nil {
				return err
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx, cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the answer without markdown rendering (implied when stdout is not a terminal)")

	return cmd
}

func (c *askCommander) run(ctx context.Context, w io.Writer, question string) error {
	cl, err := client.New(c.apiTarget)
	if err != nil {
		return err
	}

	resp, err := cl.Ask(ctx, question)
	if err != nil {
		return err
	}

	PrintAnswer(w, resp, c.raw || !isTerminal(w))
	return nil
}

// isTerminal reports whether w is an interactive terminal. Piped output is
// printed raw.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// PrintAnswer writes the answer, rendered as markdown unless raw, and its
// sources.
func PrintAnswer(w io.Writer, resp *api.ChatResponse, raw bool) {
	text := resp.Answer
	if !raw {
		if rendered, err := cliui.RenderMarkdown(text); err == nil {
			text = rendered
		}
	}
	fmt.Fprintln(w, strings.TrimRight(text, "\n"))

	if len(resp.Sources) == 0 {
		return
	}
	fmt.Fprintf(w, "\n  %s\n", cliui.KeyStyle.Render("Sources:"))
	for _, s := range resp.Sources {
		fmt.Fprintf(w, "    %s %s\n", cliui.DimStyle.Render("-"), cliui.ValueStyle.Render(s))
	}
	fmt.Fprintln(w)
}
