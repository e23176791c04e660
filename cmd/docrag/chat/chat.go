// Package chatcmder provides an interactive question and answer session
// against a running docrag server.
package chatcmder

import (
	"context"
	"fmt"

	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/api/client"
	"github.com/papercomputeco/docrag/cmd/docrag/stack"
	"github.com/papercomputeco/docrag/pkg/config"
)

type chatCommander struct {
	apiTarget string
}

const chatLongDesc string = `Start an interactive question and answer session.

Each question is sent to a running docrag API server and answered from the
indexed documents. Answers are rendered as markdown with their sources.

Press Enter to ask, Ctrl+C or Esc to quit. /exit also quits.

Examples:
  docrag chat
  docrag chat --api-target http://localhost:9000`

const chatShortDesc string = "Interactive document Q&A"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, []string{config.FlagAPITarget})
			if err != nil {
				return err
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	cl, err := client.New(c.apiTarget)
	if err != nil {
		return err
	}

	p := bubbletea.NewProgram(newChatModel(ctx, cl, c.apiTarget), bubbletea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}
