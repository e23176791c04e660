// Package documentscmder provides the documents command for managing the
// documents held by a running docrag server.
package documentscmder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/api/client"
	"github.com/papercomputeco/docrag/cmd/docrag/stack"
	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/storage"
)

const documentsLongDesc string = `Manage documents on a running docrag API server.

Use subcommands to upload, list, inspect, re-index or delete documents:
  docrag documents upload <files...>   Upload and index files
  docrag documents list                List documents, newest first
  docrag documents get <id>            Show one document
  docrag documents reindex <id>        Re-chunk and re-embed a document
  docrag documents delete <id>         Delete a document and its chunks`

const documentsShortDesc string = "Manage documents on a docrag server"

type documentsCommander struct {
	apiTarget string
}

func NewDocumentsCmd() *cobra.Command {
	cmder := &documentsCommander{}

	cmd := &cobra.Command{
		Use:     "documents",
		Aliases: []string{"docs"},
		Short:   documentsShortDesc,
		Long:    documentsLongDesc,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, []string{config.FlagAPITarget})
			if err != nil {
				return err
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
	}

	def := config.Flags[config.FlagAPITarget]
	cmd.PersistentFlags().StringVar(&cmder.apiTarget, def.Name, config.NewDefaultConfig().Client.APITarget, def.Description)

	cmd.AddCommand(cmder.newUploadCmd())
	cmd.AddCommand(cmder.newListCmd())
	cmd.AddCommand(cmder.newGetCmd())
	cmd.AddCommand(cmder.newReindexCmd())
	cmd.AddCommand(cmder.newDeleteCmd())

	return cmd
}

func (c *documentsCommander) client() (*client.Client, error) {
	return client.New(c.apiTarget)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func (c *documentsCommander) newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <files...>",
		Short: "Upload and index files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.client()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()

			failed := 0
			fmt.Fprintln(out)
			for _, path := range args {
				err := cliui.Step(out, "Uploading "+filepath.Base(path), func() error {
					return upload(ctx, cl, path)
				})
				if err != nil {
					fmt.Fprintf(out, "    %s\n", cliui.DimStyle.Render(err.Error()))
					failed++
				}
			}
			fmt.Fprintln(out)

			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(args))
			}
			return nil
		},
	}
}

func upload(ctx context.Context, cl *client.Client, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	resp, err := cl.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return err
	}
	if resp.Status == storage.StatusFailed {
		return fmt.Errorf("%s (document %s)", resp.Message, resp.ID)
	}
	return nil
}

func (c *documentsCommander) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := c.client()
			if err != nil {
				return err
			}
			resp, err := cl.ListDocuments(commandContext(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if resp.Count == 0 {
				fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No documents."))
				return nil
			}

			fmt.Fprintln(out)
			for _, doc := range resp.Documents {
				printDocument(out, doc)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func (c *documentsCommander) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.client()
			if err != nil {
				return err
			}
			doc, err := cl.GetDocument(commandContext(cmd), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			printDocument(out, doc)
			if doc.Error != "" {
				fmt.Fprintf(out, "    %s %s\n", cliui.KeyStyle.Render("error:"), doc.Error)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func (c *documentsCommander) newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex <id>",
		Short: "Re-chunk and re-embed a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.client()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var doc *storage.Document
			fmt.Fprintln(out)
			err = cliui.Step(out, "Re-indexing "+args[0], func() error {
				var err error
				doc, err = cl.ReindexDocument(commandContext(cmd), args[0])
				if err == nil && doc.Status == storage.StatusFailed {
					err = fmt.Errorf("indexing failed: %s", doc.Error)
				}
				return err
			})
			if doc != nil {
				printDocument(out, doc)
			}
			fmt.Fprintln(out)
			return err
		},
	}
}

func (c *documentsCommander) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.client()
			if err != nil {
				return err
			}
			if err := cl.DeleteDocument(commandContext(cmd), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Deleted %s\n\n", cliui.SuccessMark, cliui.ValueStyle.Render(args[0]))
			return nil
		},
	}
}

func printDocument(w io.Writer, doc *storage.Document) {
	fmt.Fprintf(w, "  %s %s %s\n",
		cliui.DocumentMark(doc.Status),
		cliui.NameStyle.Render(doc.Filename),
		cliui.DimStyle.Render(doc.ID),
	)
	fmt.Fprintf(w, "    %s\n", cliui.StepStyle.Render(fmt.Sprintf(
		"%s · %s · %d chunks · %s",
		doc.FileType, cliui.FormatBytes(doc.FileSize), doc.ChunkCount, doc.UploadedAt.Local().Format(time.DateTime),
	)))
}
