// Package ingestcmder provides the ingest command for indexing local files
// and directories without a running server.
package ingestcmder

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/cmd/docrag/stack"
	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/ingest"
	"github.com/papercomputeco/docrag/pkg/storage"
)

type ingestCommander struct {
	workers    uint
	sqlitePath string

	cfg       *config.Config
	configDir string
}

var ingestFlags = []string{
	config.FlagWorkers,
	config.FlagSQLite,
}

const ingestLongDesc string = `Index files and directories into the local docrag store.

Directories are walked recursively. Hidden entries and unsupported file
types are skipped. Supported types are .pdf, .docx, .xlsx, .md, .markdown
and .txt.

Files are processed by a pool of workers; use --workers to change its size.

Examples:
  docrag ingest ./handbook
  docrag ingest report.pdf notes.md --workers 8`

const ingestShortDesc string = "Index local files and directories"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <paths...>",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, ingestFlags)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)

	return cmd
}

func (c *ingestCommander) run(cmd *cobra.Command, paths []string) error {
	log := stack.NewLogger(cmd)
	out := cmd.OutOrStdout()

	files, err := ingest.Collect(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(out, "\n  %s\n\n", cliui.DimStyle.Render("No supported files found."))
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := stack.New(ctx, c.cfg, c.configDir, log)
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		mu      sync.Mutex
		results []ingest.Result
	)

	fmt.Fprintln(out)
	err = cliui.Step(out, fmt.Sprintf("Indexing %d files", len(files)), func() error {
		pool, err := ingest.NewPool(&ingest.Config{
			Documents:  s.Documents,
			NumWorkers: c.cfg.Indexing.Workers,
			QueueSize:  c.cfg.Indexing.QueueSize,
			OnResult: func(r ingest.Result) {
				mu.Lock()
				results = append(results, r)
				mu.Unlock()
			},
			Logger: log,
		})
		if err != nil {
			return err
		}

		for _, f := range files {
			if err := pool.Submit(ctx, ingest.Job{Path: f}); err != nil {
				pool.Close()
				return err
			}
		}
		pool.Close()

		return failures(results)
	})

	printResults(out, results)
	return err
}

func failures(results []ingest.Result) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil || (r.Document != nil && r.Document.Status == storage.StatusFailed) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to index", failed, len(results))
	}
	return nil
}

func printResults(w io.Writer, results []ingest.Result) {
	slices.SortFunc(results, func(a, b ingest.Result) int {
		return strings.Compare(a.Job.Path, b.Job.Path)
	})

	fmt.Fprintln(w)
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "  %s %s %s\n", cliui.FailMark, r.Job.Path, cliui.DimStyle.Render(r.Err.Error()))
		case r.Document.Status == storage.StatusFailed:
			fmt.Fprintf(w, "  %s %s %s\n", cliui.FailMark, r.Job.Path, cliui.DimStyle.Render(r.Document.Error))
		default:
			fmt.Fprintf(w, "  %s %s %s\n",
				cliui.DocumentMark(r.Document.Status),
				r.Job.Path,
				cliui.DimStyle.Render(fmt.Sprintf("(%d chunks, %s)", r.Document.ChunkCount, r.Document.ID)),
			)
		}
	}
	fmt.Fprintln(w)
}
