// Package watchcmder provides the watch command that keeps a directory
// indexed as its files change.
package watchcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/cmd/docrag/stack"
	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
	"github.com/papercomputeco/docrag/pkg/dotdir"
	"github.com/papercomputeco/docrag/pkg/ingest"
	"github.com/papercomputeco/docrag/pkg/watch"
)

type watchCommander struct {
	workers    uint
	sqlitePath string
	debounce   time.Duration
	noScan     bool

	cfg       *config.Config
	configDir string
	logger    *slog.Logger

	stateMu sync.Mutex
	ddm     *dotdir.Manager
}

var watchFlags = []string{
	config.FlagWorkers,
	config.FlagSQLite,
}

const watchLongDesc string = `Watch a directory and keep its documents indexed.

Every supported file under the directory is indexed on start. Created and
modified files are re-indexed once writes settle, replacing their previous
version. Deleted files have their document and chunks removed.

The mapping from files to documents is kept in .docrag/watch.json so a
restarted watcher replaces documents instead of duplicating them.

Examples:
  docrag watch ./handbook
  docrag watch ./handbook --debounce 2s --no-scan`

const watchShortDesc string = "Keep a directory indexed as it changes"

func NewWatchCmd() *cobra.Command {
	cmder := &watchCommander{
		ddm: dotdir.NewManager(),
	}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := stack.LoadConfig(cmd, watchFlags)
			if err != nil {
				return err
			}
			cmder.cfg = cfg
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.logger = stack.NewLogger(cmd)
			return cmder.run(cmd, args[0])
		},
	}

	config.AddUintFlag(cmd, config.Flags, config.FlagWorkers, &cmder.workers)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	cmd.Flags().DurationVar(&cmder.debounce, "debounce", 500*time.Millisecond, "Quiet period before a changed file is re-indexed")
	cmd.Flags().BoolVar(&cmder.noScan, "no-scan", false, "Skip indexing the files already in the directory")

	return cmd
}

func (c *watchCommander) run(cmd *cobra.Command, dir string) error {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	known, err := c.knownDocuments(dir)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := stack.New(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer s.Close()

	// The pool only reports results for jobs the watcher queued, so w is
	// set before the first callback.
	var w *watch.Watcher
	pool, err := ingest.NewPool(&ingest.Config{
		Documents:  s.Documents,
		NumWorkers: c.cfg.Indexing.Workers,
		QueueSize:  c.cfg.Indexing.QueueSize,
		OnResult: func(r ingest.Result) {
			w.Track(r)
			c.saveState(dir, w.Snapshot())
		},
		Logger: c.logger,
	})
	if err != nil {
		return err
	}

	w, err = watch.New(watch.Config{
		Dir:         dir,
		Queue:       pool,
		Documents:   s.Documents,
		Debounce:    c.debounce,
		InitialScan: !c.noScan,
		Known:       known,
		Logger:      c.logger,
	})
	if err != nil {
		pool.Close()
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Watching %s %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(dir),
		cliui.DimStyle.Render("(Ctrl+C to stop)"),
	)

	err = w.Run(ctx)
	pool.Close()
	c.saveState(dir, w.Snapshot())
	return err
}

// knownDocuments returns the saved mapping when it belongs to dir.
func (c *watchCommander) knownDocuments(dir string) (map[string]string, error) {
	state, err := c.ddm.LoadWatchState(c.configDir)
	if err != nil {
		return nil, fmt.Errorf("loading watch state: %w", err)
	}
	if state == nil || state.Dir != dir {
		return nil, nil
	}
	return state.Documents, nil
}

func (c *watchCommander) saveState(dir string, docs map[string]string) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	err := c.ddm.SaveWatchState(&dotdir.WatchState{Dir: dir, Documents: docs}, c.configDir)
	if err != nil {
		c.logger.Warn("failed to save watch state", "error", err)
	}
}
