// Package initcmder provides the init command for initializing a local
// .docrag directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docrag/pkg/cliui"
	"github.com/papercomputeco/docrag/pkg/config"
)

const (
	dirName = ".docrag"

	// maxRemoteConfigBytes bounds a --preset URL download.
	maxRemoteConfigBytes = 1 << 20
)

const initLongDesc string = `Initialize a new .docrag/ directory in the current working directory.

Creates a local .docrag/ directory that takes precedence over the default
~/.docrag/ directory for configuration, the local databases and the watch
state, then writes a config.toml.

Use --preset to start from a provider preset (openai, anthropic, ollama) or
from a config.toml served at an http(s) URL. Without --preset an existing
config.toml is left untouched.

Examples:
  docrag init
  docrag init --preset openai
  docrag init --preset https://example.com/team/docrag.toml`

const initShortDesc string = "Initialize a local .docrag/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "",
		fmt.Sprintf("Provider preset (%s) or URL of a config.toml", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run(ctx context.Context, w io.Writer) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .docrag directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}
	target := cfger.GetTarget()

	switch {
	case c.preset == "":
		if _, err := os.Stat(target); err == nil {
			fmt.Fprintf(w, "%s Already initialized: %s\n", cliui.SuccessMark, dir)
			return nil
		}
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return err
		}

	case isURL(c.preset):
		data, err := fetchRemoteConfig(ctx, c.preset)
		if err != nil {
			return err
		}
		if _, err := config.ParseConfigTOML(data); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

	default:
		cfg, err := config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
		if err := cfger.SaveConfig(cfg); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "%s Initialized .docrag directory: %s\n", cliui.SuccessMark, dir)
	return nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func fetchRemoteConfig(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteConfigBytes))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	return data, nil
}
