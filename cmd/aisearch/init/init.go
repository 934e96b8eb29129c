// Package initcmder provides the init command for initializing a local
// .aisearch directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aisearch/pkg/cliui"
	"github.com/papercomputeco/aisearch/pkg/config"
)

const (
	dirName = ".aisearch"

	fetchTimeout = 15 * time.Second
)

const initLongDesc string = `Initialize a new .aisearch/ directory in the current working directory.

Creates a local .aisearch/ directory that takes precedence over the default
~/.aisearch/ directory for configuration and stream recordings, and writes a
config.toml with default values if none exists.

Use --preset to start from a named backend preset or from a config.toml
served at a URL. A preset always replaces an existing config.toml.

Presets:
  pravochat   The hosted workspace (default values)
  local       The mock backend started by "aisearch mock"

Examples:
  aisearch init
  aisearch init --preset local
  aisearch init --preset https://example.com/aisearch/config.toml`

const initShortDesc string = "Initialize a local .aisearch/ directory"

func NewInitCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.Context(), cmd.OutOrStdout(), preset)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Backend preset name (pravochat, local) or URL of a config.toml")

	return cmd
}

func runInit(ctx context.Context, w io.Writer, preset string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .aisearch directory: %w", err)
		}
		fmt.Fprintf(w, "Initialized .aisearch directory: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	if preset == "" {
		_, err := os.Stat(cfger.GetTarget())
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, os.ErrNotExist):
			return fmt.Errorf("reading config: %w", err)
		}
		return cfger.SaveConfig(config.NewDefaultConfig())
	}

	cfg, err := resolvePreset(ctx, w, preset)
	if err != nil {
		return err
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "Wrote config from preset %s: %s\n", preset, cfger.GetTarget())
	return nil
}

// resolvePreset returns the named preset, or fetches and parses the
// config.toml at preset when it is an http(s) URL.
func resolvePreset(ctx context.Context, w io.Writer, preset string) (*config.Config, error) {
	if !strings.HasPrefix(preset, "http://") && !strings.HasPrefix(preset, "https://") {
		return config.PresetConfig(preset)
	}

	var cfg *config.Config
	err := cliui.Step(w, "Fetching "+preset, func() error {
		var err error
		cfg, err = fetchPreset(ctx, preset)
		return err
	})
	return cfg, err
}

func fetchPreset(ctx context.Context, preset string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, preset, nil)
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

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
