package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/aisearch/pkg/cliui"
	"github.com/papercomputeco/aisearch/pkg/config"
)

const presetLongDesc string = `Apply a backend preset.

Replaces the backend section of config.toml stored in the .aisearch/
directory with the values of the named preset. Other sections are kept.

Presets:
  pravochat   The hosted workspace
  local       The mock backend started by "aisearch mock"

Examples:
  aisearch config preset local`

const presetShortDesc string = "Apply a backend preset"

func newPresetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset <name>",
		Short: presetShortDesc,
		Long:  presetLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runPreset(cmd.OutOrStdout(), args[0], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runPreset(w io.Writer, name, configDir string) error {
	preset, err := config.PresetConfig(name)
	if err != nil {
		return fmt.Errorf("%w\n\nValid presets: %s", err, strings.Join(config.ValidPresetNames(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Backend = preset.Backend

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "\n  %s Applied preset %s %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(strings.ToLower(name)),
		cliui.DimStyle.Render(fmt.Sprintf("(%s, workspace %s)", preset.Backend.URL, preset.Backend.Workspace)),
	)
	return nil
}
