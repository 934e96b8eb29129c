// Package configcmder provides the config command for managing persistent
// aisearch configuration stored in the .aisearch/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent aisearch configuration.

Configuration is stored as config.toml in the .aisearch/ directory and provides
default values for command flags. Environment variables (AISEARCH_BACKEND_URL,
AISEARCH_BACKEND_WORKSPACE, ...) override the file, and CLI flags always take
precedence over both.

Keys use dotted notation matching the TOML section structure:
  backend.url, backend.workspace, backend.mode, backend.framing,
  backend.max_line_size,
  eventstream.provider, eventstream.target, eventstream.topic,
  tracing.exporter, tracing.endpoint,
  mock.listen

Use subcommands to get, set, or list configuration values:
  aisearch config set <key> <value>    Set a configuration value
  aisearch config get <key>            Get a configuration value
  aisearch config list                 List all configuration values

Examples:
  aisearch config set backend.workspace docs
  aisearch config set eventstream.provider kafka
  aisearch config get backend.url
  aisearch config list`

const configShortDesc string = "Manage persistent aisearch configuration"
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newPresetCmd())

	return cmd
}
