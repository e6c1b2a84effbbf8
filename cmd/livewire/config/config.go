// Package configcmder provides the config command for managing persistent
// livewire configuration stored in the .livewire/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/livewire/pkg/cliui"
	"github.com/papercomputeco/livewire/pkg/config"
)

const configLongDesc string = `Manage persistent livewire configuration.

Configuration is stored as config.toml in the .livewire/ directory and
provides default values for command flags. CLI flags and LIVEWIRE_
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.server, client.chat_path, client.notifications_path,
  client.chat_timeout, client.probe_timeout, client.require_terminal,
  replay.listen, replay.chunk_size, replay.delay, replay.hold,
  log.pretty, log.json

Examples:
  livewire config set client.server https://chat.example.com
  livewire config set client.probe_timeout 5s
  livewire config get client.server
  livewire config list`

const configShortDesc string = "Manage persistent livewire configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func unknownKey(key string) error {
	return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
		key, strings.Join(config.ValidConfigKeys(), ", "))
}

func printTarget(out io.Writer, cfger *config.Configer) {
	fmt.Fprintf(out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Config file:"),
		cliui.DimStyle.Render(cfger.GetTarget()),
	)
}
