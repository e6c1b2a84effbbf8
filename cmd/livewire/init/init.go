// Package initcmder provides the init command for initializing a local
// .livewire directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/livewire/pkg/cliui"
	"github.com/papercomputeco/livewire/pkg/config"
)

const (
	dirName       = ".livewire"
	recordingsDir = "recordings"
	configFile    = "config.toml"
)

const initLongDesc string = `Initialize a new .livewire/ directory in the current working directory.

Creates a local .livewire/ directory that takes precedence over the default
~/.livewire/ directory, with a recordings/ directory for "livewire chat
--record" transcripts and a config.toml holding the default settings.

An existing config.toml is left untouched.

Examples:
  livewire init
  livewire init --server https://chat.example.com`

const initShortDesc string = "Initialize a local .livewire/ directory"

func NewInitCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd.OutOrStdout(), server)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "Server base URL written to the new config.toml")

	return cmd
}

func runInit(out io.Writer, server string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	if err := os.MkdirAll(filepath.Join(dir, recordingsDir), 0o755); err != nil {
		return fmt.Errorf("creating .livewire directory: %w", err)
	}

	_, err = os.Stat(filepath.Join(dir, configFile))
	switch {
	case err == nil:
		fmt.Fprintf(out, "  %s Already initialized: %s\n", cliui.IdleMark, dir)
		return nil
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading config: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg := config.NewDefaultConfig()
	if server != "" {
		cfg.Client.Server = server
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "  %s Initialized .livewire directory: %s\n", cliui.SuccessMark, dir)
	return nil
}
