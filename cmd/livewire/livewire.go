// Package livewirecmder
package livewirecmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/livewire/cmd/livewire/auth"
	chatcmder "github.com/papercomputeco/livewire/cmd/livewire/chat"
	configcmder "github.com/papercomputeco/livewire/cmd/livewire/config"
	initcmder "github.com/papercomputeco/livewire/cmd/livewire/init"
	probecmder "github.com/papercomputeco/livewire/cmd/livewire/probe"
	replaycmder "github.com/papercomputeco/livewire/cmd/livewire/replay"
	versioncmder "github.com/papercomputeco/livewire/cmd/version"
)

const livewireLongDesc string = `Livewire is a client for streaming chat and live notification endpoints.

Talk to a server using:
  livewire chat           Stream a chat reply, one-shot or interactive
  livewire probe          Check that notification streams deliver events
  livewire replay         Serve a recorded transcript as a live stream

Manage local state using:
  livewire init           Create a local .livewire/ directory
  livewire auth           Store a bearer token for a server
  livewire config         Read and write config.toml`

const livewireShortDesc string = "Livewire - streaming event client"

func NewLivewireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "livewire",
		Short:         livewireShortDesc,
		Long:          livewireLongDesc,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .livewire/ config directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(probecmder.NewProbeCmd())
	cmd.AddCommand(replaycmder.NewReplayCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
