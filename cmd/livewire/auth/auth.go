// Package authcmder provides the auth command for storing bearer tokens.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/livewire/pkg/cliui"
	"github.com/papercomputeco/livewire/pkg/config"
	"github.com/papercomputeco/livewire/pkg/credentials"
)

const authLongDesc string = `Store a bearer token for a livewire server.

Tokens are stored per host in credentials.toml in the .livewire/ directory
and sent as "Authorization: Bearer <token>" by chat and probe. A --token flag
or LIVEWIRE_CLIENT_TOKEN takes precedence over a stored token.

Without a server argument the configured client.server is used.

Examples:
  livewire auth                                 Prompt for the configured server's token
  livewire auth https://chat.example.com        Prompt for a specific server
  livewire auth --list                          List hosts with stored tokens
  livewire auth --remove chat.example.com       Remove a stored token
  echo $TOKEN | livewire auth                   Pipe the token from stdin`

const authShortDesc string = "Store a bearer token for a livewire server"

func NewAuthCmd() *cobra.Command {
	var listFlag bool
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [server]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			out := cmd.OutOrStdout()

			switch {
			case listFlag:
				return runList(out, configDir)
			case removeFlag != "":
				return runRemove(out, removeFlag, configDir)
			}

			server := ""
			if len(args) == 1 {
				server = args[0]
			} else {
				v, err := config.InitViper(configDir)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				server = v.GetString("client.server")
			}

			return runAuth(cmd.InOrStdin(), out, server, configDir)
		},
	}

	cmd.Flags().BoolVar(&listFlag, "list", false, "List hosts with stored tokens")
	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove the stored token for a server")

	return cmd
}

func runAuth(in io.Reader, out io.Writer, server, configDir string) error {
	host, err := credentials.HostKey(server)
	if err != nil {
		return err
	}

	token, err := readToken(in, out, host)
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetToken(server, token); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Stored token for %s %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(host),
		cliui.DimStyle.Render("("+mgr.GetTarget()+")"),
	)
	return nil
}

func runList(out io.Writer, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	hosts, err := mgr.ListHosts()
	if err != nil {
		return err
	}

	if len(hosts) == 0 {
		fmt.Fprintf(out, "\n  %s No stored tokens.\n", cliui.DimStyle.Render("●"))
		fmt.Fprintf(out, "  Use 'livewire auth [server]' to store one.\n\n")
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render("Stored tokens"))
	for _, h := range hosts {
		fmt.Fprintf(out, "  %s  %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(h))
	}
	fmt.Fprintln(out)

	return nil
}

func runRemove(out io.Writer, server, configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.RemoveToken(server); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s Removed token for %s.\n\n", cliui.SuccessMark, cliui.KeyStyle.Render(server))

	return nil
}

// readToken reads a token from in. A terminal gets a hidden-input prompt;
// anything else has its first line read.
func readToken(in io.Reader, out io.Writer, host string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(out, "Enter token for %s: ", host)

		tokenBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return string(tokenBytes), nil
	}

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return "", errors.New("no input received on stdin")
}
