// Package chatcmder provides the chat command for streaming chat against a
// livewire server.
package chatcmder

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/livewire/pkg/cliui"
	"github.com/papercomputeco/livewire/pkg/config"
	"github.com/papercomputeco/livewire/pkg/credentials"
	"github.com/papercomputeco/livewire/pkg/dotdir"
	"github.com/papercomputeco/livewire/pkg/logger"
	"github.com/papercomputeco/livewire/pkg/stream"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("assistant> ")
)

// chatFlags are bound to viper so config.toml and LIVEWIRE_ env vars apply.
var chatFlags = []string{
	config.FlagServer,
	config.FlagChatPath,
	config.FlagToken,
	config.FlagChatTimeout,
	config.FlagRequireTerminal,
}

type chatCommander struct {
	server          string
	chatPath        string
	token           string
	timeout         time.Duration
	requireTerminal bool
	record          string
	markdown        bool

	configDir string
	debug     bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	logger *slog.Logger
	client *stream.Client
}

// chatMessage is one turn of the conversation history sent to the server.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON body posted to the chat endpoint.
type chatRequest struct {
	Message string        `json:"message"`
	History []chatMessage `json:"history,omitempty"`
}

const chatLongDesc string = `Start a streaming chat session with a livewire server.

With a prompt argument, sends one message, prints the streamed reply and
exits. Without one, starts an interactive session that keeps the
conversation history across turns.

The bearer token comes from --token, LIVEWIRE_CLIENT_TOKEN or the token
stored for the server with "livewire auth".

Examples:
  livewire chat "summarize my unread messages"
  livewire chat --server https://chat.example.com
  livewire chat --record session.sse "hello"
  livewire chat --markdown "write a haiku about sockets"`

const chatShortDesc string = "Streaming chat against a livewire server"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlags)

			cmder.server = v.GetString("client.server")
			cmder.chatPath = v.GetString("client.chat_path")
			cmder.token = v.GetString("client.token")
			cmder.timeout = v.GetDuration("client.chat_timeout")
			cmder.requireTerminal = v.GetBool("client.require_terminal")

			cmder.debug, _ = cmd.Flags().GetBool("debug")
			cmder.logger = logger.New(
				logger.WithDebug(cmder.debug),
				logger.WithPretty(v.GetBool("log.pretty")),
				logger.WithJSON(v.GetBool("log.json")),
				logger.WithWriter(cmd.ErrOrStderr()),
			)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context(), strings.TrimSpace(strings.Join(args, " ")))
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServer, &cmder.server)
	config.AddStringFlag(cmd, config.Flags, config.FlagChatPath, &cmder.chatPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagToken, &cmder.token)
	config.AddDurationFlag(cmd, config.Flags, config.FlagChatTimeout, &cmder.timeout)
	config.AddBoolFlag(cmd, config.Flags, config.FlagRequireTerminal, &cmder.requireTerminal)
	cmd.Flags().StringVar(&cmder.record, "record", "", "Record the raw stream to .livewire/recordings/<name>")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render the reply as markdown once complete")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, prompt string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint, err := url.JoinPath(c.server, c.chatPath)
	if err != nil {
		return fmt.Errorf("building chat URL: %w", err)
	}

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	token, err := creds.ResolveToken(c.token, c.server)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	c.client = stream.NewClient(stream.WithLogger(c.logger))

	c.logger.Debug("chat configured",
		"endpoint", endpoint,
		"timeout", c.timeout,
		"authenticated", token != "",
	)

	if prompt != "" {
		_, err := c.sendAndStream(ctx, endpoint, token, prompt, nil)
		fmt.Fprintln(c.out)
		return err
	}

	return c.interactive(ctx, endpoint, token)
}

func (c *chatCommander) interactive(ctx context.Context, endpoint, token string) error {
	var history []chatMessage

	fmt.Fprintln(c.out)
	fmt.Fprintf(c.out, "  %s %s\n\n",
		cliui.KeyStyle.Render("Server:"),
		cliui.ValueStyle.Render(endpoint),
	)
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		reply, err := c.sendAndStream(ctx, endpoint, token, input, history)
		if err != nil {
			fmt.Fprintf(c.errOut, "\n  %s %v\n", cliui.FailMark, err)
			if errors.Is(err, stream.ErrAborted) && ctx.Err() != nil {
				return nil
			}
			continue
		}

		history = append(history,
			chatMessage{Role: "user", Content: input},
			chatMessage{Role: "assistant", Content: reply},
		)

		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// sendAndStream posts one message and prints the reply as it streams.
// Returns the full reply text.
func (c *chatCommander) sendAndStream(ctx context.Context, endpoint, token, message string, history []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{Message: message, History: history})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req := stream.Request{
		URL:             endpoint,
		Body:            body,
		Token:           token,
		Timeout:         c.timeout,
		RequireTerminal: c.requireTerminal,
	}

	if c.record != "" {
		f, err := c.openRecording()
		if err != nil {
			return "", err
		}
		defer f.Close()
		req.Record = f
	}

	fmt.Fprint(c.out, assistantPrompt)
	if !c.markdown {
		req.OnContent = func(content string) {
			fmt.Fprint(c.out, content)
		}
	}

	fragments, err := c.client.Collect(ctx, req)
	if err != nil {
		return "", err
	}

	reply := strings.Join(fragments, "")
	if c.markdown {
		rendered, err := cliui.RenderMarkdown(reply)
		if err != nil {
			c.logger.Debug("markdown rendering failed", "error", err)
		}
		fmt.Fprint(c.out, rendered)
	}

	return reply, nil
}

// openRecording opens the --record transcript for appending.
func (c *chatCommander) openRecording() (*os.File, error) {
	path, err := dotdir.NewManager().RecordingPath(c.configDir, c.record)
	if err != nil {
		return nil, fmt.Errorf("resolving recording path: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}

	c.logger.Debug("recording stream", "path", path)
	return f, nil
}
