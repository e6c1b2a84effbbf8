// Package replaycmder provides the replay command, which serves a recorded
// event stream transcript over HTTP.
package replaycmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/livewire/pkg/config"
	"github.com/papercomputeco/livewire/pkg/dotdir"
	"github.com/papercomputeco/livewire/pkg/logger"
	"github.com/papercomputeco/livewire/pkg/replay"
)

var replayFlags = []string{
	config.FlagReplayListen,
	config.FlagReplayChunkSize,
	config.FlagReplayDelay,
	config.FlagReplayHold,
}

type replayCommander struct {
	listen    string
	chunkSize uint
	delay     time.Duration
	hold      bool

	logFile   string
	debug     bool
	configDir string
	logger    *slog.Logger
}

const replayLongDesc string = `Serve a recorded event stream transcript.

Every request, on any path, receives the transcript as text/event-stream,
written in --chunk-size byte chunks with --delay between them. With --hold
the connection stays open after the transcript ends, which is useful for
exercising probe windows and client timeouts.

The transcript is a file path, or the name of a recording made with
"livewire chat --record".

Prometheus metrics are served on /metrics.

Examples:
  livewire replay session.sse
  livewire replay --chunk-size 1 --delay 5ms ./fixtures/chat.sse
  livewire replay --hold --log-file replay.log session.sse
  livewire replay --hold --listen :9000 notifications.sse`

const replayShortDesc string = "Serve a recorded event stream transcript"

func NewReplayCmd() *cobra.Command {
	cmder := &replayCommander{}

	cmd := &cobra.Command{
		Use:   "replay <transcript>",
		Short: replayShortDesc,
		Long:  replayLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, replayFlags)

			cmder.listen = v.GetString("replay.listen")
			cmder.chunkSize = v.GetUint("replay.chunk_size")
			cmder.delay = v.GetDuration("replay.delay")
			cmder.hold = v.GetBool("replay.hold")

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
			return cmder.run(cmd.Context(), args[0])
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagReplayListen, &cmder.listen)
	config.AddUintFlag(cmd, config.Flags, config.FlagReplayChunkSize, &cmder.chunkSize)
	config.AddDurationFlag(cmd, config.Flags, config.FlagReplayDelay, &cmder.delay)
	config.AddBoolFlag(cmd, config.Flags, config.FlagReplayHold, &cmder.hold)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

func (c *replayCommander) run(ctx context.Context, name string) error {
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()

		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithWriter(f),
		))
	}

	c.logger.Debug("loading transcript", "name", name)

	transcript, err := LoadTranscript(c.configDir, name)
	if err != nil {
		return err
	}

	server, err := replay.New(replay.Config{
		ListenAddr: c.listen,
		Transcript: transcript,
		ChunkSize:  c.chunkSize,
		Delay:      c.delay,
		Hold:       c.hold,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating replay server: %w", err)
	}
	defer server.Close()

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("replay server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return nil
	case <-ctx.Done():
		c.logger.Info("context done, shutting down")
		return nil
	}
}

// LoadTranscript reads name as a file path, falling back to a recording of
// that name in the .livewire/recordings/ directory.
func LoadTranscript(configDir, name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	path, perr := dotdir.NewManager().RecordingPath(configDir, name)
	if perr != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	data, rerr := os.ReadFile(path)
	if rerr != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	return data, nil
}
