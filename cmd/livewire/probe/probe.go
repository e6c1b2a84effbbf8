// Package probecmder provides the probe command, which checks that live
// notification streams deliver events.
package probecmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/livewire/pkg/cliui"
	"github.com/papercomputeco/livewire/pkg/config"
	"github.com/papercomputeco/livewire/pkg/credentials"
	"github.com/papercomputeco/livewire/pkg/logger"
	"github.com/papercomputeco/livewire/pkg/prober"
	"github.com/papercomputeco/livewire/pkg/stream"
	"github.com/papercomputeco/livewire/pkg/utils"
)

const eventPreviewLen = 60

var probeFlags = []string{
	config.FlagServer,
	config.FlagNotificationsPath,
	config.FlagToken,
	config.FlagProbeTimeout,
}

type probeCommander struct {
	server            string
	notificationsPath string
	token             string
	timeout           time.Duration
	workers           uint

	configDir string
	errOut    io.Writer
	logger    *slog.Logger
}

const probeLongDesc string = `Probe one or more live notification streams.

Each path is opened as an event stream and watched until the first event
arrives, the stream ends, or the probe window elapses. Streams are probed
concurrently. The command fails if any probe fails or times out; a stream
that ends cleanly without events is reported but not treated as a failure.

Without arguments the configured notifications path is probed.

Examples:
  livewire probe
  livewire probe /api/notifications/stream /api/presence/stream
  livewire probe --timeout 5s --server https://chat.example.com`

const probeShortDesc string = "Check that live notification streams deliver events"

func NewProbeCmd() *cobra.Command {
	cmder := &probeCommander{}

	cmd := &cobra.Command{
		Use:   "probe [path...]",
		Short: probeShortDesc,
		Long:  probeLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, probeFlags)

			cmder.server = v.GetString("client.server")
			cmder.notificationsPath = v.GetString("client.notifications_path")
			cmder.token = v.GetString("client.token")
			cmder.timeout = v.GetDuration("client.probe_timeout")

			debug, _ := cmd.Flags().GetBool("debug")
			cmder.logger = logger.New(
				logger.WithDebug(debug),
				logger.WithPretty(v.GetBool("log.pretty")),
				logger.WithJSON(v.GetBool("log.json")),
				logger.WithWriter(cmd.ErrOrStderr()),
			)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.errOut = cmd.ErrOrStderr()
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServer, &cmder.server)
	config.AddStringFlag(cmd, config.Flags, config.FlagNotificationsPath, &cmder.notificationsPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagToken, &cmder.token)
	config.AddDurationFlag(cmd, config.Flags, config.FlagProbeTimeout, &cmder.timeout)
	cmd.Flags().UintVarP(&cmder.workers, "workers", "w", 3, "Number of concurrent probes")

	return cmd
}

func (c *probeCommander) run(ctx context.Context, out io.Writer, paths []string) error {
	if len(paths) == 0 {
		paths = []string{c.notificationsPath}
	}

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	token, err := creds.ResolveToken(c.token, c.server)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	jobs := make([]prober.Job, 0, len(paths))
	for _, p := range paths {
		endpoint, err := url.JoinPath(c.server, p)
		if err != nil {
			return fmt.Errorf("building probe URL for %q: %w", p, err)
		}
		jobs = append(jobs, prober.Job{
			Name: p,
			Request: stream.Request{
				URL:     endpoint,
				Token:   token,
				Timeout: c.timeout,
			},
		})
	}

	client := stream.NewClient(stream.WithLogger(c.logger))

	var outcomes []prober.Outcome
	err = cliui.StepTTY(c.errOut, fmt.Sprintf("Probing %d stream(s)", len(jobs)), func() error {
		var perr error
		outcomes, perr = prober.ProbeAll(ctx, client, c.workers, c.logger, jobs)
		return perr
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\n  %s %s\n\n",
		cliui.KeyStyle.Render("Server:"),
		cliui.ValueStyle.Render(c.server),
	)

	failed := 0
	for _, o := range outcomes {
		elapsed := cliui.StepStyle.Render(fmt.Sprintf("(%s)", cliui.FormatDuration(o.Result.Elapsed)))

		switch {
		case o.Err != nil:
			failed++
			fmt.Fprintf(out, "  %s %s %s %s\n", cliui.FailMark, o.Job.Name, cliui.WarnStyle.Render(o.Err.Error()), elapsed)
		case o.Result.Observed:
			fmt.Fprintf(out, "  %s %s %s %s\n", cliui.SuccessMark, o.Job.Name,
				cliui.DimStyle.Render(utils.Truncate(describe(o.Result), eventPreviewLen)), elapsed)
		default:
			fmt.Fprintf(out, "  %s %s %s %s\n", cliui.IdleMark, o.Job.Name, cliui.DimStyle.Render("stream ended without events"), elapsed)
		}
	}
	fmt.Fprintln(out)

	if failed > 0 {
		return fmt.Errorf("%d of %d probes failed", failed, len(outcomes))
	}
	return nil
}

func describe(res stream.ProbeResult) string {
	if res.Event == nil {
		return ""
	}
	if res.Event.Content != "" {
		return res.Event.Content
	}
	return string(res.Event.Payload)
}
