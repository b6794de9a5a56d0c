package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zulandar/roundhouse/internal/aggregator"
	"github.com/zulandar/roundhouse/internal/config"
	"github.com/zulandar/roundhouse/internal/identity"
	"github.com/zulandar/roundhouse/internal/notify"
	"github.com/zulandar/roundhouse/internal/notify/discord"
	"github.com/zulandar/roundhouse/internal/notify/slack"
	"github.com/zulandar/roundhouse/internal/server"
	"github.com/zulandar/roundhouse/internal/taskboard"
)

func newServeCmd() *cobra.Command {
	var (
		dir  string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the fleet server",
		Long: "Collects heartbeats from fleet machines and answers status queries. " +
			"Normally run as a background agent installed by rh setup on server and " +
			"standalone machines.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, dir, port)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Roundhouse directory (default ~/.roundhouse)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, dir string, port int) error {
	dir, err := resolveDir(dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(config.Path(dir))
	if err != nil {
		return err
	}
	id, err := identity.Load(identity.Path(dir))
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.LocalPort
	}

	var board aggregator.SummarySource
	if cfg.TaskBoard.Enabled() {
		b, err := taskboard.Open(cfg.TaskBoard)
		if err != nil {
			log.Printf("serve: task board unavailable: %v", err)
		} else {
			board = b
		}
	}

	agg, err := aggregator.New(aggregator.Opts{
		Identity:     id,
		Mode:         cfg.Mode,
		Table:        aggregator.NewTable(),
		Probers:      localProbers(cfg),
		ProbeTimeout: cfg.Probes.Timeout(),
		StaleAfter:   cfg.Heartbeat.StaleAfter(),
		Board:        board,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx, server.StartOpts{
		Aggregator: agg,
		Port:       port,
		Notifiers:  buildNotifiers(cfg),
		Out:        cmd.OutOrStdout(),
	})
}

// buildNotifiers assembles chat notifiers from the config. A misconfigured
// notifier is logged and skipped; announcements are best-effort.
func buildNotifiers(cfg *config.Config) notify.Multi {
	var notifiers notify.Multi
	if cfg.Notify.Slack.ChannelID != "" {
		n, err := slack.New(slack.Opts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.ChannelID,
		})
		if err != nil {
			log.Printf("serve: slack notifier: %v", err)
		} else {
			notifiers = append(notifiers, n)
		}
	}
	if cfg.Notify.Discord.ChannelID != "" {
		n, err := discord.New(discord.Opts{
			BotToken:  cfg.Notify.Discord.BotToken,
			ChannelID: cfg.Notify.Discord.ChannelID,
		})
		if err != nil {
			log.Printf("serve: discord notifier: %v", err)
		} else {
			notifiers = append(notifiers, n)
		}
	}
	return notifiers
}
